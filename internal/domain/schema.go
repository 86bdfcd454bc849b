package domain

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSchemas []byte

// Canonical column names shared by every source after renaming.
const (
	ColWaterYear  = "Water_Year_Str"
	ColID         = "SubBasin_ID"
	ColUsageType  = "Usage_Type"
	ColCounty     = "County"
	ColRenewable  = "Renewable_Status"
	ColExtraction = "Extraction_MCM"
)

// Unit is the volume unit of an extraction column.
type Unit string

const (
	UnitCubicMeters Unit = "m3"
	UnitMCM         Unit = "mcm"
)

// ToMCM converts v from u to million cubic meters.
func (u Unit) ToMCM(v float64) float64 {
	if u == UnitCubicMeters {
		return v / 1_000_000
	}
	return v
}

func (u Unit) valid() bool {
	return u == UnitCubicMeters || u == UnitMCM
}

// ExtractionColumn is a candidate extraction column with its declared unit.
type ExtractionColumn struct {
	Column string `yaml:"column"`
	Unit   Unit   `yaml:"unit"`
}

// Schema describes how one input file maps onto the canonical record.
type Schema struct {
	Name            string             `yaml:"name"`
	SourceType      SourceType         `yaml:"source_type"`
	ExpectedColumns []string           `yaml:"expected_columns"`
	Rename          map[string]string  `yaml:"rename"`
	Extraction      []ExtractionColumn `yaml:"extraction"`
	// ExtractionOptional suppresses the missing-extraction warning.
	ExtractionOptional bool     `yaml:"extraction_optional"`
	NameColumn         string   `yaml:"name_column"`
	NamePrefix         string   `yaml:"name_prefix"`
	TransferNames      []string `yaml:"transfer_names"`
}

// Schemas is the ordered set of source schemas.
type Schemas struct {
	Sources []Schema `yaml:"sources"`
}

// ByName returns the schema with the given name.
func (s Schemas) ByName(name string) (Schema, bool) {
	for _, sc := range s.Sources {
		if sc.Name == name {
			return sc, true
		}
	}
	return Schema{}, false
}

// DefaultSchemas returns the schemas embedded in the binary.
func DefaultSchemas() (Schemas, error) {
	return ParseSchemas(defaultSchemas)
}

// LoadSchemas reads schemas from path, or the embedded defaults when path is empty.
func LoadSchemas(path string) (Schemas, error) {
	if path == "" {
		return DefaultSchemas()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Schemas{}, fmt.Errorf("read schema file: %w", err)
	}
	return ParseSchemas(data)
}

// ParseSchemas decodes and validates a YAML schema document.
func ParseSchemas(data []byte) (Schemas, error) {
	var s Schemas
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schemas{}, fmt.Errorf("parse schemas: %w", err)
	}
	if err := s.validate(); err != nil {
		return Schemas{}, err
	}
	return s, nil
}

func (s Schemas) validate() error {
	if len(s.Sources) == 0 {
		return errors.New("schemas: no sources defined")
	}
	seen := make(map[string]bool, len(s.Sources))
	for _, sc := range s.Sources {
		if sc.Name == "" {
			return errors.New("schemas: source without name")
		}
		if seen[sc.Name] {
			return fmt.Errorf("schemas: duplicate source %q", sc.Name)
		}
		seen[sc.Name] = true
		if !sc.SourceType.Valid() {
			return fmt.Errorf("schemas: source %q has invalid source_type %q", sc.Name, sc.SourceType)
		}
		for _, ec := range sc.Extraction {
			if !ec.Unit.valid() {
				return fmt.Errorf("schemas: source %q column %q has invalid unit %q", sc.Name, ec.Column, ec.Unit)
			}
		}
	}
	return nil
}
