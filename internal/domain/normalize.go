package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrMissingColumns is returned when an input file lacks expected header columns.
var ErrMissingColumns = errors.New("missing expected columns")

// MissingColumnsError lists the expected columns absent from a source file.
type MissingColumnsError struct {
	Source  string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Source, ErrMissingColumns, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// Normalized is the outcome of normalizing one source table.
type Normalized struct {
	Records  []Record
	Warnings []string
}

// MissingColumns returns the expected columns of sc absent from header.
func MissingColumns(sc Schema, header []string) []string {
	var missing []string
	for _, col := range sc.ExpectedColumns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Normalize maps a raw source table onto canonical records. Every input row
// produces exactly one record. It fails only when expected columns are
// missing; everything else degrades to defaults and warnings.
func Normalize(sc Schema, t Table) (Normalized, error) {
	if missing := MissingColumns(sc, t.Header); len(missing) > 0 {
		return Normalized{}, &MissingColumnsError{Source: sc.Name, Columns: missing}
	}

	n := newNormalizer(sc, t.Header)
	out := Normalized{
		Records:  make([]Record, 0, len(t.Rows)),
		Warnings: n.warnings,
	}
	for _, row := range t.Rows {
		out.Records = append(out.Records, n.record(row))
	}
	return out, nil
}

// normalizer holds the resolved canonical column positions for one table.
type normalizer struct {
	sc       Schema
	index    map[string]int
	idCol    int
	extCol   int
	extUnit  Unit
	warnings []string
	transfer map[string]bool
}

func newNormalizer(sc Schema, header []string) *normalizer {
	n := &normalizer{
		sc:       sc,
		index:    make(map[string]int, len(header)),
		idCol:    -1,
		extCol:   -1,
		transfer: make(map[string]bool, len(sc.TransferNames)),
	}
	for i, h := range header {
		name := h
		if canon, ok := sc.Rename[h]; ok {
			name = canon
		}
		if _, dup := n.index[name]; !dup {
			n.index[name] = i
		}
	}
	for _, name := range sc.TransferNames {
		n.transfer[strings.TrimSpace(name)] = true
	}

	switch {
	case n.has(ColID):
		n.idCol = n.index[ColID]
	case n.has("ID"):
		n.idCol = n.index["ID"]
		n.warnf("standard ID column %q not found after renaming; using %q", ColID, "ID")
	default:
		n.warnf("standard ID column %q not found after renaming; IDs set to %s", ColID, Unknown)
	}

	for _, ec := range sc.Extraction {
		if n.has(ec.Column) {
			n.extCol = n.index[ec.Column]
			n.extUnit = ec.Unit
			break
		}
	}
	if n.extCol < 0 && !sc.ExtractionOptional {
		n.warnf("extraction column not found; extraction set to zero")
	}
	return n
}

func (n *normalizer) warnf(format string, args ...any) {
	n.warnings = append(n.warnings, fmt.Sprintf(format, args...))
}

func (n *normalizer) has(col string) bool {
	_, ok := n.index[col]
	return ok
}

// cell returns the raw value of a canonical column, or "" when absent.
func (n *normalizer) cell(row []string, col string) string {
	i, ok := n.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (n *normalizer) record(row []string) Record {
	r := Record{
		ID:              Unknown,
		SourceType:      n.sc.SourceType,
		UsageType:       orUnknown(n.cell(row, ColUsageType)),
		County:          orUnknown(n.cell(row, ColCounty)),
		WaterYear:       orUnknown(n.cell(row, ColWaterYear)),
		RenewableStatus: orUnknown(n.cell(row, ColRenewable)),
	}
	if n.idCol >= 0 && n.idCol < len(row) {
		r.ID = NormalizeID(row[n.idCol])
	}
	if n.extCol >= 0 && n.extCol < len(row) {
		r.ExtractionMCM = n.extUnit.ToMCM(parseFloatOrZero(row[n.extCol]))
	}

	r.SourceName = n.sourceName(row, r.ID)
	if n.sc.SourceType == Surface || n.sc.SourceType == Transfer {
		if n.has("Dam_Name") {
			r.SourceType = Surface
			if n.transfer[n.cell(row, "Dam_Name")] {
				r.SourceType = Transfer
			}
		}
		r.Reservoir = n.reservoir(row)
	}
	if n.sc.SourceType == Groundwater {
		r.Well = n.well(row)
	}
	return r
}

func (n *normalizer) sourceName(row []string, id string) string {
	if n.sc.NameColumn != "" && n.has(n.sc.NameColumn) {
		if name := n.cell(row, n.sc.NameColumn); !IsUnknown(name) {
			return name
		}
	}
	if n.sc.NamePrefix != "" {
		return n.sc.NamePrefix + id
	}
	return string(n.sc.SourceType) + " " + id
}

var reservoirColumns = []string{
	"Volume_Start_Year", "Volume_End_Year", "Level_Start_Year", "Level_End_Year",
	"Inflow", "Other_Input", "Total_Input", "Leakage", "Pumping_Out", "Drainage",
	"Evaporation", "Sediment_Discharge", "Intake_Discharge", "Spillway_Discharge",
	"Total_Outflow",
}

func (n *normalizer) reservoir(row []string) *Reservoir {
	if !slices.ContainsFunc(reservoirColumns, n.has) {
		return nil
	}
	f := func(col string) float64 { return parseFloatOrZero(n.cell(row, col)) }
	return &Reservoir{
		VolumeStart:       f("Volume_Start_Year"),
		VolumeEnd:         f("Volume_End_Year"),
		LevelStart:        f("Level_Start_Year"),
		LevelEnd:          f("Level_End_Year"),
		Inflow:            f("Inflow"),
		OtherInput:        f("Other_Input"),
		TotalInput:        f("Total_Input"),
		Leakage:           f("Leakage"),
		PumpingOut:        f("Pumping_Out"),
		Drainage:          f("Drainage"),
		Evaporation:       f("Evaporation"),
		SedimentDischarge: f("Sediment_Discharge"),
		IntakeDischarge:   f("Intake_Discharge"),
		SpillwayDischarge: f("Spillway_Discharge"),
		TotalOutflow:      f("Total_Outflow"),
	}
}

func (n *normalizer) well(row []string) *Well {
	return &Well{
		WellID:         NormalizeID(n.cell(row, "Subscription_ID")),
		StudyArea:      orUnknown(n.cell(row, "Study_Area")),
		Department:     orUnknown(n.cell(row, "Department")),
		WellType:       orUnknown(n.cell(row, "Well_Type")),
		WellStatus:     orUnknown(n.cell(row, "Well_Status")),
		PowerSource:    orUnknown(n.cell(row, "Power_Source")),
		SmartMeter:     normalizeSmartMeter(n.cell(row, "Smart_Meter")),
		DepthM:         parseOptional(n.cell(row, "Well_Depth_m")),
		FlowRateLS:     parseOptional(n.cell(row, "Flow_Rate_ls")),
		OperatingHours: parseOptional(n.cell(row, "Operating_Hours")),
		XUTM:           parseOptional(n.cell(row, "X_UTM")),
		YUTM:           parseOptional(n.cell(row, "Y_UTM")),
	}
}

// normalizeSmartMeter maps the Persian has/has-not answers and 0/1 flags
// onto Yes/No.
func normalizeSmartMeter(s string) string {
	switch strings.TrimSpace(s) {
	case "دارد", "1", "1.0", SmartMeterYes:
		return SmartMeterYes
	case "ندارد", "0", "0.0", SmartMeterNo:
		return SmartMeterNo
	default:
		return orUnknown(s)
	}
}
