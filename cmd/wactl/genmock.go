package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

var (
	genmockDir   string
	genmockSeed  uint64
	genmockWells int
)

var genmockCmd = &cobra.Command{
	Use:   "genmock",
	Short: "Generate a deterministic demo dataset of the four input files",
	Long: `genmock writes dam, groundwater, transfer and wastewater files that match
the configured schemas. The groundwater file is written in Windows-1256 and
the others in UTF-8, each with a different delimiter.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		schemas, err := domain.LoadSchemas(cfg.SchemaFile)
		if err != nil {
			return err
		}
		paths := cfg.Paths()
		if genmockDir != "" {
			for name, p := range paths {
				paths[name] = filepath.Join(genmockDir, filepath.Base(p))
			}
		}
		files, err := generate(schemas, genmockSeed, genmockWells)
		if err != nil {
			return err
		}
		for name, data := range files {
			path := paths[name]
			if path == "" {
				return fmt.Errorf("no path configured for source %q", name)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // demo data is world-readable
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d bytes)\n", name, path, len(data))
		}
		return nil
	},
}

func init() {
	genmockCmd.Flags().StringVar(&genmockDir, "dir", "", "output directory (default: the configured file paths)")
	genmockCmd.Flags().Uint64Var(&genmockSeed, "seed", 1, "random seed")
	genmockCmd.Flags().IntVar(&genmockWells, "wells", 40, "groundwater rows per water year")
}

// Demo values. Yeh is written as U+064A so every value survives Windows-1256.
var (
	mockYears     = []string{"1399-1400", "1400-1401", "1401-1402"}
	mockCounties  = []string{"مشهد", "سرخس", "چناران", "قوچان"}
	mockIDs       = []string{"11", "12", "13", "14", "15", "16"}
	mockUsages    = []string{"شرب", "کشاورزي", "صنعت"}
	mockDams      = []string{"سد طرق", "سد کارده", "سد دوستی"}
	mockTransfers = []string{"انتقال از سد دوستی", "انتقال از سد ارداک"}
	mockPlants    = []string{"تصفيه خانه پرکند آباد", "تصفيه خانه التيمور"}
	mockAreas     = []string{"مشهد-چناران", "سرخس", "قوچان"}
	mockWellTypes = []string{"عميق", "نيمه عميق"}
	mockStatuses  = []string{"فعال", "غيرفعال"}
	mockPower     = []string{"برق", "ديزل"}
	mockMeter     = []string{"دارد", "ندارد"}
	mockRenewable = []string{domain.Renewable, domain.NonRenewable}
)

// mockFormat is how one source file is laid out on disk.
type mockFormat struct {
	delim  string
	cp1256 bool
	bom    bool
	rows   func(g *mockGen, wells int) []map[string]string
}

var mockFormats = map[string]mockFormat{
	"dam":         {delim: ",", bom: true, rows: damRows},
	"groundwater": {delim: ",", cp1256: true, rows: wellRows},
	"transfer":    {delim: ";", rows: transferRows},
	"wastewater":  {delim: "\t", rows: plantRows},
}

type mockGen struct {
	rnd *rand.Rand
}

func (g *mockGen) pick(values []string) string {
	return values[g.rnd.IntN(len(values))]
}

// between returns a value in [lo, hi) with the given decimals.
func (g *mockGen) between(lo, hi float64, decimals int) string {
	return formatFloat(lo+g.rnd.Float64()*(hi-lo), decimals)
}

// generate renders every source in schemas that has a mock format, keyed by
// source name. The same seed yields the same bytes.
func generate(schemas domain.Schemas, seed uint64, wells int) (map[string][]byte, error) {
	g := &mockGen{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	out := make(map[string][]byte, len(schemas.Sources))
	for _, sc := range schemas.Sources {
		f, ok := mockFormats[sc.Name]
		if !ok {
			continue
		}
		data, err := render(sc, f, f.rows(g, wells))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sc.Name, err)
		}
		out[sc.Name] = data
	}
	return out, nil
}

// render lays out rows of canonical values under the schema's raw header.
func render(sc domain.Schema, f mockFormat, rows []map[string]string) ([]byte, error) {
	canonical := make([]string, len(sc.ExpectedColumns))
	for i, col := range sc.ExpectedColumns {
		canonical[i] = col
		if name, ok := sc.Rename[col]; ok {
			canonical[i] = name
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(sc.ExpectedColumns, f.delim))
	b.WriteString("\n")
	cells := make([]string, len(canonical))
	for _, row := range rows {
		for i, name := range canonical {
			cells[i] = row[name]
		}
		b.WriteString(strings.Join(cells, f.delim))
		b.WriteString("\n")
	}

	if f.cp1256 {
		data, err := charmap.Windows1256.NewEncoder().Bytes([]byte(b.String()))
		if err != nil {
			return nil, fmt.Errorf("encode windows-1256: %w", err)
		}
		return data, nil
	}
	if f.bom {
		return append([]byte("\uFEFF"), b.String()...), nil
	}
	return []byte(b.String()), nil
}

func damRows(g *mockGen, _ int) []map[string]string {
	var rows []map[string]string
	for _, year := range mockYears {
		for i, dam := range mockDams {
			inflow := 20 + g.rnd.Float64()*40
			evaporation := inflow * (0.03 + g.rnd.Float64()*0.05)
			level := 1000 + float64(i)*20 + g.rnd.Float64()*5
			volume := 30 + g.rnd.Float64()*60
			rows = append(rows, map[string]string{
				domain.ColWaterYear:    year,
				"Dam_Name":             dam,
				"Level_Start_Year":     formatFloat(level, 1),
				"Level_End_Year":       formatFloat(level-1+g.rnd.Float64()*2, 1),
				"Volume_Start_Year":    formatFloat(volume, 2),
				"Volume_End_Year":      formatFloat(volume*(0.85+g.rnd.Float64()*0.3), 2),
				"Inflow":               formatFloat(inflow, 2),
				"Total_Input":          formatFloat(inflow, 2),
				"Leakage":              g.between(0, 1.5, 2),
				"Evaporation":          formatFloat(evaporation, 2),
				"Spillway_Discharge":   g.between(0, 3, 2),
				"Total_Outflow":        formatFloat(inflow*0.9, 2),
				domain.ColUsageType:    mockUsages[0],
				domain.ColID:           mockIDs[i],
				"Dam_Extraction_Value": g.between(5, 40, 2),
				domain.ColCounty:       mockCounties[i%2],
			})
		}
	}
	return rows
}

func wellRows(g *mockGen, wells int) []map[string]string {
	var rows []map[string]string
	for _, year := range mockYears {
		for i := range wells {
			hours := g.rnd.IntN(4000) + 200
			flow := 5 + g.rnd.Float64()*40
			// Extraction in cubic meters follows the pumping regime.
			extraction := flow * float64(hours) * 3.6 * (0.8 + g.rnd.Float64()*0.4)
			county := g.pick(mockCounties)
			row := map[string]string{
				domain.ColWaterYear:    year,
				"Subscription_ID":      strconv.Itoa(5000 + i),
				"Department":           county,
				"Study_Area":           g.pick(mockAreas),
				domain.ColCounty:       county,
				"X_UTM":                g.between(700000, 760000, 0),
				"Y_UTM":                g.between(4000000, 4060000, 0),
				"Well_Depth_m":         g.between(40, 250, 0),
				"Flow_Rate_ls":         formatFloat(flow, 1),
				"Operating_Hours":      strconv.Itoa(hours),
				"Well_Type":            g.pick(mockWellTypes),
				domain.ColUsageType:    g.pick(mockUsages),
				"Power_Source":         g.pick(mockPower),
				"Well_Status":          g.pick(mockStatuses),
				"Actual_Extraction_m3": formatFloat(extraction, 0),
				"Smart_Meter":          g.pick(mockMeter),
				domain.ColID:           g.pick(mockIDs),
			}
			// Some wells lack measurements, as in the real files.
			if i%9 == 4 {
				row["Well_Depth_m"] = ""
				row["Operating_Hours"] = ""
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func transferRows(g *mockGen, _ int) []map[string]string {
	var rows []map[string]string
	for _, year := range mockYears {
		for _, src := range mockTransfers {
			rows = append(rows, map[string]string{
				domain.ColWaterYear:    year,
				"Transfer_Source_Name": src,
				domain.ColExtraction:   g.between(10, 60, 2),
				domain.ColUsageType:    mockUsages[0],
				domain.ColCounty:       mockCounties[0],
				domain.ColID:           g.pick(mockIDs),
				domain.ColRenewable:    domain.Renewable,
			})
		}
	}
	return rows
}

func plantRows(g *mockGen, _ int) []map[string]string {
	var rows []map[string]string
	for _, year := range mockYears {
		for _, plant := range mockPlants {
			rows = append(rows, map[string]string{
				domain.ColWaterYear:  year,
				"WW_Plant_Name":      plant,
				domain.ColExtraction: g.between(5, 45, 2),
				domain.ColUsageType:  mockUsages[1],
				domain.ColCounty:     mockCounties[0],
				domain.ColID:         g.pick(mockIDs),
				domain.ColRenewable:  g.pick(mockRenewable),
			})
		}
	}
	return rows
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
