// Package export writes normalized records as CSV, XLSX or Parquet.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts csv, xlsx or parquet, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Row is the flat export shape of a record. Reservoir and well columns are
// empty for records without that data.
type Row struct {
	ID              string  `parquet:"id"`
	SourceType      string  `parquet:"source_type"`
	SourceName      string  `parquet:"source_name"`
	ExtractionMCM   float64 `parquet:"extraction_mcm"`
	UsageType       string  `parquet:"usage_type"`
	County          string  `parquet:"county"`
	WaterYear       string  `parquet:"water_year"`
	RenewableStatus string  `parquet:"renewable_status"`

	VolumeStart       *float64 `parquet:"volume_start,optional"`
	VolumeEnd         *float64 `parquet:"volume_end,optional"`
	LevelStart        *float64 `parquet:"level_start,optional"`
	LevelEnd          *float64 `parquet:"level_end,optional"`
	Inflow            *float64 `parquet:"inflow,optional"`
	OtherInput        *float64 `parquet:"other_input,optional"`
	TotalInput        *float64 `parquet:"total_input,optional"`
	Leakage           *float64 `parquet:"leakage,optional"`
	PumpingOut        *float64 `parquet:"pumping_out,optional"`
	Drainage          *float64 `parquet:"drainage,optional"`
	Evaporation       *float64 `parquet:"evaporation,optional"`
	SedimentDischarge *float64 `parquet:"sediment_discharge,optional"`
	IntakeDischarge   *float64 `parquet:"intake_discharge,optional"`
	SpillwayDischarge *float64 `parquet:"spillway_discharge,optional"`
	TotalOutflow      *float64 `parquet:"total_outflow,optional"`

	WellID         string   `parquet:"well_id"`
	StudyArea      string   `parquet:"study_area"`
	Department     string   `parquet:"department"`
	WellType       string   `parquet:"well_type"`
	WellStatus     string   `parquet:"well_status"`
	PowerSource    string   `parquet:"power_source"`
	SmartMeter     string   `parquet:"smart_meter"`
	DepthM         *float64 `parquet:"depth_m,optional"`
	FlowRateLS     *float64 `parquet:"flow_rate_ls,optional"`
	OperatingHours *float64 `parquet:"operating_hours,optional"`
	XUTM           *float64 `parquet:"x_utm,optional"`
	YUTM           *float64 `parquet:"y_utm,optional"`
}

// column is one export column. value returns a string, a float64 or nil
// for an empty cell.
type column struct {
	name  string
	value func(Row) interface{}
}

func text(f func(Row) string) func(Row) interface{} {
	return func(r Row) interface{} { return f(r) }
}

func number(f func(Row) *float64) func(Row) interface{} {
	return func(r Row) interface{} {
		if v := f(r); v != nil {
			return *v
		}
		return nil
	}
}

// columns lists the export columns in Row order.
var columns = []column{
	{"id", text(func(r Row) string { return r.ID })},
	{"source_type", text(func(r Row) string { return r.SourceType })},
	{"source_name", text(func(r Row) string { return r.SourceName })},
	{"extraction_mcm", func(r Row) interface{} { return r.ExtractionMCM }},
	{"usage_type", text(func(r Row) string { return r.UsageType })},
	{"county", text(func(r Row) string { return r.County })},
	{"water_year", text(func(r Row) string { return r.WaterYear })},
	{"renewable_status", text(func(r Row) string { return r.RenewableStatus })},
	{"volume_start", number(func(r Row) *float64 { return r.VolumeStart })},
	{"volume_end", number(func(r Row) *float64 { return r.VolumeEnd })},
	{"level_start", number(func(r Row) *float64 { return r.LevelStart })},
	{"level_end", number(func(r Row) *float64 { return r.LevelEnd })},
	{"inflow", number(func(r Row) *float64 { return r.Inflow })},
	{"other_input", number(func(r Row) *float64 { return r.OtherInput })},
	{"total_input", number(func(r Row) *float64 { return r.TotalInput })},
	{"leakage", number(func(r Row) *float64 { return r.Leakage })},
	{"pumping_out", number(func(r Row) *float64 { return r.PumpingOut })},
	{"drainage", number(func(r Row) *float64 { return r.Drainage })},
	{"evaporation", number(func(r Row) *float64 { return r.Evaporation })},
	{"sediment_discharge", number(func(r Row) *float64 { return r.SedimentDischarge })},
	{"intake_discharge", number(func(r Row) *float64 { return r.IntakeDischarge })},
	{"spillway_discharge", number(func(r Row) *float64 { return r.SpillwayDischarge })},
	{"total_outflow", number(func(r Row) *float64 { return r.TotalOutflow })},
	{"well_id", text(func(r Row) string { return r.WellID })},
	{"study_area", text(func(r Row) string { return r.StudyArea })},
	{"department", text(func(r Row) string { return r.Department })},
	{"well_type", text(func(r Row) string { return r.WellType })},
	{"well_status", text(func(r Row) string { return r.WellStatus })},
	{"power_source", text(func(r Row) string { return r.PowerSource })},
	{"smart_meter", text(func(r Row) string { return r.SmartMeter })},
	{"depth_m", number(func(r Row) *float64 { return r.DepthM })},
	{"flow_rate_ls", number(func(r Row) *float64 { return r.FlowRateLS })},
	{"operating_hours", number(func(r Row) *float64 { return r.OperatingHours })},
	{"x_utm", number(func(r Row) *float64 { return r.XUTM })},
	{"y_utm", number(func(r Row) *float64 { return r.YUTM })},
}

// Header lists the column names in Row order.
var Header = func() []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = c.name
	}
	return h
}()

// Rows flattens records.
func Rows(recs []domain.Record) []Row {
	rows := make([]Row, len(recs))
	for i := range recs {
		r := recs[i]
		rows[i] = Row{
			ID:              r.ID,
			SourceType:      string(r.SourceType),
			SourceName:      r.SourceName,
			ExtractionMCM:   r.ExtractionMCM,
			UsageType:       r.UsageType,
			County:          r.County,
			WaterYear:       r.WaterYear,
			RenewableStatus: r.RenewableStatus,
		}
		if res := r.Reservoir; res != nil {
			row := &rows[i]
			row.VolumeStart = ptr(res.VolumeStart)
			row.VolumeEnd = ptr(res.VolumeEnd)
			row.LevelStart = ptr(res.LevelStart)
			row.LevelEnd = ptr(res.LevelEnd)
			row.Inflow = ptr(res.Inflow)
			row.OtherInput = ptr(res.OtherInput)
			row.TotalInput = ptr(res.TotalInput)
			row.Leakage = ptr(res.Leakage)
			row.PumpingOut = ptr(res.PumpingOut)
			row.Drainage = ptr(res.Drainage)
			row.Evaporation = ptr(res.Evaporation)
			row.SedimentDischarge = ptr(res.SedimentDischarge)
			row.IntakeDischarge = ptr(res.IntakeDischarge)
			row.SpillwayDischarge = ptr(res.SpillwayDischarge)
			row.TotalOutflow = ptr(res.TotalOutflow)
		}
		if w := r.Well; w != nil {
			row := &rows[i]
			row.WellID = w.WellID
			row.StudyArea = w.StudyArea
			row.Department = w.Department
			row.WellType = w.WellType
			row.WellStatus = w.WellStatus
			row.PowerSource = w.PowerSource
			row.SmartMeter = w.SmartMeter
			row.DepthM = w.DepthM
			row.FlowRateLS = w.FlowRateLS
			row.OperatingHours = w.OperatingHours
			row.XUTM = w.XUTM
			row.YUTM = w.YUTM
		}
	}
	return rows
}

func ptr(v float64) *float64 { return &v }

// values returns the cells of r in column order.
func (r Row) values() []interface{} {
	out := make([]interface{}, len(columns))
	for i, c := range columns {
		out[i] = c.value(r)
	}
	return out
}

func (r Row) cells() []string {
	values := r.values()
	out := make([]string, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case string:
			out[i] = v
		case float64:
			out[i] = formatFloat(v)
		}
	}
	return out
}

// Write encodes recs to w in the given format.
func Write(w io.Writer, f Format, recs []domain.Record) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, recs)
	case FormatXLSX:
		return WriteXLSX(w, recs)
	case FormatParquet:
		return WriteParquet(w, recs)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a UTF-8 CSV with a byte order mark so spreadsheet tools
// detect the Persian text.
func WriteCSV(w io.Writer, recs []domain.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range Rows(recs) {
		if err := cw.Write(r.cells()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "records"

// WriteXLSX writes a single right-to-left worksheet.
func WriteXLSX(w io.Writer, recs []domain.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	rtl := true
	if err := f.SetSheetView(SheetName, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return fmt.Errorf("xlsx view: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, r := range Rows(recs) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx cell: %w", err)
		}
		values := r.values()
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// WriteParquet writes the rows as a single Parquet file.
func WriteParquet(w io.Writer, recs []domain.Record) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(Rows(recs)); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
