package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// Chart kinds selectable on the summary page.
const (
	ChartBar  = "bar"
	ChartLine = "line"
	ChartPie  = "pie"
)

// Pie groupings selectable on the summary page.
const (
	PieBySourceType = "source_type"
	PieByUsage      = "usage"
	PieByCounty     = "county"
)

// SummaryParams are the selections of the water balance summary page.
// Global carries the sidebar years and county; YearCount is the number of
// years the sidebar selection spans.
type SummaryParams struct {
	Global     Filter
	YearCount  int
	County     string
	StudyArea  string
	Usage      string
	SourceType domain.SourceType
	Renewable  string
	Chart      string
	PieBy      string
}

// Metric is the extraction total of one source type. Available is false
// when the full dataset never contained that source type.
type Metric struct {
	SourceType domain.SourceType `json:"source_type"`
	TotalMCM   float64           `json:"total_mcm"`
	Available  bool              `json:"available"`
}

// SummaryRow is one row of the aggregated summary table.
type SummaryRow struct {
	SourceType    domain.SourceType `json:"source_type"`
	SourceName    string            `json:"source_name"`
	ID            string            `json:"id"`
	County        string            `json:"county"`
	UsageType     string            `json:"usage_type"`
	Renewable     string            `json:"renewable_status"`
	ExtractionMCM float64           `json:"extraction_mcm"`
}

// BarChart holds one series per color group with a point for every
// category. The summary page uses counties ordered by total, largest first,
// with one series per source type.
type BarChart struct {
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
}

// Slice is one positive pie slice.
type Slice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Summary is the view model of the water balance summary page.
type Summary struct {
	CountyLocked      bool                `json:"county_locked"`
	County            string              `json:"county"`
	CountyOptions     []string            `json:"county_options"`
	StudyAreaOptions  []string            `json:"study_area_options"`
	UsageOptions      []string            `json:"usage_options"`
	SourceTypeOptions []domain.SourceType `json:"source_type_options"`
	RenewableOptions  []string            `json:"renewable_options"`

	Records []domain.Record `json:"-"`
	Metrics []Metric        `json:"metrics"`
	Table   []SummaryRow    `json:"table"`
	Total   float64         `json:"total_mcm"`

	Chart string    `json:"chart"`
	PieBy string    `json:"pie_by,omitempty"`
	Bar   *BarChart `json:"bar,omitempty"`
	Line  []Series  `json:"line,omitempty"`
	Pie   []Slice   `json:"pie,omitempty"`

	// LineNeedsYears is set when a line chart was requested for fewer than two years.
	LineNeedsYears bool `json:"line_needs_years,omitempty"`
}

// BuildSummary filters recs by the global and page selections. present
// reports which source types exist in the unfiltered dataset.
func BuildSummary(recs []domain.Record, p SummaryParams, present func(domain.SourceType) bool) Summary {
	global := p.Global.Apply(recs)

	s := Summary{
		CountyLocked:      p.Global.County != "",
		County:            p.County,
		CountyOptions:     CountyOptions(global),
		UsageOptions:      Distinct(global, KeyUsage, true),
		SourceTypeOptions: SourceTypeOptions(global),
		RenewableOptions:  RenewableOptions,
		Chart:             p.Chart,
	}
	if s.CountyLocked {
		s.County = p.Global.County
	}
	if s.Chart == "" {
		s.Chart = ChartBar
	}

	gw := Filter{County: s.County}.Apply(OfTypes(global, domain.Groundwater))
	s.StudyAreaOptions = Distinct(gw, func(r domain.Record) string {
		return wellField(r, func(w *domain.Well) string { return w.StudyArea })
	}, true)

	s.Records = Filter{
		County:     s.County,
		StudyArea:  p.StudyArea,
		UsageType:  p.Usage,
		SourceType: p.SourceType,
		Renewable:  p.Renewable,
	}.Apply(global)

	for _, st := range domain.SourceTypes {
		available := true
		if st == domain.Transfer || st == domain.Wastewater {
			available = present(st)
		}
		s.Metrics = append(s.Metrics, Metric{
			SourceType: st,
			TotalMCM:   SumExtraction(OfTypes(s.Records, st)),
			Available:  available,
		})
	}
	s.Table = SummaryTable(s.Records)
	s.Total = SumExtraction(s.Records)

	switch s.Chart {
	case ChartLine:
		if p.YearCount < 2 {
			s.LineNeedsYears = true
			break
		}
		s.Line = trendByYear(s.Records)
	case ChartPie:
		s.PieBy = p.PieBy
		if s.PieBy == "" {
			s.PieBy = PieBySourceType
		}
		s.Pie = pie(s.Table, s.PieBy)
	default:
		s.Chart = ChartBar
		s.Bar = barByCounty(s.Table)
	}
	return s
}

// SummaryTable groups recs by source type, name, subbasin, county, usage
// and renewable status, summing extraction.
func SummaryTable(recs []domain.Record) []SummaryRow {
	groups := GroupSum(recs, Extraction, KeySourceType, KeySourceName, KeyID, KeyCounty, KeyUsage, KeyRenewable)
	rows := make([]SummaryRow, len(groups))
	for i, g := range groups {
		rows[i] = SummaryRow{
			SourceType:    domain.SourceType(g.Keys[0]),
			SourceName:    g.Keys[1],
			ID:            g.Keys[2],
			County:        g.Keys[3],
			UsageType:     g.Keys[4],
			Renewable:     g.Keys[5],
			ExtractionMCM: g.Value,
		}
	}
	return rows
}

func barByCounty(rows []SummaryRow) *BarChart {
	if len(rows) == 0 {
		return nil
	}
	countyTotals := map[string][]float64{}
	cells := map[domain.SourceType]map[string][]float64{}
	for _, r := range rows {
		countyTotals[r.County] = append(countyTotals[r.County], r.ExtractionMCM)
		if cells[r.SourceType] == nil {
			cells[r.SourceType] = map[string][]float64{}
		}
		cells[r.SourceType][r.County] = append(cells[r.SourceType][r.County], r.ExtractionMCM)
	}

	type total struct {
		county string
		value  float64
	}
	totals := make([]total, 0, len(countyTotals))
	for c, vs := range countyTotals {
		totals = append(totals, total{c, stableSum(vs)})
	}
	slices.SortFunc(totals, func(a, b total) int {
		if c := cmp.Compare(b.value, a.value); c != 0 {
			return c
		}
		return strings.Compare(a.county, b.county)
	})

	chart := &BarChart{Categories: make([]string, len(totals))}
	for i, t := range totals {
		chart.Categories[i] = t.county
	}
	for _, st := range domain.SourceTypes {
		byCounty, ok := cells[st]
		if !ok {
			continue
		}
		series := Series{Name: string(st), Points: make([]Point, len(chart.Categories))}
		for i, c := range chart.Categories {
			series.Points[i] = Point{X: c, Y: stableSum(byCounty[c])}
		}
		chart.Series = append(chart.Series, series)
	}
	return chart
}

// trendByYear sums extraction per known year for each source type, years ascending.
func trendByYear(recs []domain.Record) []Series {
	var out []Series
	known := make([]domain.Record, 0, len(recs))
	for i := range recs {
		if !domain.IsUnknown(recs[i].WaterYear) {
			known = append(known, recs[i])
		}
	}
	groups := GroupSum(known, Extraction, KeySourceType, KeyYear)
	for _, st := range domain.SourceTypes {
		s := Series{Name: string(st)}
		for _, g := range groups {
			if g.Keys[0] == string(st) {
				s.Points = append(s.Points, Point{X: g.Keys[1], Y: g.Value})
			}
		}
		if len(s.Points) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// pie groups the summary table by the chosen column, keeping positive totals.
func pie(rows []SummaryRow, by string) []Slice {
	key := func(r SummaryRow) string { return string(r.SourceType) }
	switch by {
	case PieByUsage:
		key = func(r SummaryRow) string { return r.UsageType }
	case PieByCounty:
		key = func(r SummaryRow) string { return r.County }
	}
	values := map[string][]float64{}
	for _, r := range rows {
		values[key(r)] = append(values[key(r)], r.ExtractionMCM)
	}
	var out []Slice
	for label, vs := range values {
		if v := stableSum(vs); v > 0 {
			out = append(out, Slice{Label: label, Value: v})
		}
	}
	slices.SortFunc(out, func(a, b Slice) int { return strings.Compare(a.Label, b.Label) })
	return out
}

// CountyTotals sums extraction per county, leaving out unknown counties.
func CountyTotals(recs []domain.Record) []Group {
	var out []Group
	for _, g := range GroupSum(recs, Extraction, KeyCounty) {
		if !domain.IsUnknown(g.Keys[0]) {
			out = append(out, g)
		}
	}
	return out
}
