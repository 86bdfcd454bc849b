package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// DetailParams are the selections of the detailed analysis page. Global
// carries the sidebar years and county; the other fields are the page
// selectors, empty meaning all.
type DetailParams struct {
	Global     Filter
	Dam        string
	Usage      string
	WellType   string
	WellStatus string
}

// Point is one categorical x value with its y value.
type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named line or bar series.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// BalanceBar is one stacked bar of reservoir balance components.
type BalanceBar struct {
	Label  string                              `json:"label"`
	Values map[domain.BalanceComponent]float64 `json:"values"`
}

// ScatterPoint is one well in the extraction vs operating hours chart.
type ScatterPoint struct {
	ID             string  `json:"id"`
	Usage          string  `json:"usage"`
	OperatingHours float64 `json:"operating_hours"`
	ExtractionMCM  float64 `json:"extraction_mcm"`
	FlowRateLS     float64 `json:"flow_rate_ls"`
}

// DamSection is the dam and transfer half of the detailed page.
type DamSection struct {
	Options  []string        `json:"options"`
	Selected string          `json:"selected"`
	Records  []domain.Record `json:"-"`
	Volume   []Series        `json:"volume"`
	Level    []Series        `json:"level"`
	Balance  []BalanceBar    `json:"balance"`
	// Aggregated is true when the balance is summed per year over all sources.
	Aggregated bool `json:"aggregated"`
}

// GroundwaterMetrics are the headline numbers of the groundwater section.
type GroundwaterMetrics struct {
	TotalMCM float64 `json:"total_mcm"`
	// AvgDepthM is nil when no filtered well has a depth.
	AvgDepthM       *float64 `json:"avg_depth_m"`
	ActiveSubbasins int      `json:"active_subbasins"`
}

// GroundwaterSection is the groundwater half of the detailed page.
type GroundwaterSection struct {
	UsageOptions      []string           `json:"usage_options"`
	WellTypeOptions   []string           `json:"well_type_options"`
	WellStatusOptions []string           `json:"well_status_options"`
	Records           []domain.Record    `json:"-"`
	Metrics           GroundwaterMetrics `json:"metrics"`
	ByYearUsage       []Group            `json:"by_year_usage"`
	WellTypes         []Group            `json:"well_types"`
	WellStatuses      []Group            `json:"well_statuses"`
	Scatter           []ScatterPoint     `json:"scatter"`
}

// Detail is the view model of the detailed analysis page.
type Detail struct {
	Dam         DamSection         `json:"dam"`
	Groundwater GroundwaterSection `json:"groundwater"`
}

// BuildDetail filters recs by the global selection and builds both sections.
func BuildDetail(recs []domain.Record, p DetailParams) Detail {
	global := p.Global.Apply(recs)
	return Detail{
		Dam:         buildDamSection(OfTypes(global, domain.Surface, domain.Transfer), p.Dam),
		Groundwater: buildGroundwaterSection(OfTypes(global, domain.Groundwater), p),
	}
}

func buildDamSection(recs []domain.Record, selected string) DamSection {
	s := DamSection{
		Options:    Distinct(recs, KeySourceName, false),
		Selected:   selected,
		Aggregated: selected == "",
	}
	s.Records = Filter{SourceName: selected}.Apply(recs)
	if len(s.Records) == 0 {
		return s
	}

	volStart := reservoirValue(func(res *domain.Reservoir) float64 { return res.VolumeStart })
	volEnd := reservoirValue(func(res *domain.Reservoir) float64 { return res.VolumeEnd })
	lvlStart := reservoirValue(func(res *domain.Reservoir) float64 { return res.LevelStart })
	lvlEnd := reservoirValue(func(res *domain.Reservoir) float64 { return res.LevelEnd })

	// Volumes add up across reservoirs; levels are averaged.
	if res := withReservoir(s.Records); len(res) > 0 {
		s.Volume = []Series{
			yearSeries("Volume_Start_Year", GroupSum(res, volStart, KeyYear)),
			yearSeries("Volume_End_Year", GroupSum(res, volEnd, KeyYear)),
		}
		s.Level = []Series{
			yearSeries("Level_Start_Year", groupMean(res, lvlStart, KeyYear)),
			yearSeries("Level_End_Year", groupMean(res, lvlEnd, KeyYear)),
		}
	}
	s.Balance = balanceBars(s.Records, s.Aggregated)
	return s
}

// balanceBars sums components per year when aggregated, otherwise emits
// one bar per record ordered by year.
func balanceBars(recs []domain.Record, aggregated bool) []BalanceBar {
	if !aggregated {
		sorted := slices.Clone(recs)
		slices.SortStableFunc(sorted, func(a, b domain.Record) int { return strings.Compare(a.WaterYear, b.WaterYear) })
		bars := make([]BalanceBar, 0, len(sorted))
		for _, r := range sorted {
			bar := BalanceBar{Label: r.WaterYear, Values: make(map[domain.BalanceComponent]float64, len(domain.BalanceComponents))}
			for _, c := range domain.BalanceComponents {
				bar.Values[c] = r.Component(c)
			}
			bars = append(bars, bar)
		}
		return bars
	}

	years := Distinct(recs, KeyYear, false)
	bars := make([]BalanceBar, len(years))
	index := make(map[string]int, len(years))
	for i, y := range years {
		bars[i] = BalanceBar{Label: y, Values: make(map[domain.BalanceComponent]float64, len(domain.BalanceComponents))}
		index[y] = i
	}
	for _, c := range domain.BalanceComponents {
		for _, g := range GroupSum(recs, func(r domain.Record) float64 { return r.Component(c) }, KeyYear) {
			bars[index[g.Keys[0]]].Values[c] = g.Value
		}
	}
	return bars
}

func buildGroundwaterSection(recs []domain.Record, p DetailParams) GroundwaterSection {
	s := GroundwaterSection{
		UsageOptions:      Distinct(recs, KeyUsage, false),
		WellTypeOptions:   Distinct(recs, KeyWellType, false),
		WellStatusOptions: Distinct(recs, KeyWellStatus, false),
	}
	s.Records = Filter{UsageType: p.Usage, WellType: p.WellType, WellStatus: p.WellStatus}.Apply(recs)
	if len(s.Records) == 0 {
		return s
	}

	s.Metrics = GroundwaterMetrics{
		TotalMCM:        SumExtraction(s.Records),
		AvgDepthM:       averageDepth(s.Records),
		ActiveSubbasins: len(Distinct(s.Records, KeyID, true)),
	}
	s.ByYearUsage = GroupSum(s.Records, Extraction, KeyYear, KeyUsage)
	s.WellTypes = CountDistinct(s.Records, KeyWellType, keyWell)
	s.WellStatuses = CountDistinct(s.Records, KeyWellStatus, keyWell)
	s.Scatter = scatter(s.Records)
	return s
}

// keyWell identifies a well by its subscription, falling back to the subbasin ID.
func keyWell(r domain.Record) string {
	if r.Well != nil && !domain.IsUnknown(r.Well.WellID) {
		return r.Well.WellID
	}
	return r.ID
}

func averageDepth(recs []domain.Record) *float64 {
	var depths []float64
	for i := range recs {
		if w := recs[i].Well; w != nil && w.DepthM != nil {
			depths = append(depths, *w.DepthM)
		}
	}
	if len(depths) == 0 {
		return nil
	}
	avg := stableSum(depths) / float64(len(depths))
	return &avg
}

// scatter keeps wells with positive extraction and operating hours.
func scatter(recs []domain.Record) []ScatterPoint {
	var out []ScatterPoint
	for i := range recs {
		r := recs[i]
		if r.Well == nil || r.Well.OperatingHours == nil {
			continue
		}
		if r.ExtractionMCM <= 0 || *r.Well.OperatingHours <= 0 {
			continue
		}
		pt := ScatterPoint{
			ID:             r.ID,
			Usage:          r.UsageType,
			OperatingHours: *r.Well.OperatingHours,
			ExtractionMCM:  r.ExtractionMCM,
		}
		if r.Well.FlowRateLS != nil {
			pt.FlowRateLS = *r.Well.FlowRateLS
		}
		out = append(out, pt)
	}
	slices.SortFunc(out, func(a, b ScatterPoint) int {
		if c := cmp.Compare(a.OperatingHours, b.OperatingHours); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ExtractionMCM, b.ExtractionMCM); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func withReservoir(recs []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(recs))
	for i := range recs {
		if recs[i].Reservoir != nil {
			out = append(out, recs[i])
		}
	}
	return out
}

func reservoirValue(get func(*domain.Reservoir) float64) func(domain.Record) float64 {
	return func(r domain.Record) float64 {
		if r.Reservoir == nil {
			return 0
		}
		return get(r.Reservoir)
	}
}

// groupMean is GroupSum divided by the group size.
func groupMean(recs []domain.Record, value func(domain.Record) float64, key Key) []Group {
	sums := GroupSum(recs, value, key)
	counts := GroupSum(recs, func(domain.Record) float64 { return 1 }, key)
	for i := range sums {
		sums[i].Value /= counts[i].Value
	}
	return sums
}

func yearSeries(name string, groups []Group) Series {
	s := Series{Name: name, Points: make([]Point, len(groups))}
	for i, g := range groups {
		s.Points[i] = Point{X: g.Keys[0], Y: g.Value}
	}
	return s
}

// Pivot turns two-key groups into one series per second key, with the first
// key as x. Group order is kept within each series.
func Pivot(groups []Group) []Series {
	var out []Series
	index := map[string]int{}
	for _, g := range groups {
		if len(g.Keys) < 2 {
			continue
		}
		i, ok := index[g.Keys[1]]
		if !ok {
			i = len(out)
			index[g.Keys[1]] = i
			out = append(out, Series{Name: g.Keys[1]})
		}
		out[i].Points = append(out[i].Points, Point{X: g.Keys[0], Y: g.Value})
	}
	return out
}

// PivotBars arranges two-key groups as bars with the first key as category
// and one series per second key. Missing cells are zero.
func PivotBars(groups []Group) *BarChart {
	series := Pivot(groups)
	if len(series) == 0 {
		return nil
	}
	var categories []string
	seen := map[string]bool{}
	for _, g := range groups {
		if len(g.Keys) < 2 || seen[g.Keys[0]] {
			continue
		}
		seen[g.Keys[0]] = true
		categories = append(categories, g.Keys[0])
	}

	out := &BarChart{Categories: categories}
	for _, s := range series {
		ys := make(map[string]float64, len(s.Points))
		for _, p := range s.Points {
			ys[p.X] += p.Y
		}
		aligned := Series{Name: s.Name, Points: make([]Point, len(categories))}
		for i, c := range categories {
			aligned.Points[i] = Point{X: c, Y: ys[c]}
		}
		out.Series = append(out.Series, aligned)
	}
	return out
}
