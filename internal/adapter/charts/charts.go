// Package charts renders report view models as PNG images with go-chart.
// Category axes (water years, counties) are mapped to integer positions and
// labelled with ticks.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

const (
	defaultWidth  = 900
	defaultHeight = 420
)

var padding = chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 24}}

// sourceColors keeps a source type on the same color across charts.
var sourceColors = map[string]drawing.Color{
	string(domain.Surface):     drawing.ColorFromHex("1f77b4"),
	string(domain.Groundwater): drawing.ColorFromHex("2ca02c"),
	string(domain.Transfer):    drawing.ColorFromHex("ff7f0e"),
	string(domain.Wastewater):  drawing.ColorFromHex("9467bd"),
}

func seriesColor(name string, index int) drawing.Color {
	if c, ok := sourceColors[name]; ok {
		return c
	}
	return chart.GetDefaultColor(index)
}

// Line draws one line per series over the union of their x categories.
func Line(w io.Writer, title string, series []report.Series) error {
	categories := categoriesOf(series)
	if len(categories) == 0 {
		return ErrNoData
	}
	font, err := Font()
	if err != nil {
		return err
	}
	pos := make(map[string]float64, len(categories))
	for i, c := range categories {
		pos[c] = float64(i)
	}

	var out []chart.Series
	var ys []float64
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]float64, len(s.Points))
		vals := make([]float64, len(s.Points))
		for j, p := range s.Points {
			xs[j] = pos[p.X]
			vals[j] = p.Y
		}
		ys = append(ys, vals...)
		style := chart.Style{
			StrokeColor: seriesColor(s.Name, i),
			StrokeWidth: 2,
			DotColor:    seriesColor(s.Name, i),
			DotWidth:    4,
		}
		xs, vals = padSingle(xs, vals)
		out = append(out, chart.ContinuousSeries{Name: Label(s.Name), XValues: xs, YValues: vals, Style: style})
	}

	ch := chart.Chart{
		Title:      title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Font:       font,
		Background: padding,
		XAxis:      chart.XAxis{Ticks: categoryTicks(categories), Range: categoryRange(len(categories))},
		YAxis:      chart.YAxis{Range: valueRange(ys)},
		Series:     out,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return render(w, ch.Render)
}

// StackedBar draws one bar per balance entry, split into its positive
// components.
func StackedBar(w io.Writer, title string, bars []report.BalanceBar) error {
	var out []chart.StackedBar
	for _, b := range bars {
		sb := chart.StackedBar{Name: Label(b.Label)}
		for i, c := range domain.BalanceComponents {
			v := b.Values[c]
			if v <= 0 {
				continue
			}
			sb.Values = append(sb.Values, chart.Value{
				Label: string(c),
				Value: v,
				Style: chart.Style{FillColor: chart.GetDefaultColor(i), StrokeColor: chart.GetDefaultColor(i)},
			})
		}
		if len(sb.Values) > 0 {
			out = append(out, sb)
		}
	}
	if len(out) == 0 {
		return ErrNoData
	}
	font, err := Font()
	if err != nil {
		return err
	}

	ch := chart.StackedBarChart{
		Title:      title,
		Width:      max(defaultWidth, len(out)*90),
		Height:     defaultHeight,
		Font:       font,
		Background: padding,
		Bars:       out,
	}
	return render(w, ch.Render)
}

// Bar draws one bar per category and series with a positive value, keeping
// the category order of c and coloring bars by series.
func Bar(w io.Writer, title string, c *report.BarChart) error {
	if c == nil {
		return ErrNoData
	}
	var bars []chart.Value
	var ys []float64
	for ci, category := range c.Categories {
		for si, s := range c.Series {
			if ci >= len(s.Points) || s.Points[ci].Y <= 0 {
				continue
			}
			color := seriesColor(s.Name, si)
			bars = append(bars, chart.Value{
				Label: Label(fmt.Sprintf("%s / %s", category, s.Name)),
				Value: s.Points[ci].Y,
				Style: chart.Style{FillColor: color, StrokeColor: color},
			})
			ys = append(ys, s.Points[ci].Y)
		}
	}
	return Values(w, title, bars, ys)
}

// Values draws a plain bar per value.
func Values(w io.Writer, title string, bars []chart.Value, ys []float64) error {
	if len(bars) == 0 {
		return ErrNoData
	}
	font, err := Font()
	if err != nil {
		return err
	}
	ch := chart.BarChart{
		Title:      title,
		Width:      max(defaultWidth, len(bars)*60),
		Height:     defaultHeight,
		Font:       font,
		Background: padding,
		BarWidth:   40,
		YAxis:      chart.YAxis{Range: valueRange(ys)},
		Bars:       bars,
	}
	return render(w, ch.Render)
}

// Counts draws a bar per group, e.g. well type or status distributions.
func Counts(w io.Writer, title string, groups []report.Group) error {
	var bars []chart.Value
	var ys []float64
	for i, g := range groups {
		if g.Value <= 0 {
			continue
		}
		color := chart.GetDefaultColor(i)
		bars = append(bars, chart.Value{
			Label: Label(g.Keys[len(g.Keys)-1]),
			Value: g.Value,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		ys = append(ys, g.Value)
	}
	return Values(w, title, bars, ys)
}

// Pie draws the positive slices.
func Pie(w io.Writer, title string, parts []report.Slice) error {
	var values []chart.Value
	for _, s := range parts {
		if s.Value > 0 {
			values = append(values, chart.Value{Label: Label(s.Label), Value: s.Value})
		}
	}
	if len(values) == 0 {
		return ErrNoData
	}
	font, err := Font()
	if err != nil {
		return err
	}
	ch := chart.PieChart{
		Title:      title,
		Width:      defaultHeight + 120,
		Height:     defaultHeight + 120,
		Font:       font,
		Background: padding,
		Values:     values,
	}
	return render(w, ch.Render)
}

// Scatter plots extraction against operating hours with dots sized by flow rate.
func Scatter(w io.Writer, title string, points []report.ScatterPoint) error {
	if len(points) == 0 {
		return ErrNoData
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	flow := make([]float64, len(points))
	var maxFlow float64
	for i, p := range points {
		xs[i] = p.OperatingHours
		ys[i] = p.ExtractionMCM
		flow[i] = p.FlowRateLS
		maxFlow = math.Max(maxFlow, p.FlowRateLS)
	}
	size := func(_, _ chart.Range, index int, _, _ float64) float64 {
		if maxFlow <= 0 || index >= len(flow) {
			return 4
		}
		return 3 + 9*flow[index]/maxFlow
	}
	xs, ys = padSingle(xs, ys)
	font, err := Font()
	if err != nil {
		return err
	}

	ch := chart.Chart{
		Title:      title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Font:       font,
		Background: padding,
		XAxis:      chart.XAxis{Name: "Operating hours", Range: valueRange(xs)},
		YAxis:      chart.YAxis{Name: "Extraction (MCM)", Range: valueRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Wells",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth:      chart.Disabled,
					DotColor:         drawing.ColorFromHex("2ca02c"),
					DotWidthProvider: size,
				},
			},
		},
	}
	return render(w, ch.Render)
}

func render(w io.Writer, fn func(chart.RendererProvider, io.Writer) error) error {
	if err := fn(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// categoriesOf returns the sorted union of x values across series.
func categoriesOf(series []report.Series) []string {
	seen := map[string]struct{}{}
	for _, s := range series {
		for _, p := range s.Points {
			seen[p.X] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for x := range seen {
		out = append(out, x)
	}
	slices.Sort(out)
	return out
}

func categoryTicks(categories []string) []chart.Tick {
	ticks := make([]chart.Tick, len(categories))
	for i, c := range categories {
		ticks[i] = chart.Tick{Value: float64(i), Label: Label(c)}
	}
	return ticks
}

func categoryRange(n int) *chart.ContinuousRange {
	if n < 2 {
		return &chart.ContinuousRange{Min: -0.5, Max: 0.5}
	}
	return &chart.ContinuousRange{Min: 0, Max: float64(n - 1)}
}

// padSingle repeats a lone point so the series has two values to draw.
func padSingle(xs, ys []float64) ([]float64, []float64) {
	if len(xs) != 1 {
		return xs, ys
	}
	return []float64{xs[0], xs[0]}, []float64{ys[0], ys[0]}
}

// valueRange spans zero and the data, widened when every value is equal.
func valueRange(values []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo == 0 {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi * 1.05}
}
