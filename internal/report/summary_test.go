package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

func withoutWastewater(st domain.SourceType) bool { return st != domain.Wastewater }

func TestBuildSummary_Metrics(t *testing.T) {
	s := report.BuildSummary(fixture(), report.SummaryParams{YearCount: 2}, withoutWastewater)

	assert.False(t, s.CountyLocked)
	assert.Equal(t, report.ChartBar, s.Chart)
	require.Len(t, s.Metrics, 4)
	want := map[domain.SourceType]float64{
		domain.Surface:     28,
		domain.Groundwater: 7,
		domain.Transfer:    80,
		domain.Wastewater:  0,
	}
	for _, m := range s.Metrics {
		assert.InDelta(t, want[m.SourceType], m.TotalMCM, 1e-9, m.SourceType)
		assert.Equal(t, m.SourceType != domain.Wastewater, m.Available, m.SourceType)
	}
	assert.InDelta(t, 115.0, s.Total, 1e-9)
}

func TestBuildSummary_BarOrderedByCountyTotal(t *testing.T) {
	s := report.BuildSummary(fixture(), report.SummaryParams{Chart: report.ChartBar}, withoutWastewater)

	require.NotNil(t, s.Bar)
	assert.Equal(t, []string{sarakhs, mashhad, domain.Unknown}, s.Bar.Categories)
	require.Len(t, s.Bar.Series, 3)
	assert.Equal(t, string(domain.Surface), s.Bar.Series[0].Name)
	assert.Equal(t, string(domain.Groundwater), s.Bar.Series[1].Name)
	assert.Equal(t, []report.Point{{X: sarakhs, Y: 0}, {X: mashhad, Y: 6}, {X: domain.Unknown, Y: 1}}, s.Bar.Series[1].Points)
	assert.Equal(t, string(domain.Transfer), s.Bar.Series[2].Name)
}

func TestBuildSummary_CountyLockedBySidebar(t *testing.T) {
	s := report.BuildSummary(fixture(), report.SummaryParams{
		Global: report.Filter{County: sarakhs},
		County: mashhad,
	}, withoutWastewater)

	assert.True(t, s.CountyLocked)
	assert.Equal(t, sarakhs, s.County)
	assert.Len(t, s.Records, 2)
	assert.InDelta(t, 80.0, s.Total, 1e-9)
}

func TestBuildSummary_StudyAreaOptions(t *testing.T) {
	s := report.BuildSummary(fixture(), report.SummaryParams{}, withoutWastewater)
	assert.Equal(t, []string{areaB, areaA}, s.StudyAreaOptions)

	s = report.BuildSummary(fixture(), report.SummaryParams{County: mashhad}, withoutWastewater)
	assert.Equal(t, []string{areaA}, s.StudyAreaOptions)
}

func TestBuildSummary_LineNeedsTwoYears(t *testing.T) {
	s := report.BuildSummary(fixture(), report.SummaryParams{Chart: report.ChartLine, YearCount: 1}, withoutWastewater)
	assert.True(t, s.LineNeedsYears)
	assert.Nil(t, s.Line)

	s = report.BuildSummary(fixture(), report.SummaryParams{Chart: report.ChartLine, YearCount: 2}, withoutWastewater)
	assert.False(t, s.LineNeedsYears)
	require.Len(t, s.Line, 3)
	assert.Equal(t, report.Series{
		Name:   string(domain.Surface),
		Points: []report.Point{{X: y1400, Y: 10}, {X: y1401, Y: 18}},
	}, s.Line[0])
	assert.Equal(t, report.Series{
		Name:   string(domain.Groundwater),
		Points: []report.Point{{X: y1400, Y: 2}, {X: y1401, Y: 4}},
	}, s.Line[1], "unknown years are not plotted")
}

func TestBuildSummary_PieByUsage(t *testing.T) {
	s := report.BuildSummary(fixture(), report.SummaryParams{Chart: report.ChartPie, PieBy: report.PieByUsage}, withoutWastewater)

	assert.Equal(t, report.PieByUsage, s.PieBy)
	assert.Equal(t, []report.Slice{
		{Label: domain.Unknown, Value: 1},
		{Label: drinking, Value: 112.5},
		{Label: industry, Value: 1.5},
	}, s.Pie)
}

func TestBuildSummary_PieSkipsNonPositive(t *testing.T) {
	s := report.BuildSummary(fixture(), report.SummaryParams{
		Global:     report.Filter{Years: []string{y1401}, County: sarakhs},
		SourceType: domain.Groundwater,
		Chart:      report.ChartPie,
	}, withoutWastewater)

	assert.Len(t, s.Records, 1)
	assert.Equal(t, report.PieBySourceType, s.PieBy)
	assert.Empty(t, s.Pie)
}

func TestCountyTotals_SkipsUnknown(t *testing.T) {
	got := report.CountyTotals(fixture())
	assert.Equal(t, []report.Group{
		{Keys: []string{sarakhs}, Value: 80},
		{Keys: []string{mashhad}, Value: 34},
	}, got)
}
