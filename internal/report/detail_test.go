package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

func TestBuildDetail_DamAggregated(t *testing.T) {
	d := report.BuildDetail(fixture(), report.DetailParams{Global: report.Filter{Years: []string{y1401}}})

	assert.Equal(t, []string{"سد دوستی", "سد طرق", "سد کارده"}, d.Dam.Options)
	assert.True(t, d.Dam.Aggregated)
	assert.Len(t, d.Dam.Records, 3)

	require.Len(t, d.Dam.Volume, 2)
	assert.Equal(t, []report.Point{{X: y1401, Y: 55}}, d.Dam.Volume[0].Points)
	require.Len(t, d.Dam.Level, 2)
	assert.Equal(t, []report.Point{{X: y1401, Y: 959}}, d.Dam.Level[0].Points, "transfers without a reservoir do not pull the mean down")

	require.Len(t, d.Dam.Balance, 1)
	bar := d.Dam.Balance[0]
	assert.Equal(t, y1401, bar.Label)
	assert.InDelta(t, 35.0, bar.Values[domain.ComponentInflow], 1e-9)
	assert.InDelta(t, 98.0, bar.Values[domain.ComponentExtraction], 1e-9)
	assert.InDelta(t, 1.0, bar.Values[domain.ComponentEvaporation], 1e-9)
}

func TestBuildDetail_SingleDamKeepsRawRows(t *testing.T) {
	d := report.BuildDetail(fixture(), report.DetailParams{Dam: "سد طرق"})

	assert.False(t, d.Dam.Aggregated)
	require.Len(t, d.Dam.Balance, 2)
	assert.Equal(t, y1400, d.Dam.Balance[0].Label)
	assert.InDelta(t, 30.0, d.Dam.Balance[0].Values[domain.ComponentInflow], 1e-9)
	assert.Equal(t, y1401, d.Dam.Balance[1].Label)
	assert.InDelta(t, 25.0, d.Dam.Balance[1].Values[domain.ComponentInflow], 1e-9)
}

func TestBuildDetail_TransferOnlyHasNoReservoirSeries(t *testing.T) {
	d := report.BuildDetail(fixture(), report.DetailParams{Dam: "سد دوستی"})

	assert.Len(t, d.Dam.Records, 1)
	assert.Nil(t, d.Dam.Volume)
	assert.Nil(t, d.Dam.Level)
	require.Len(t, d.Dam.Balance, 1)
	assert.InDelta(t, 80.0, d.Dam.Balance[0].Values[domain.ComponentExtraction], 1e-9)
}

func TestBuildDetail_Groundwater(t *testing.T) {
	d := report.BuildDetail(fixture(), report.DetailParams{Global: report.Filter{Years: []string{y1401}}})
	gw := d.Groundwater

	assert.Equal(t, []string{drinking, industry}, gw.UsageOptions)
	assert.Len(t, gw.Records, 3)
	assert.InDelta(t, 4.0, gw.Metrics.TotalMCM, 1e-9)
	require.NotNil(t, gw.Metrics.AvgDepthM)
	assert.InDelta(t, 100.0, *gw.Metrics.AvgDepthM, 1e-9)
	assert.Equal(t, 2, gw.Metrics.ActiveSubbasins)

	assert.Equal(t, []report.Group{
		{Keys: []string{y1401, drinking}, Value: 2.5},
		{Keys: []string{y1401, industry}, Value: 1.5},
	}, gw.ByYearUsage)
	assert.ElementsMatch(t, []report.Group{
		{Keys: []string{"عميق"}, Value: 2},
		{Keys: []string{"نيمه عميق"}, Value: 1},
	}, gw.WellTypes)
	assert.ElementsMatch(t, []report.Group{
		{Keys: []string{"فعال"}, Value: 2},
		{Keys: []string{"غيرفعال"}, Value: 1},
	}, gw.WellStatuses)

	require.Len(t, gw.Scatter, 2, "wells without extraction are left out")
	assert.InDelta(t, 2000.0, gw.Scatter[0].OperatingHours, 1e-9)
	assert.Zero(t, gw.Scatter[0].FlowRateLS)
	assert.InDelta(t, 18.0, gw.Scatter[1].FlowRateLS, 1e-9)
}

func TestBuildDetail_GroundwaterSelectors(t *testing.T) {
	d := report.BuildDetail(fixture(), report.DetailParams{
		Global:   report.Filter{Years: []string{y1401}},
		WellType: "نيمه عميق",
	})

	require.Len(t, d.Groundwater.Records, 1)
	require.NotNil(t, d.Groundwater.Metrics.AvgDepthM)
	assert.InDelta(t, 80.0, *d.Groundwater.Metrics.AvgDepthM, 1e-9)
	assert.Equal(t, []string{drinking, industry}, d.Groundwater.UsageOptions, "options ignore page selectors")
}

func TestBuildDetail_NoDepth(t *testing.T) {
	d := report.BuildDetail(fixture(), report.DetailParams{Global: report.Filter{Years: []string{y1400}}})

	require.Len(t, d.Groundwater.Records, 1)
	assert.Nil(t, d.Groundwater.Metrics.AvgDepthM)
	assert.Empty(t, d.Groundwater.Scatter)
}

func TestBuildDetail_Empty(t *testing.T) {
	d := report.BuildDetail(fixture(), report.DetailParams{Global: report.Filter{County: "نیشابور"}})

	assert.Empty(t, d.Dam.Options)
	assert.Empty(t, d.Dam.Balance)
	assert.Empty(t, d.Groundwater.Records)
	assert.Zero(t, d.Groundwater.Metrics.TotalMCM)
}

func TestPivot(t *testing.T) {
	got := report.Pivot([]report.Group{
		{Keys: []string{y1400, drinking}, Value: 2},
		{Keys: []string{y1401, drinking}, Value: 2.5},
		{Keys: []string{y1401, industry}, Value: 1.5},
		{Keys: []string{"short"}, Value: 9},
	})
	assert.Equal(t, []report.Series{
		{Name: drinking, Points: []report.Point{{X: y1400, Y: 2}, {X: y1401, Y: 2.5}}},
		{Name: industry, Points: []report.Point{{X: y1401, Y: 1.5}}},
	}, got)
}

func TestPivotBars(t *testing.T) {
	got := report.PivotBars([]report.Group{
		{Keys: []string{y1400, drinking}, Value: 2},
		{Keys: []string{y1401, drinking}, Value: 2.5},
		{Keys: []string{y1401, industry}, Value: 1.5},
	})
	require.NotNil(t, got)
	assert.Equal(t, []string{y1400, y1401}, got.Categories)
	assert.Equal(t, []report.Series{
		{Name: drinking, Points: []report.Point{{X: y1400, Y: 2}, {X: y1401, Y: 2.5}}},
		{Name: industry, Points: []report.Point{{X: y1400, Y: 0}, {X: y1401, Y: 1.5}}},
	}, got.Series)

	assert.Nil(t, report.PivotBars(nil))
}
