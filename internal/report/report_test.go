package report_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

const (
	y1400    = "1400-1401"
	y1401    = "1401-1402"
	mashhad  = "مشهد"
	sarakhs  = "سرخس"
	drinking = "شرب"
	industry = "صنعت"
	areaA    = "مشهد-چناران"
	areaB    = "سرخس"
)

func ptr(v float64) *float64 { return &v }

func dam(name, year, county string, mcm float64, res domain.Reservoir) domain.Record {
	return domain.Record{
		ID: "3", SourceType: domain.Surface, SourceName: name, ExtractionMCM: mcm,
		UsageType: drinking, County: county, WaterYear: year, RenewableStatus: domain.Unknown,
		Reservoir: &res,
	}
}

func well(id, wellID, year, county, usage, area string, mcm float64, w domain.Well) domain.Record {
	w.WellID = wellID
	w.StudyArea = area
	if w.WellType == "" {
		w.WellType = "عميق"
	}
	if w.WellStatus == "" {
		w.WellStatus = "فعال"
	}
	return domain.Record{
		ID: id, SourceType: domain.Groundwater, SourceName: "منبع زیرزمینی " + id, ExtractionMCM: mcm,
		UsageType: usage, County: county, WaterYear: year, RenewableStatus: domain.Unknown, Well: &w,
	}
}

func fixture() []domain.Record {
	return []domain.Record{
		dam("سد طرق", y1400, mashhad, 10, domain.Reservoir{VolumeStart: 40, VolumeEnd: 35, LevelStart: 1020, LevelEnd: 1018, Inflow: 30, Evaporation: 2}),
		dam("سد طرق", y1401, mashhad, 12, domain.Reservoir{VolumeStart: 35, VolumeEnd: 33, LevelStart: 1018, LevelEnd: 1016, Inflow: 25, Evaporation: 1}),
		dam("سد کارده", y1401, mashhad, 6, domain.Reservoir{VolumeStart: 20, VolumeEnd: 18, LevelStart: 900, LevelEnd: 898, Inflow: 10}),
		{ID: "9", SourceType: domain.Transfer, SourceName: "سد دوستی", ExtractionMCM: 80, UsageType: drinking, County: sarakhs, WaterYear: y1401, RenewableStatus: domain.Renewable},
		well("12", "5501", y1401, mashhad, drinking, areaA, 2.5, domain.Well{DepthM: ptr(120), OperatingHours: ptr(3000), FlowRateLS: ptr(18)}),
		well("12", "5502", y1401, mashhad, industry, areaA, 1.5, domain.Well{DepthM: ptr(80), OperatingHours: ptr(2000), WellType: "نيمه عميق"}),
		well("12", "5501", y1400, mashhad, drinking, areaA, 2, domain.Well{OperatingHours: ptr(0)}),
		well("14", "7701", y1401, sarakhs, drinking, areaB, 0, domain.Well{WellStatus: "غيرفعال"}),
		{ID: domain.Unknown, SourceType: domain.Groundwater, SourceName: "x", ExtractionMCM: 1, UsageType: domain.Unknown, County: domain.Unknown, WaterYear: domain.Unknown, RenewableStatus: "نامشخص"},
	}
}

func TestFilter_YearAndCounty(t *testing.T) {
	f := report.Filter{Years: []string{y1401}, County: mashhad}
	got := f.Apply(fixture())

	require.NotEmpty(t, got)
	for _, r := range got {
		assert.Equal(t, y1401, r.WaterYear)
		assert.Equal(t, mashhad, r.County)
	}
	assert.Len(t, got, 4)
}

func TestFilter_Idempotent(t *testing.T) {
	filters := []report.Filter{
		{},
		{Years: []string{y1400, y1401}},
		{County: sarakhs, Renewable: domain.Renewable},
		{StudyArea: areaA, UsageType: drinking},
		{SourceType: domain.Groundwater, WellType: "عميق", WellStatus: "فعال"},
	}
	for _, f := range filters {
		once := f.Apply(fixture())
		twice := f.Apply(once)
		assert.Empty(t, cmp.Diff(once, twice))
	}
}

func TestFilter_StudyAreaOnlyAffectsGroundwater(t *testing.T) {
	got := report.Filter{StudyArea: areaB}.Apply(fixture())

	types := map[domain.SourceType]int{}
	for _, r := range got {
		types[r.SourceType]++
	}
	assert.Equal(t, 3, types[domain.Surface])
	assert.Equal(t, 1, types[domain.Transfer])
	assert.Equal(t, 1, types[domain.Groundwater], "records without a study area are dropped too")
}

func TestFilter_RenewableUnknownMatchesLegacy(t *testing.T) {
	got := report.Filter{Renewable: domain.Unknown}.Apply(fixture())
	assert.Len(t, got, 8)

	got = report.Filter{Renewable: domain.Renewable}.Apply(fixture())
	require.Len(t, got, 1)
	assert.Equal(t, domain.Transfer, got[0].SourceType)
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	in := fixture()
	before := slices.Clone(in)
	_ = report.Filter{County: mashhad}.Apply(in)
	assert.Empty(t, cmp.Diff(before, in))
}

func TestOptions(t *testing.T) {
	recs := fixture()
	assert.Equal(t, []string{y1401, y1400}, report.YearOptions(recs))
	assert.Equal(t, []string{mashhad, sarakhs}, slices.Sorted(slices.Values(report.CountyOptions(recs))))
	assert.Equal(t, []domain.SourceType{domain.Surface, domain.Groundwater, domain.Transfer}, report.SourceTypeOptions(recs))
}

func TestGroupSum_OrderIndependent(t *testing.T) {
	recs := fixture()
	for i := 0; i < 30; i++ {
		recs = append(recs, domain.Record{SourceType: domain.Groundwater, County: mashhad, WaterYear: y1401, ExtractionMCM: 0.1 * float64(i+1)})
	}
	want := report.GroupSum(recs, report.Extraction, report.KeyCounty, report.KeySourceType)
	wantTable := report.SummaryTable(recs)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := slices.Clone(recs)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		assert.Empty(t, cmp.Diff(want, report.GroupSum(shuffled, report.Extraction, report.KeyCounty, report.KeySourceType)))
		assert.Empty(t, cmp.Diff(wantTable, report.SummaryTable(shuffled)))
	}
}

func TestGroupSum_SortedKeys(t *testing.T) {
	got := report.GroupSum(fixture(), report.Extraction, report.KeySourceType)
	keys := make([]string, len(got))
	for i, g := range got {
		keys[i] = g.Keys[0]
	}
	assert.Equal(t, []string{"Groundwater", "Surface", "Transfer"}, keys)
	assert.InDelta(t, 7.0, got[0].Value, 1e-9)
	assert.InDelta(t, 28.0, got[1].Value, 1e-9)
}

func TestCountDistinct_SkipsUnknown(t *testing.T) {
	got := report.CountDistinct(fixture(), report.KeyCounty, report.KeyID)
	assert.ElementsMatch(t, []report.Group{
		{Keys: []string{sarakhs}, Value: 2},
		{Keys: []string{mashhad}, Value: 2},
	}, got)
}
