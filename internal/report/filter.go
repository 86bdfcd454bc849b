// Package report turns a dataset snapshot into the filtered, aggregated
// view models rendered by the dashboard pages. Every function is pure:
// inputs are never modified and outputs depend only on the records given,
// not on their order.
package report

import (
	"slices"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// Filter selects records. Zero-valued fields match everything, so the zero
// Filter keeps every record.
//
// Years keeps records whose water year is in the list. StudyArea only drops
// groundwater records of other study areas; other source types have no
// study area and are kept. Renewable set to Unknown also matches the legacy
// blank and "نامشخص" spellings.
type Filter struct {
	Years      []string
	County     string
	SourceName string
	UsageType  string
	WellType   string
	WellStatus string
	StudyArea  string
	SourceType domain.SourceType
	Renewable  string
}

// Match reports whether r passes every set criterion.
func (f Filter) Match(r domain.Record) bool {
	if len(f.Years) > 0 && !slices.Contains(f.Years, r.WaterYear) {
		return false
	}
	if f.County != "" && r.County != f.County {
		return false
	}
	if f.SourceName != "" && r.SourceName != f.SourceName {
		return false
	}
	if f.UsageType != "" && r.UsageType != f.UsageType {
		return false
	}
	if f.SourceType != "" && r.SourceType != f.SourceType {
		return false
	}
	if f.Renewable != "" && !matchRenewable(f.Renewable, r.RenewableStatus) {
		return false
	}
	if f.WellType != "" && wellField(r, func(w *domain.Well) string { return w.WellType }) != f.WellType {
		return false
	}
	if f.WellStatus != "" && wellField(r, func(w *domain.Well) string { return w.WellStatus }) != f.WellStatus {
		return false
	}
	if f.StudyArea != "" && r.SourceType == domain.Groundwater &&
		wellField(r, func(w *domain.Well) string { return w.StudyArea }) != f.StudyArea {
		return false
	}
	return true
}

// Apply returns the records matching f, preserving their order.
func (f Filter) Apply(recs []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(recs))
	for i := range recs {
		if f.Match(recs[i]) {
			out = append(out, recs[i])
		}
	}
	return out
}

// OfTypes returns the records whose source type is one of types.
func OfTypes(recs []domain.Record, types ...domain.SourceType) []domain.Record {
	out := make([]domain.Record, 0, len(recs))
	for i := range recs {
		if slices.Contains(types, recs[i].SourceType) {
			out = append(out, recs[i])
		}
	}
	return out
}

func matchRenewable(want, got string) bool {
	if want == domain.Unknown {
		return domain.IsUnknown(got)
	}
	return got == want
}

func wellField(r domain.Record, get func(*domain.Well) string) string {
	if r.Well == nil {
		return domain.Unknown
	}
	return get(r.Well)
}
