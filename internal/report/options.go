package report

import (
	"slices"
	"strings"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// YearOptions returns the distinct known water years, latest first.
func YearOptions(recs []domain.Record) []string {
	years := Distinct(recs, KeyYear, true)
	slices.Reverse(years)
	return years
}

// CountyOptions returns the distinct known counties in ascending order.
func CountyOptions(recs []domain.Record) []string {
	return Distinct(recs, KeyCounty, true)
}

// Distinct returns the sorted distinct values of key over recs, optionally
// leaving out unknown values.
func Distinct(recs []domain.Record, key Key, skipUnknown bool) []string {
	seen := make(map[string]struct{})
	for i := range recs {
		v := key(recs[i])
		if skipUnknown && domain.IsUnknown(v) {
			continue
		}
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.SortFunc(out, strings.Compare)
	return out
}

// SourceTypeOptions returns the source types present in recs in display order.
func SourceTypeOptions(recs []domain.Record) []domain.SourceType {
	present := make(map[domain.SourceType]bool)
	for i := range recs {
		present[recs[i].SourceType] = true
	}
	var out []domain.SourceType
	for _, st := range domain.SourceTypes {
		if present[st] {
			out = append(out, st)
		}
	}
	return out
}

// RenewableOptions are the selectable renewable statuses.
var RenewableOptions = []string{domain.Renewable, domain.NonRenewable, domain.Unknown}
