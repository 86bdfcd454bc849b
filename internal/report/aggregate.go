package report

import (
	"slices"
	"strings"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// Key extracts a categorical grouping value from a record.
type Key func(domain.Record) string

// Grouping keys over the canonical record fields.
var (
	KeyYear       Key = func(r domain.Record) string { return r.WaterYear }
	KeyCounty     Key = func(r domain.Record) string { return r.County }
	KeyUsage      Key = func(r domain.Record) string { return r.UsageType }
	KeySourceType Key = func(r domain.Record) string { return string(r.SourceType) }
	KeySourceName Key = func(r domain.Record) string { return r.SourceName }
	KeyID         Key = func(r domain.Record) string { return r.ID }
	KeyRenewable  Key = func(r domain.Record) string { return r.RenewableStatus }
	KeyWellType   Key = func(r domain.Record) string { return wellField(r, func(w *domain.Well) string { return w.WellType }) }
	KeyWellStatus Key = func(r domain.Record) string { return wellField(r, func(w *domain.Well) string { return w.WellStatus }) }
)

// Group is one row of a grouped sum.
type Group struct {
	Keys  []string `json:"keys"`
	Value float64  `json:"value"`
}

// GroupSum groups recs by keys and sums value over each group. Groups are
// sorted by their keys and the per-group sum is taken over sorted values,
// so the result does not depend on record order.
func GroupSum(recs []domain.Record, value func(domain.Record) float64, keys ...Key) []Group {
	type acc struct {
		keys   []string
		values []float64
	}
	groups := make(map[string]*acc)
	for i := range recs {
		ks := make([]string, len(keys))
		for j, k := range keys {
			ks[j] = k(recs[i])
		}
		id := strings.Join(ks, "\x00")
		g, ok := groups[id]
		if !ok {
			g = &acc{keys: ks}
			groups[id] = g
		}
		g.values = append(g.values, value(recs[i]))
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, Group{Keys: g.keys, Value: stableSum(g.values)})
	}
	slices.SortFunc(out, func(a, b Group) int { return slices.Compare(a.Keys, b.Keys) })
	return out
}

// Extraction is the value function summing extraction volumes.
func Extraction(r domain.Record) float64 { return r.ExtractionMCM }

// SumExtraction returns the order-independent total extraction of recs.
func SumExtraction(recs []domain.Record) float64 {
	values := make([]float64, len(recs))
	for i := range recs {
		values[i] = recs[i].ExtractionMCM
	}
	return stableSum(values)
}

// CountDistinct counts, per category, the distinct non-unknown identifiers.
func CountDistinct(recs []domain.Record, category, id Key) []Group {
	sets := make(map[string]map[string]struct{})
	for i := range recs {
		v := id(recs[i])
		if domain.IsUnknown(v) {
			continue
		}
		c := category(recs[i])
		if sets[c] == nil {
			sets[c] = make(map[string]struct{})
		}
		sets[c][v] = struct{}{}
	}
	out := make([]Group, 0, len(sets))
	for c, ids := range sets {
		out = append(out, Group{Keys: []string{c}, Value: float64(len(ids))})
	}
	slices.SortFunc(out, func(a, b Group) int { return slices.Compare(a.Keys, b.Keys) })
	return out
}

// stableSum sums a copy of values in ascending order.
func stableSum(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum
}
