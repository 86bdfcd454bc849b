package report

import (
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// NoExtractionClass labels map features without positive extraction.
const NoExtractionClass = "No extraction"

// quartiles is the number of quantile classes on the map.
const quartiles = 4

// ExtractionByID sums the summary table per subbasin ID.
func ExtractionByID(rows []SummaryRow) map[string]float64 {
	values := map[string][]float64{}
	for _, r := range rows {
		values[r.ID] = append(values[r.ID], r.ExtractionMCM)
	}
	out := make(map[string]float64, len(values))
	for id, vs := range values {
		out[id] = stableSum(vs)
	}
	return out
}

// JoinExtraction looks up the extraction of each feature ID, defaulting to
// zero for features without data.
func JoinExtraction(featureIDs []string, byID map[string]float64) []float64 {
	out := make([]float64, len(featureIDs))
	for i, id := range featureIDs {
		out[i] = byID[domain.NormalizeID(id)]
	}
	return out
}

// Classify assigns quartile classes "Class 1".."Class 4" to positive values
// and NoExtractionClass to the rest. Quartile edges are computed over the
// positive values only and duplicate edges are merged, so fewer than four
// classes can result. ok is false when there are fewer than four distinct
// positive values; the map then shows raw values.
func Classify(values []float64) (labels []string, ok bool) {
	var positive []float64
	distinct := map[float64]struct{}{}
	for _, v := range values {
		if v > 0 {
			positive = append(positive, v)
			distinct[v] = struct{}{}
		}
	}
	if len(distinct) < quartiles {
		return nil, false
	}

	slices.Sort(positive)
	edges := make([]float64, 0, quartiles+1)
	for q := 0; q <= quartiles; q++ {
		e := quantile(positive, float64(q)/quartiles)
		if len(edges) == 0 || e != edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}

	labels = make([]string, len(values))
	for i, v := range values {
		if v <= 0 {
			labels[i] = NoExtractionClass
			continue
		}
		labels[i] = fmt.Sprintf("Class %d", bin(edges, v)+1)
	}
	return labels, true
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// bin returns the index of the right-closed interval of edges containing v;
// the first interval also includes its lower edge.
func bin(edges []float64, v float64) int {
	for i := 1; i < len(edges)-1; i++ {
		if v <= edges[i] {
			return i - 1
		}
	}
	return len(edges) - 2
}
