package http

import (
	"net/url"
	"slices"
	"strings"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

// allYears is the year query value selecting every water year.
const allYears = "all"

// selection is the parsed query string shared by all pages.
type selection struct {
	query url.Values

	Years    []string
	AllYears bool
	County   string
}

// parseSelection reads the sidebar filters. Without a year parameter every
// water year is selected.
func parseSelection(q url.Values) selection {
	s := selection{query: q, County: strings.TrimSpace(q.Get("county"))}
	for _, y := range q["year"] {
		y = strings.TrimSpace(y)
		switch {
		case y == allYears:
			s.AllYears = true
		case y != "":
			s.Years = append(s.Years, y)
		}
	}
	if s.AllYears || len(s.Years) == 0 {
		s.AllYears = true
		s.Years = nil
	}
	return s
}

// Global returns the sidebar filter.
func (s selection) Global() report.Filter {
	return report.Filter{Years: s.Years, County: s.County}
}

// YearCount is the number of years the selection spans.
func (s selection) YearCount(recs []domain.Record) int {
	if len(s.Years) == 0 {
		return len(report.YearOptions(recs))
	}
	return len(s.Years)
}

// YearSelected reports whether y is part of the selection.
func (s selection) YearSelected(y string) bool {
	return slices.Contains(s.Years, y)
}

// Param returns a page-level query parameter.
func (s selection) Param(key string) string {
	return s.get(key)
}

func (s selection) get(key string) string {
	return strings.TrimSpace(s.query.Get(key))
}

func (s selection) detailParams() report.DetailParams {
	return report.DetailParams{
		Global:     s.Global(),
		Dam:        s.get("dam"),
		Usage:      s.get("usage"),
		WellType:   s.get("well_type"),
		WellStatus: s.get("well_status"),
	}
}

func (s selection) summaryParams(recs []domain.Record) report.SummaryParams {
	return report.SummaryParams{
		Global:     s.Global(),
		YearCount:  s.YearCount(recs),
		County:     s.get("s_county"),
		StudyArea:  s.get("study_area"),
		Usage:      s.get("s_usage"),
		SourceType: domain.SourceType(s.get("source_type")),
		Renewable:  s.get("renewable"),
		Chart:      s.get("chart"),
		PieBy:      s.get("pie_by"),
	}
}

// encode returns the query string with the resolved years made explicit,
// so chart and export links render the same data as the page.
func (s selection) encode() string {
	q := url.Values{}
	for k, v := range s.query {
		if k != "year" {
			q[k] = v
		}
	}
	if s.AllYears {
		q.Set("year", allYears)
	} else {
		q["year"] = s.Years
	}
	return q.Encode()
}
