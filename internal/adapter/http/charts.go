package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/charts"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

type chartFunc func(s *Server, w io.Writer, p page, detail func() report.Detail) error

// chartRenderers maps the /charts/{name} path to its renderer.
var chartRenderers = map[string]chartFunc{
	"dam_volume": func(_ *Server, w io.Writer, _ page, d func() report.Detail) error {
		return charts.Line(w, "Reservoir volume (MCM)", d().Dam.Volume)
	},
	"dam_level": func(_ *Server, w io.Writer, _ page, d func() report.Detail) error {
		return charts.Line(w, "Reservoir level (m)", d().Dam.Level)
	},
	"dam_balance": func(_ *Server, w io.Writer, _ page, d func() report.Detail) error {
		return charts.StackedBar(w, "Water balance components (%)", d().Dam.Balance)
	},
	"gw_usage": func(_ *Server, w io.Writer, _ page, d func() report.Detail) error {
		return charts.Bar(w, "Groundwater extraction by year and usage (MCM)", report.PivotBars(d().Groundwater.ByYearUsage))
	},
	"gw_well_types": func(_ *Server, w io.Writer, _ page, d func() report.Detail) error {
		return charts.Counts(w, "Wells by type", d().Groundwater.WellTypes)
	},
	"gw_well_status": func(_ *Server, w io.Writer, _ page, d func() report.Detail) error {
		return charts.Counts(w, "Wells by status", d().Groundwater.WellStatuses)
	},
	"gw_scatter": func(_ *Server, w io.Writer, _ page, d func() report.Detail) error {
		return charts.Scatter(w, "Operating hours vs extraction", d().Groundwater.Scatter)
	},
	"summary": func(s *Server, w io.Writer, p page, _ func() report.Detail) error {
		sum := s.buildSummary(p, p.Dataset.Records)
		switch sum.Chart {
		case report.ChartLine:
			if sum.LineNeedsYears {
				return charts.ErrNoData
			}
			return charts.Line(w, "Extraction trend (MCM)", sum.Line)
		case report.ChartPie:
			return charts.Pie(w, "Extraction share", sum.Pie)
		default:
			return charts.Bar(w, "Extraction by county (MCM)", sum.Bar)
		}
	},
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fn, ok := chartRenderers[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	p, recs := s.newPage(r, "", "")
	var detail *report.Detail
	lazyDetail := func() report.Detail {
		if detail == nil {
			d := report.BuildDetail(recs, p.Sel.detailParams())
			detail = &d
		}
		return *detail
	}

	var buf bytes.Buffer
	err := fn(s, &buf, p, lazyDetail)
	switch {
	case errors.Is(err, charts.ErrNoData):
		s.deps.Metrics.ChartRenders.WithLabelValues(name, "empty").Inc()
		http.Error(w, "no data for the current selection", http.StatusNotFound)
		return
	case err != nil:
		s.deps.Metrics.ChartRenders.WithLabelValues(name, "error").Inc()
		s.logger.Error("render chart", "chart", name, "error", err)
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}

	s.deps.Metrics.ChartRenders.WithLabelValues(name, "success").Inc()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w) //nolint:errcheck // client went away
}
