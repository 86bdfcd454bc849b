package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/export"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/pipeline"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

var funcs = template.FuncMap{
	"num": formatNumber,
	"optnum": func(v *float64) string {
		if v == nil {
			return "N/A"
		}
		return formatNumber(*v)
	},
	"sourceLabel": sourceLabel,
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// sourceLabels are the Persian names of the source classifications.
var sourceLabels = map[domain.SourceType]string{
	domain.Surface:     "آب سطحی",
	domain.Groundwater: "آب زیرزمینی",
	domain.Transfer:    "انتقال آب",
	domain.Wastewater:  "پساب",
}

func sourceLabel(st domain.SourceType) string {
	if l, ok := sourceLabels[st]; ok {
		return l
	}
	return string(st)
}

// page holds what every dashboard page shows around its content.
type page struct {
	Title         string
	Active        string
	Sel           selection
	Query         string
	YearOptions   []string
	CountyOptions []string
	Dataset       *pipeline.Dataset
	Messages      []string
}

func (s *Server) newPage(r *http.Request, title, active string) (page, []domain.Record) {
	ds := s.snapshot()
	sel := parseSelection(r.URL.Query())
	p := page{
		Title:         title,
		Active:        active,
		Sel:           sel,
		Query:         sel.encode(),
		YearOptions:   report.YearOptions(ds.Records),
		CountyOptions: report.CountyOptions(ds.Records),
		Dataset:       ds,
		Messages:      ds.Messages(),
	}
	if ds.ID == "" {
		p.Messages = append(p.Messages, "داده‌ها هنوز بارگذاری نشده‌اند.")
	}
	return p, ds.Records
}

// PageURL links another dashboard page with the same sidebar filters.
func (p page) PageURL(name string) template.URL {
	return template.URL("/" + name + "?" + p.Query) //nolint:gosec // query is re-encoded by url.Values
}

// ChartURL links a chart image rendered for the page's selection.
func (p page) ChartURL(name string) template.URL {
	return template.URL("/charts/" + name + "?" + p.Query) //nolint:gosec // query is re-encoded by url.Values
}

// ExportURL links a download of the selected records.
func (p page) ExportURL(format string) template.URL {
	return template.URL("/export/" + format + "?" + p.Query) //nolint:gosec // query is re-encoded by url.Values
}

type detailPage struct {
	page
	Detail      report.Detail
	Dam         selectBox
	Usage       selectBox
	WellType    selectBox
	WellStatus  selectBox
	BalanceKeys []domain.BalanceComponent
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	p, recs := s.newPage(r, "تحلیل تفصیلی", "detail")
	params := p.Sel.detailParams()
	d := report.BuildDetail(recs, params)
	gw := d.Groundwater
	s.render(w, "detail", detailPage{
		page:        p,
		Detail:      d,
		Dam:         newSelect("dam", "سد", "همه سدها (تجمیعی)", d.Dam.Options, params.Dam),
		Usage:       newSelect("usage", "نوع مصرف", "همه", gw.UsageOptions, params.Usage),
		WellType:    newSelect("well_type", "نوع چاه", "همه", gw.WellTypeOptions, params.WellType),
		WellStatus:  newSelect("well_status", "وضعیت چاه", "همه", gw.WellStatusOptions, params.WellStatus),
		BalanceKeys: domain.BalanceComponents,
	})
}

type summaryPage struct {
	page
	Summary    report.Summary
	County     selectBox
	StudyArea  selectBox
	Usage      selectBox
	SourceType selectBox
	Renewable  selectBox
	Chart      selectBox
	PieBy      selectBox
}

type option struct {
	Value string
	Label string
}

// selectBox is a page-level dropdown submitted with the sidebar form.
type selectBox struct {
	Name     string
	Label    string
	All      string
	Options  []option
	Selected string
}

func newSelect(name, label, all string, values []string, selected string) selectBox {
	opts := make([]option, len(values))
	for i, v := range values {
		opts[i] = option{v, v}
	}
	return selectBox{Name: name, Label: label, All: all, Options: opts, Selected: selected}
}

var chartOptions = []option{
	{report.ChartBar, "نمودار میله‌ای"},
	{report.ChartLine, "نمودار خطی"},
	{report.ChartPie, "نمودار دایره‌ای"},
}

var pieByOptions = []option{
	{report.PieBySourceType, "نوع منبع"},
	{report.PieByUsage, "نوع مصرف"},
	{report.PieByCounty, "شهرستان"},
}

func (s *Server) buildSummary(p page, recs []domain.Record) report.Summary {
	return report.BuildSummary(recs, p.Sel.summaryParams(recs), p.Dataset.HasSourceType)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, recs := s.newPage(r, "خلاصه بیلان آب", "summary")
	params := p.Sel.summaryParams(recs)
	sum := report.BuildSummary(recs, params, p.Dataset.HasSourceType)

	sources := selectBox{Name: "source_type", Label: "نوع منبع", All: "همه", Selected: string(params.SourceType)}
	for _, st := range sum.SourceTypeOptions {
		sources.Options = append(sources.Options, option{string(st), sourceLabel(st)})
	}
	s.render(w, "summary", summaryPage{
		page:       p,
		Summary:    sum,
		County:     newSelect("s_county", "شهرستان", "همه", sum.CountyOptions, sum.County),
		StudyArea:  newSelect("study_area", "محدوده مطالعاتی", "همه", sum.StudyAreaOptions, params.StudyArea),
		Usage:      newSelect("s_usage", "نوع مصرف", "همه", sum.UsageOptions, params.Usage),
		SourceType: sources,
		Renewable:  newSelect("renewable", "وضعیت تجدیدپذیری", "همه", sum.RenewableOptions, params.Renewable),
		Chart:      selectBox{Name: "chart", Label: "نوع نمودار", Options: chartOptions, Selected: sum.Chart},
		PieBy:      selectBox{Name: "pie_by", Label: "تفکیک نمودار دایره‌ای", Options: pieByOptions, Selected: sum.PieBy},
	})
}

func (s *Server) handleSummaryAPI(w http.ResponseWriter, r *http.Request) {
	p, recs := s.newPage(r, "", "")
	years := p.Sel.Years
	if p.Sel.AllYears {
		years = p.YearOptions
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset_id": p.Dataset.ID,
		"loaded_at":  p.Dataset.LoadedAt,
		"years":      years,
		"county":     p.Sel.County,
		"summary":    s.buildSummary(p, recs),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.deps.Data.Reload(r.Context())
	if err != nil {
		s.logger.Error("manual reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if target := r.FormValue("redirect"); isLocalPath(target) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset_id": ds.ID,
		"loaded_at":  ds.LoadedAt,
		"records":    len(ds.Records),
		"sources":    ds.Sources,
	})
}

// isLocalPath accepts absolute paths on this host only.
func isLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && (len(p) == 1 || (p[1] != '/' && p[1] != '\\'))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ds := s.snapshot()
	sel := parseSelection(r.URL.Query())
	recs := sel.Global().Apply(ds.Records)

	var buf bytes.Buffer
	if err := export.Write(&buf, f, recs); err != nil {
		s.logger.Error("export records", "format", f, "error", err)
		http.Error(w, "failed to export records", http.StatusInternalServerError)
		return
	}
	s.deps.Metrics.Exports.WithLabelValues(string(f)).Inc()
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "water-records."+string(f)))
	buf.WriteTo(w) //nolint:errcheck // client went away
}
