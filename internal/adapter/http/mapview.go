package http

import (
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/shapefile"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

// uploadField is the multipart field carrying the zipped shapefile.
const uploadField = "shapefile"

// idFieldParam selects the layer column joined to subbasin IDs.
const idFieldParam = "id_field"

type mapPage struct {
	page
	LayerKey  string
	Layer     *shapefile.Layer
	IDField   selectBox
	Center    domain.Geo
	Geocoding bool
	Error     string
}

// DataURL links the GeoJSON or county JSON for the page's selection.
func (p mapPage) DataURL() template.URL {
	if p.LayerKey != "" {
		return template.URL("/map/geojson?" + p.Query) //nolint:gosec // query is re-encoded by url.Values
	}
	return template.URL("/map/counties?" + p.Query) //nolint:gosec // query is re-encoded by url.Values
}

func (s *Server) newMapPage(r *http.Request) mapPage {
	p, _ := s.newPage(r, "نقشه برداشت", "map")
	return mapPage{page: p, Center: shapefile.DefaultCenter, Geocoding: s.deps.Geocoder != nil}
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	mp := s.newMapPage(r)
	if key := r.URL.Query().Get("layer"); key != "" {
		layer, ok := s.deps.Layers.Get(key)
		if !ok {
			mp.Error = "لایه بارگذاری‌شده منقضی شده است؛ لطفاً فایل را دوباره بارگذاری کنید."
		} else {
			mp.LayerKey, mp.Layer, mp.Center = key, layer, layer.Center
			field := layer.ResolveIDField(mp.Sel.Param(idFieldParam))
			mp.IDField = newSelect(idFieldParam, "ستون شناسه زیرحوضه", "", layer.Fields, field)
		}
	}
	s.render(w, "map", mp)
}

// handleUpload parses a zipped shapefile and redirects to the map showing it.
// Parse errors are rendered inline and the map is skipped.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUpload)
	data, err := readUpload(r)
	if err == nil {
		var key string
		_, key, err = s.deps.Layers.Load(data)
		if err == nil {
			s.deps.Metrics.ShapefileUploads.WithLabelValues("success").Inc()
			q := r.URL.Query()
			q.Set("layer", key)
			http.Redirect(w, r, "/map?"+q.Encode(), http.StatusSeeOther)
			return
		}
	}

	s.deps.Metrics.ShapefileUploads.WithLabelValues("error").Inc()
	s.logger.Warn("shapefile upload rejected", "error", err)
	mp := s.newMapPage(r)
	mp.Error = "خطا در خواندن شیپ‌فایل: " + err.Error()
	s.renderStatus(w, http.StatusBadRequest, "map", mp)
}

func readUpload(r *http.Request) ([]byte, error) {
	f, _, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.New("upload exceeds the size limit")
		}
		return nil, errors.New("no shapefile archive was uploaded")
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleLayerGeoJSON serves the uploaded layer with each feature's
// extraction and quartile class for the current summary filters.
func (s *Server) handleLayerGeoJSON(w http.ResponseWriter, r *http.Request) {
	layer, ok := s.deps.Layers.Get(r.URL.Query().Get("layer"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	p, recs := s.newPage(r, "", "")
	sum := s.buildSummary(p, recs)
	ids := layer.FeatureIDs(p.Sel.Param(idFieldParam))
	values := report.JoinExtraction(ids, report.ExtractionByID(sum.Table))
	classes, classified := report.Classify(values)

	styles := make([]shapefile.Style, len(values))
	for i, v := range values {
		styles[i].ID = ids[i]
		styles[i].Value = v
		if classified {
			styles[i].Class = classes[i]
		}
	}

	out, err := layer.GeoJSON(styles)
	if err != nil {
		s.logger.Error("encode layer", "layer", layer.Name, "error", err)
		http.Error(w, "failed to encode layer", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(out) //nolint:errcheck // client went away
}

type countyMarker struct {
	County        string  `json:"county"`
	ExtractionMCM float64 `json:"extraction_mcm"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
}

// handleCounties places the filtered county totals on the map. Counties the
// geocoder cannot resolve are left out.
func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	p, recs := s.newPage(r, "", "")
	sum := s.buildSummary(p, recs)

	markers := []countyMarker{}
	for _, g := range report.CountyTotals(sum.Records) {
		county := g.Keys[0]
		geo, ok := domain.LocateCounty(r.Context(), county, s.deps.Region, s.deps.Geocoder, s.logger)
		if !ok {
			continue
		}
		markers = append(markers, countyMarker{County: county, ExtractionMCM: g.Value, Lat: geo.Lat, Lon: geo.Lon})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"geocoding": s.deps.Geocoder != nil,
		"counties":  markers,
	})
}

// UploadURL is the form action; it keeps the filters of the page.
func (p mapPage) UploadURL() template.URL {
	q, _ := url.ParseQuery(p.Query)
	q.Del("layer")
	q.Del(idFieldParam)
	return template.URL("/map?" + q.Encode()) //nolint:gosec // query is re-encoded by url.Values
}
