package shapefile

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/textfile"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// DefaultCenter is used when no feature has a usable centroid.
var DefaultCenter = domain.Geo{Lat: 36.0, Lon: 58.0}

// idCandidates are the attribute names tried, in order, as the feature ID.
var idCandidates = []string{"ID", "SUBBASINID", "SUBBASIN_I", "IDENTIFIER", "CODE"}

// Feature is one polygon feature in WGS84 longitude/latitude.
type Feature struct {
	ID         string
	Row        int
	Attributes map[string]string
	Geometry   *geom.MultiPolygon
}

// Layer is a parsed shapefile.
type Layer struct {
	Name     string
	CRS      CRS
	Fields   []string
	IDField  string
	Features []Feature
	Center   domain.Geo
	Warnings []string
}

// ResolveIDField returns field when the layer has it, else the guessed
// ID column.
func (l *Layer) ResolveIDField(field string) string {
	if field != "" && slices.Contains(l.Fields, field) {
		return field
	}
	return l.IDField
}

// FeatureIDs returns the ID of every feature in order, read from field.
// An empty or unknown field uses the guessed ID column.
func (l *Layer) FeatureIDs(field string) []string {
	field = l.ResolveIDField(field)
	ids := make([]string, len(l.Features))
	for i, f := range l.Features {
		if field == l.IDField {
			ids[i] = f.ID
			continue
		}
		ids[i] = featureID(f.Attributes[field], f.Row)
	}
	return ids
}

// featureID normalizes an attribute value, falling back to the row number.
func featureID(value string, row int) string {
	id := domain.NormalizeID(value)
	if id == domain.Unknown {
		return strconv.Itoa(row)
	}
	return id
}

// ReadZip extracts a zipped shapefile to a temporary directory and reads it.
func ReadZip(data []byte, logger *slog.Logger) (*Layer, error) {
	dir, err := os.MkdirTemp("", "shapefile-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name, err := extract(data, dir)
	if err != nil {
		return nil, err
	}
	layer, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	layer.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	for _, w := range layer.Warnings {
		logger.Warn("shapefile warning", "layer", layer.Name, "warning", w)
	}
	return layer, nil
}

func readDir(dir string) (*Layer, error) {
	layer := &Layer{}

	prj, err := os.ReadFile(filepath.Join(dir, layerBase+".prj"))
	switch {
	case errors.Is(err, os.ErrNotExist):
		layer.CRS = WGS84
		layer.Warnings = append(layer.Warnings, "no .prj file, assuming EPSG:4326")
	case err != nil:
		return nil, fmt.Errorf("read .prj: %w", err)
	default:
		if layer.CRS, err = ParsePRJ(string(prj)); err != nil {
			return nil, err
		}
	}

	r, err := shp.Open(filepath.Join(dir, layerBase+".shp"))
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	fields := r.Fields()
	layer.Fields = make([]string, len(fields))
	for i, f := range fields {
		layer.Fields[i] = f.String()
	}
	layer.IDField = GuessIDField(layer.Fields)

	for r.Next() {
		row, shape := r.Shape()
		mp, err := toMultiPolygon(shape, layer.CRS)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", row, err)
		}
		if mp == nil {
			continue
		}

		feat := Feature{Row: row, Geometry: mp, Attributes: make(map[string]string, len(fields))}
		if row < r.AttributeCount() {
			for i, name := range layer.Fields {
				feat.Attributes[name] = decodeAttribute(r.ReadAttribute(row, i))
			}
		}
		feat.ID = featureID(feat.Attributes[layer.IDField], row)
		layer.Features = append(layer.Features, feat)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}

	layer.Center = center(layer.Features)
	return layer, nil
}

// GuessIDField picks the first known ID column, case-insensitively, or the
// first field.
func GuessIDField(fields []string) string {
	for _, want := range idCandidates {
		for _, f := range fields {
			if strings.EqualFold(f, want) {
				return f
			}
		}
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// toMultiPolygon converts a polygon shape, returning nil for null shapes.
// Clockwise rings start a polygon; counter-clockwise rings are holes of
// the preceding one.
func toMultiPolygon(shape shp.Shape, crs CRS) (*geom.MultiPolygon, error) {
	var parts []int32
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, shape)
	}

	var polygons [][][]geom.Coord
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 4 {
			return nil, fmt.Errorf("%w: malformed ring %d", ErrUnsupportedGeometry, i)
		}

		ring := make([]geom.Coord, 0, end-start)
		flat := make([]float64, 0, 2*(end-start))
		for _, p := range points[start:end] {
			lon, lat, err := crs.ToLonLat(p.X, p.Y)
			if err != nil {
				return nil, err
			}
			ring = append(ring, geom.Coord{lon, lat})
			flat = append(flat, lon, lat)
		}

		if len(polygons) == 0 || !xy.IsRingCounterClockwise(geom.XY, flat) {
			polygons = append(polygons, [][]geom.Coord{ring})
			continue
		}
		last := len(polygons) - 1
		polygons[last] = append(polygons[last], ring)
	}
	if len(polygons) == 0 {
		return nil, nil
	}

	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(polygons)
	if err != nil {
		return nil, fmt.Errorf("build geometry: %w", err)
	}
	return mp, nil
}

// center averages the feature centroids.
func center(features []Feature) domain.Geo {
	var lat, lon float64
	var n int
	for _, f := range features {
		c, err := xy.Centroid(f.Geometry)
		if err != nil || len(c) < 2 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			continue
		}
		lon += c[0]
		lat += c[1]
		n++
	}
	if n == 0 {
		return DefaultCenter
	}
	return domain.Geo{Lat: lat / float64(n), Lon: lon / float64(n)}
}

func decodeAttribute(s string) string {
	text, _, err := textfile.Decode([]byte(strings.TrimRight(s, "\x00 ")))
	if err != nil {
		return s
	}
	return strings.TrimSpace(text)
}
