package shapefile

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// Style holds the per-feature values rendered on the map. A non-empty ID
// replaces the feature ID, e.g. when joined on another column.
type Style struct {
	ID    string
	Value float64
	Class string
}

// GeoJSON encodes the layer as a FeatureCollection. styles, when not nil,
// must be parallel to the features and adds "value" and "class" properties.
func (l *Layer) GeoJSON(styles []Style) ([]byte, error) {
	if styles != nil && len(styles) != len(l.Features) {
		return nil, fmt.Errorf("geojson: %d styles for %d features", len(styles), len(l.Features))
	}
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, len(l.Features))}
	for i, f := range l.Features {
		props := make(map[string]interface{}, len(f.Attributes)+3)
		for k, v := range f.Attributes {
			props[k] = v
		}
		id := f.ID
		if styles != nil {
			if styles[i].ID != "" {
				id = styles[i].ID
			}
			props["value"] = styles[i].Value
			props["class"] = styles[i].Class
		}
		props["id"] = id
		fc.Features[i] = &geojson.Feature{ID: id, Geometry: f.Geometry, Properties: props}
	}
	out, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return out, nil
}
