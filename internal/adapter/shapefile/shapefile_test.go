package shapefile

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utm40N = `PROJCS["WGS_1984_UTM_Zone_40N",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["Central_Meridian",57.0],UNIT["Meter",1.0]]`

const geographic = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// square returns a clockwise ring with its lower left corner at x, y.
func square(x, y, size float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + size}, {X: x + size, Y: y + size}, {X: x + size, Y: y}, {X: x, Y: y}}
}

type testFeature struct {
	id    string
	name  string
	rings [][]shp.Point
}

// writeShapefile writes a polygon layer and returns the paths of its files
// keyed by extension.
func writeShapefile(t *testing.T, geometry shp.ShapeType, features []testFeature) map[string]string {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "sub")

	w, err := shp.Create(base+".shp", geometry)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("SubbasinID", 10), shp.StringField("NAME", 20)}))
	for _, f := range features {
		var row int32
		if geometry == shp.POINT {
			row = w.Write(&f.rings[0][0])
		} else {
			poly := shp.Polygon(*shp.NewPolyLine(f.rings))
			row = w.Write(&poly)
		}
		require.NoError(t, w.WriteAttribute(int(row), 0, f.id))
		require.NoError(t, w.WriteAttribute(int(row), 1, f.name))
	}
	w.Close()

	// The writer names the attribute table without a dot before the extension.
	return map[string]string{".shp": base + ".shp", ".shx": base + ".shx", ".dbf": base + "dbf"}
}

// zipLayer packs the files under stem, adding a .prj when prj is not empty.
func zipLayer(t *testing.T, stem string, files map[string]string, prj string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for ext, path := range files {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		w, err := zw.Create(stem + ext)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	if prj != "" {
		w, err := zw.Create(stem + ".prj")
		require.NoError(t, err)
		_, err = w.Write([]byte(prj))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func twoSubbasins(t *testing.T) map[string]string {
	return writeShapefile(t, shp.POLYGON, []testFeature{
		{id: "12", name: "مشهد", rings: [][]shp.Point{square(58, 36, 1)}},
		{id: "14.0", name: "سرخس", rings: [][]shp.Point{square(59, 36, 1)}},
	})
}

func TestReadZip_Geographic(t *testing.T) {
	data := zipLayer(t, "layers/Subbasins", twoSubbasins(t), geographic)

	layer, err := ReadZip(data, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "Subbasins", layer.Name)
	assert.Equal(t, WGS84, layer.CRS)
	assert.Equal(t, []string{"SubbasinID", "NAME"}, layer.Fields)
	assert.Equal(t, "SubbasinID", layer.IDField)
	assert.Equal(t, []string{"12", "14"}, layer.FeatureIDs(""))
	assert.Equal(t, "مشهد", layer.Features[0].Attributes["NAME"])
	assert.Empty(t, layer.Warnings)

	assert.InDelta(t, 36.5, layer.Center.Lat, 1e-9)
	assert.InDelta(t, 59.0, layer.Center.Lon, 1e-9)
}

func TestReadZip_UppercaseExtensionsWithoutPRJ(t *testing.T) {
	files := twoSubbasins(t)
	upper := map[string]string{".SHP": files[".shp"], ".SHX": files[".shx"], ".DBF": files[".dbf"]}
	data := zipLayer(t, "SUB", upper, "")

	layer, err := ReadZip(data, discardLogger())
	require.NoError(t, err)
	assert.Len(t, layer.Features, 2)
	assert.Equal(t, WGS84, layer.CRS)
	assert.Equal(t, []string{"no .prj file, assuming EPSG:4326"}, layer.Warnings)
}

func TestReadZip_UTM(t *testing.T) {
	files := writeShapefile(t, shp.POLYGON, []testFeature{
		{id: "7", rings: [][]shp.Point{square(700000, 4000000, 10000)}},
	})
	layer, err := ReadZip(zipLayer(t, "utm", files, utm40N), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 40, layer.CRS.Zone)
	assert.True(t, layer.CRS.Northern)
	assert.InDelta(t, 36.2, layer.Center.Lat, 0.3)
	assert.InDelta(t, 59.3, layer.Center.Lon, 0.3)
}

func TestReadZip_HoleJoinsPrecedingPolygon(t *testing.T) {
	hole := []shp.Point{{X: 58.2, Y: 36.2}, {X: 58.4, Y: 36.2}, {X: 58.4, Y: 36.4}, {X: 58.2, Y: 36.4}, {X: 58.2, Y: 36.2}}
	files := writeShapefile(t, shp.POLYGON, []testFeature{
		{id: "1", rings: [][]shp.Point{square(58, 36, 1), hole, square(60, 36, 1)}},
	})
	layer, err := ReadZip(zipLayer(t, "holes", files, geographic), discardLogger())
	require.NoError(t, err)

	require.Len(t, layer.Features, 1)
	mp := layer.Features[0].Geometry
	require.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.Equal(t, 1, mp.Polygon(1).NumLinearRings())
}

func TestReadZip_Errors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := ReadZip([]byte("plain text"), discardLogger())
		assert.ErrorIs(t, err, ErrNotZip)
	})

	t.Run("no shp", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("readme.txt")
		require.NoError(t, err)
		_, _ = w.Write([]byte("hello"))
		require.NoError(t, zw.Close())

		_, err = ReadZip(buf.Bytes(), discardLogger())
		assert.ErrorIs(t, err, ErrNoShapefile)
	})

	t.Run("zip slip", func(t *testing.T) {
		data := zipLayer(t, "../../escape", twoSubbasins(t), "")
		_, err := ReadZip(data, discardLogger())
		assert.ErrorIs(t, err, ErrUnsafePath)
	})

	t.Run("points", func(t *testing.T) {
		files := writeShapefile(t, shp.POINT, []testFeature{
			{id: "1", rings: [][]shp.Point{{{X: 58, Y: 36}}}},
		})
		_, err := ReadZip(zipLayer(t, "pts", files, geographic), discardLogger())
		assert.ErrorIs(t, err, ErrUnsupportedGeometry)
	})

	t.Run("unsupported crs", func(t *testing.T) {
		prj := `PROJCS["NAD_1983_Lambert",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983"]]]`
		_, err := ReadZip(zipLayer(t, "lcc", twoSubbasins(t), prj), discardLogger())
		assert.ErrorIs(t, err, ErrUnsupportedCRS)
	})
}

func TestParsePRJ(t *testing.T) {
	crs, err := ParsePRJ(geographic)
	require.NoError(t, err)
	assert.Equal(t, WGS84, crs)

	crs, err = ParsePRJ(`PROJCS["WGS 84 / UTM zone 41S",GEOGCS["WGS 84"]]`)
	require.NoError(t, err)
	assert.Equal(t, CRS{Name: "WGS 84 / UTM zone 41S", Zone: 41, Northern: false}, crs)

	_, err = ParsePRJ(`PROJCS["WGS_1984_Web_Mercator",GEOGCS["GCS_WGS_1984"]]`)
	assert.ErrorIs(t, err, ErrUnsupportedCRS)
}

func TestGuessIDField(t *testing.T) {
	assert.Equal(t, "subbasin_i", GuessIDField([]string{"NAME", "subbasin_i"}))
	assert.Equal(t, "Id", GuessIDField([]string{"CODE", "Id"}))
	assert.Equal(t, "NAME", GuessIDField([]string{"NAME", "AREA"}))
	assert.Empty(t, GuessIDField(nil))
}

func TestLayer_FeatureIDsFromField(t *testing.T) {
	layer, err := ReadZip(zipLayer(t, "sub", twoSubbasins(t), geographic), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "NAME", layer.ResolveIDField("NAME"))
	assert.Equal(t, "SubbasinID", layer.ResolveIDField("MISSING"))
	assert.Equal(t, "SubbasinID", layer.ResolveIDField(""))

	assert.Equal(t, []string{"مشهد", "سرخس"}, layer.FeatureIDs("NAME"))
	assert.Equal(t, []string{"12", "14"}, layer.FeatureIDs("MISSING"))
}

func TestLayer_GeoJSON(t *testing.T) {
	layer, err := ReadZip(zipLayer(t, "sub", twoSubbasins(t), geographic), discardLogger())
	require.NoError(t, err)

	out, err := layer.GeoJSON([]Style{{Value: 6, Class: "Class 1"}, {Value: 0, Class: "No extraction"}})
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(out, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "12", fc.Features[0].ID)
	assert.Equal(t, "MultiPolygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Class 1", fc.Features[0].Properties["class"])
	assert.InDelta(t, 6.0, fc.Features[0].Properties["value"], 1e-9)

	out, err = layer.GeoJSON([]Style{{ID: "مشهد"}, {ID: "سرخس"}})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &fc))
	assert.Equal(t, "مشهد", fc.Features[0].ID)
	assert.Equal(t, "مشهد", fc.Features[0].Properties["id"])

	_, err = layer.GeoJSON([]Style{{}})
	assert.Error(t, err)
}

func TestCache_Load(t *testing.T) {
	data := zipLayer(t, "sub", twoSubbasins(t), geographic)
	c := NewCache(2, discardLogger())

	first, key, err := c.Load(data)
	require.NoError(t, err)
	second, key2, err := c.Load(data)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, key, key2)
	got, ok := c.Get(key)
	assert.True(t, ok)
	assert.Same(t, first, got)

	_, _, err = c.Load([]byte("nope"))
	assert.ErrorIs(t, err, ErrNotZip)
}
