// Package shapefile reads zipped ESRI shapefiles uploaded for the
// choropleth map and converts their polygons to WGS84 GeoJSON.
package shapefile

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrNotZip              = errors.New("upload is not a zip archive")
	ErrNoShapefile         = errors.New("archive contains no .shp file")
	ErrUnsafePath          = errors.New("archive entry escapes the extraction directory")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrUnsupportedCRS      = errors.New("unsupported coordinate reference system")
)

// layerBase is the file stem every extracted sidecar is renamed to.
const layerBase = "layer"

// maxEntryBytes bounds a single extracted file.
const maxEntryBytes = 256 << 20

// sidecars are the companion files read next to the .shp.
var sidecars = []string{".shp", ".shx", ".dbf", ".prj", ".cpg"}

// extract writes the first .shp of the archive and its sidecar files into
// dir as layer.<ext> and returns the original .shp name.
func extract(data []byte, dir string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotZip, err)
	}

	var shpName string
	for _, f := range zr.File {
		if err := checkEntry(f.Name); err != nil {
			return "", err
		}
		if shpName == "" && !f.FileInfo().IsDir() && strings.EqualFold(path.Ext(f.Name), ".shp") {
			shpName = f.Name
		}
	}
	if shpName == "" {
		return "", ErrNoShapefile
	}

	stem := strings.TrimSuffix(shpName, path.Ext(shpName))
	for _, f := range zr.File {
		ext := strings.ToLower(path.Ext(f.Name))
		if !slices.Contains(sidecars, ext) || !strings.EqualFold(strings.TrimSuffix(f.Name, path.Ext(f.Name)), stem) {
			continue
		}
		if err := extractFile(f, filepath.Join(dir, layerBase+ext)); err != nil {
			return "", err
		}
	}
	return shpName, nil
}

// checkEntry rejects absolute names and names climbing out of the archive root.
func checkEntry(name string) error {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || filepath.VolumeName(name) != "" {
		return fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if n > maxEntryBytes {
		out.Close()
		return fmt.Errorf("extract %s: entry larger than %d bytes", f.Name, maxEntryBytes)
	}
	return out.Close()
}
