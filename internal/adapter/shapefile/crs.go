package shapefile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/im7mortal/UTM"
)

// CRS identifies how layer coordinates are converted to longitude/latitude.
type CRS struct {
	Name string
	// Zone is the UTM zone number; zero for geographic coordinates.
	Zone     int
	Northern bool
}

// WGS84 is the geographic CRS assumed when a layer has no .prj file.
var WGS84 = CRS{Name: "EPSG:4326"}

var utmZone = regexp.MustCompile(`(?i)UTM[ _]*zone[ _]*(\d{1,2})\s*([NS])?`)

// ParsePRJ recognizes geographic WGS84 and WGS84 / UTM definitions in a
// .prj WKT string.
func ParsePRJ(wkt string) (CRS, error) {
	text := strings.TrimSpace(wkt)
	upper := strings.ToUpper(text)
	wgs := strings.Contains(upper, "WGS_1984") || strings.Contains(upper, "WGS 84") || strings.Contains(upper, "WGS84")
	if !wgs {
		return CRS{}, fmt.Errorf("%w: %s", ErrUnsupportedCRS, summarize(text))
	}

	switch {
	case strings.HasPrefix(upper, "GEOGCS"):
		return WGS84, nil
	case strings.HasPrefix(upper, "PROJCS"):
		m := utmZone.FindStringSubmatch(text)
		if m == nil {
			return CRS{}, fmt.Errorf("%w: %s", ErrUnsupportedCRS, summarize(text))
		}
		zone, err := strconv.Atoi(m[1])
		if err != nil || zone < 1 || zone > 60 {
			return CRS{}, fmt.Errorf("%w: invalid UTM zone %q", ErrUnsupportedCRS, m[1])
		}
		northern := !strings.EqualFold(m[2], "S")
		hemi := "N"
		if !northern {
			hemi = "S"
		}
		return CRS{Name: fmt.Sprintf("WGS 84 / UTM zone %d%s", zone, hemi), Zone: zone, Northern: northern}, nil
	default:
		return CRS{}, fmt.Errorf("%w: %s", ErrUnsupportedCRS, summarize(text))
	}
}

// ToLonLat converts an x/y pair of the CRS to longitude and latitude.
func (c CRS) ToLonLat(x, y float64) (float64, float64, error) {
	if c.Zone == 0 {
		return x, y, nil
	}
	lat, lon, err := UTM.ToLatLon(x, y, c.Zone, "", c.Northern)
	if err != nil {
		return 0, 0, fmt.Errorf("reproject (%.1f, %.1f) from %s: %w", x, y, c.Name, err)
	}
	return lon, lat, nil
}

func summarize(wkt string) string {
	if i := strings.IndexByte(wkt, ','); i > 0 {
		return wkt[:i]
	}
	return wkt
}
