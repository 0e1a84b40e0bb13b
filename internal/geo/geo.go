package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/OCAP2/dogfight/pkg/core"
)

// The world is a flat local frame in metres: x east, z north, y altitude.
// Origin pins that frame to a WGS84 lon/lat. Offsets go through Web Mercator
// (EPSG:3857), scaled by the secant of the origin latitude so a local metre
// stays a ground metre near the origin.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Origin maps local world positions to geodetic coordinates.
type Origin struct {
	Lat float64
	Lon float64

	x0, y0 float64
	scale  float64
}

// NewOrigin validates lat/lon and precomputes the mercator anchor.
func NewOrigin(lat, lon float64) (Origin, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -85 || lat > 85 || lon < -180 || lon > 180 {
		return Origin{}, ErrInvalidCoordinates
	}
	x0, y0, _ := wgs84.EPSG().Transform(4326, 3857)(lon, lat, 0)
	return Origin{
		Lat:   lat,
		Lon:   lon,
		x0:    x0,
		y0:    y0,
		scale: 1 / math.Cos(lat*math.Pi/180),
	}, nil
}

// ToLonLat converts a local position to longitude, latitude and altitude.
func (o Origin) ToLonLat(p core.Position3D) (lon, lat, alt float64) {
	x := o.x0 + p.X*o.scale
	y := o.y0 + p.Z*o.scale
	lon, lat, _ = wgs84.EPSG().Transform(3857, 4326)(x, y, 0)
	return lon, lat, p.Y
}

// FromLonLat is the inverse of ToLonLat.
func (o Origin) FromLonLat(lon, lat, alt float64) core.Position3D {
	x, y, _ := wgs84.EPSG().Transform(4326, 3857)(lon, lat, 0)
	return core.Position3D{
		X: (x - o.x0) / o.scale,
		Y: alt,
		Z: (y - o.y0) / o.scale,
	}
}

// Point returns the position as an XYZ point of lon, lat and altitude.
func (o Origin) Point(p core.Position3D) geom.Point {
	lon, lat, alt := o.ToLonLat(p)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: lon, Y: lat},
		Z:    alt,
		Type: geom.DimXYZ,
	})
}

// ParseLonLat parses a "lon,lat" string, as accepted by the --origin flag.
func ParseLonLat(coords string) (Origin, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return Origin{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Origin{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Origin{}, ErrInvalidCoordinates
	}
	return NewOrigin(lat, lon)
}
