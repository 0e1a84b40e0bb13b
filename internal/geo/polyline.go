package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/OCAP2/dogfight/pkg/core"
)

// Path converts a sampled projectile trajectory into a lon/lat LineStringZM
// with altitude as Z and the tick as M.
func (o Origin) Path(points []core.TrajectoryPoint) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", len(points))
	}

	flat := make([]float64, 0, len(points)*4)
	for _, p := range points {
		lon, lat, alt := o.ToLonLat(p.Position)
		flat = append(flat, lon, lat, alt, float64(p.Tick))
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZM)), nil
}
