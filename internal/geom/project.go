package geom

import "math"

// LocalProjection maps geographic coordinates onto a local cartesian frame
// in metres, centred on a reference point. Envelope queries need box
// coordinates in the same unit as the neighborhood radius; the projection
// provides that for geographic trajectories, while exact distances are
// still measured with Haversine on the original coordinates.
type LocalProjection struct {
	lat0, lon0 float64
	cosLat0    float64
}

// NewLocalProjection builds a projection centred on the reference
// latitude and longitude, in degrees.
func NewLocalProjection(lat0, lon0 float64) *LocalProjection {
	return &LocalProjection{
		lat0:    lat0,
		lon0:    lon0,
		cosLat0: math.Cos(rad(lat0)),
	}
}

// Project converts a geographic position to local frame metres using an
// equirectangular approximation around the reference point.
func (lp *LocalProjection) Project(lat, lon float64) Point {
	return Point{
		X: EarthRadiusMeters * rad(lon-lp.lon0) * lp.cosLat0,
		Y: EarthRadiusMeters * rad(lat-lp.lat0),
	}
}
