package region

import (
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/rgeopins/geomodel"
)

// Contains reports whether point lies within shape. Boundaries are inclusive for every shape kind.
// Membership for self-intersecting polygons follows the even-odd rule of ray casting.
func Contains(shape geomodel.Shape, point geomodel.GeoPoint) bool {
	switch s := shape.(type) {
	case geomodel.Rectangle:
		return s.Bounds.Contains(point)
	case geomodel.Circle:
		return geo.DistanceHaversine(s.Center.Point(), point.Point()) <= s.RadiusMeters
	case geomodel.Polygon:
		if len(s.Vertices) < 3 {
			return false
		}
		return planar.RingContains(s.Ring(), point.Point())
	}
	return false
}

// Filter keeps the points contained by the shape, order is preserved.
func Filter(shape geomodel.Shape, points []geomodel.GeoPoint) []geomodel.GeoPoint {
	out := make([]geomodel.GeoPoint, 0, len(points))
	for _, p := range points {
		if Contains(shape, p) {
			out = append(out, p)
		}
	}
	return out
}
