package region

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/royalcat/rgeopins/geomodel"
)

// Bounds returns the tightest axis aligned box around the shape.
func Bounds(shape geomodel.Shape) (geomodel.BoundingBox, error) {
	switch s := shape.(type) {
	case geomodel.Rectangle:
		return rectangleBounds(s)
	case geomodel.Circle:
		return circleBounds(s)
	case geomodel.Polygon:
		return polygonBounds(s)
	case nil:
		return geomodel.BoundingBox{}, noBounds(0, "shape is nil")
	}
	return geomodel.BoundingBox{}, noBounds(shape.Kind(), "unsupported shape")
}

func rectangleBounds(r geomodel.Rectangle) (geomodel.BoundingBox, error) {
	b := r.Bounds
	if b.Valid() {
		return b, nil
	}
	switch {
	case !b.SW.IsFinite() || !b.NE.IsFinite():
		return geomodel.BoundingBox{}, noBounds(geomodel.KindRectangle, "corner is not finite")
	case b.SW.Lat > b.NE.Lat:
		return geomodel.BoundingBox{}, noBounds(geomodel.KindRectangle, "south west corner is north of north east corner")
	}
	return geomodel.BoundingBox{}, noBounds(geomodel.KindRectangle, "south west corner is east of north east corner")
}

// circleBounds pads the center by the radius of great circle distance in every direction.
// A box crossing the antimeridian is widened to the full longitude range, it still encloses the circle.
func circleBounds(c geomodel.Circle) (geomodel.BoundingBox, error) {
	if !c.Center.Valid() {
		return geomodel.BoundingBox{}, noBounds(geomodel.KindCircle, "center is not a valid coordinate")
	}
	if math.IsNaN(c.RadiusMeters) || math.IsInf(c.RadiusMeters, 0) || c.RadiusMeters < 0 {
		return geomodel.BoundingBox{}, noBounds(geomodel.KindCircle, "radius must be a finite non negative number")
	}

	b := geo.NewBoundAroundPoint(c.Center.Point(), c.RadiusMeters)
	if b.Min.X() > b.Max.X() || b.Min.X() < -180 || b.Max.X() > 180 {
		b.Min[0], b.Max[0] = -180, 180
	}
	b.Min[1] = math.Max(b.Min.Y(), -90)
	b.Max[1] = math.Min(b.Max.Y(), 90)

	return geomodel.BoundingBoxFromOrb(b), nil
}

func polygonBounds(p geomodel.Polygon) (geomodel.BoundingBox, error) {
	if len(p.Vertices) < 3 {
		return geomodel.BoundingBox{}, noBounds(geomodel.KindPolygon, "polygon needs at least 3 vertices")
	}

	distinct := make(map[orb.Point]struct{}, len(p.Vertices))
	for _, v := range p.Vertices {
		if !v.IsFinite() {
			return geomodel.BoundingBox{}, noBounds(geomodel.KindPolygon, "vertex is not finite")
		}
		distinct[v.Point()] = struct{}{}
	}
	if len(distinct) < 3 {
		return geomodel.BoundingBox{}, noBounds(geomodel.KindPolygon, "polygon needs at least 3 distinct vertices")
	}

	return geomodel.BoundingBoxFromOrb(p.Ring().Bound()), nil
}
