package geomodel

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	propShape  = "shape"
	propRadius = "radius"
	propIndex  = "index"
)

// ShapeFromFeature reads a drawn shape from a GeoJSON feature.
//
// Polygons use their outer ring, a "shape":"rectangle" property turns the polygon
// into its bounding rectangle. Circles are points with a numeric "radius" property in metres.
func ShapeFromFeature(f *geojson.Feature) (Shape, error) {
	if f == nil || f.Geometry == nil {
		return nil, fmt.Errorf("feature has no geometry")
	}

	switch g := f.Geometry.(type) {
	case orb.Bound:
		return Rectangle{Bounds: BoundingBoxFromOrb(g)}, nil
	case orb.Polygon:
		if len(g) == 0 {
			return nil, fmt.Errorf("polygon feature has no rings")
		}
		if f.Properties.MustString(propShape, "") == KindRectangle.String() {
			return Rectangle{Bounds: BoundingBoxFromOrb(g.Bound())}, nil
		}
		return PolygonFromRing(g[0]), nil
	case orb.Ring:
		return PolygonFromRing(g), nil
	case orb.Point:
		radius, ok := f.Properties[propRadius].(float64)
		if !ok {
			return nil, fmt.Errorf("point feature requires a numeric %q property", propRadius)
		}
		return Circle{Center: FromOrb(g), RadiusMeters: radius}, nil
	}

	return nil, fmt.Errorf("unsupported geometry type %s", f.Geometry.GeoJSONType())
}

func ShapesFromFeatureCollection(fc *geojson.FeatureCollection) ([]Shape, error) {
	shapes := make([]Shape, 0, len(fc.Features))
	for i, f := range fc.Features {
		s, err := ShapeFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		shapes = append(shapes, s)
	}
	return shapes, nil
}

// ShapeToFeature is the inverse of ShapeFromFeature.
func ShapeToFeature(shape Shape) *geojson.Feature {
	switch s := shape.(type) {
	case Rectangle:
		f := geojson.NewFeature(s.Bounds.Bound().ToPolygon())
		f.Properties[propShape] = KindRectangle.String()
		return f
	case Circle:
		f := geojson.NewFeature(s.Center.Point())
		f.Properties[propShape] = KindCircle.String()
		f.Properties[propRadius] = s.RadiusMeters
		return f
	case Polygon:
		f := geojson.NewFeature(orb.Polygon{s.Ring()})
		f.Properties[propShape] = KindPolygon.String()
		return f
	}
	return nil
}

// PointsToFeatureCollection renders pins as Point features keeping their order in an "index" property.
func PointsToFeatureCollection(points PointList) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, p := range points {
		f := geojson.NewFeature(p.Point())
		f.Properties[propIndex] = i
		fc.Append(f)
	}
	return fc
}
