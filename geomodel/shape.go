package geomodel

import (
	"fmt"

	"github.com/paulmach/orb"
)

type ShapeKind uint8

const (
	KindRectangle ShapeKind = iota + 1
	KindCircle
	KindPolygon
)

func (k ShapeKind) String() string {
	switch k {
	case KindRectangle:
		return "rectangle"
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	}
	return fmt.Sprintf("ShapeKind(%d)", uint8(k))
}

func ParseShapeKind(s string) (ShapeKind, error) {
	switch s {
	case "rectangle":
		return KindRectangle, nil
	case "circle":
		return KindCircle, nil
	case "polygon":
		return KindPolygon, nil
	}
	return 0, fmt.Errorf("unknown shape type %q", s)
}

// Shape is a drawn region. Implemented only by Rectangle, Circle and Polygon,
// switch on the concrete type to handle every variant.
type Shape interface {
	Kind() ShapeKind
	shape()
}

type Rectangle struct {
	Bounds BoundingBox
}

type Circle struct {
	Center       GeoPoint
	RadiusMeters float64
}

// Polygon is an open vertex ring, the closing edge from the last vertex back to the first is implied.
type Polygon struct {
	Vertices []GeoPoint
}

var (
	_ Shape = Rectangle{}
	_ Shape = Circle{}
	_ Shape = Polygon{}
)

func (Rectangle) Kind() ShapeKind { return KindRectangle }
func (Circle) Kind() ShapeKind    { return KindCircle }
func (Polygon) Kind() ShapeKind   { return KindPolygon }

func (Rectangle) shape() {}
func (Circle) shape()    {}
func (Polygon) shape()   {}

// Ring returns the vertices as a closed orb ring.
func (p Polygon) Ring() orb.Ring {
	if len(p.Vertices) == 0 {
		return orb.Ring{}
	}
	ring := make(orb.Ring, 0, len(p.Vertices)+1)
	for _, v := range p.Vertices {
		ring = append(ring, v.Point())
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// PolygonFromRing drops the closing vertex of a closed ring.
func PolygonFromRing(r orb.Ring) Polygon {
	if len(r) > 1 && r.Closed() {
		r = r[:len(r)-1]
	}
	vertices := make([]GeoPoint, len(r))
	for i, p := range r {
		vertices[i] = FromOrb(p)
	}
	return Polygon{Vertices: vertices}
}
