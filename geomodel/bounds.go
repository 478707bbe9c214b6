package geomodel

import (
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox is an axis aligned lat/lng envelope.
// Longitude wraparound across the antimeridian is not represented, SW.Lng <= NE.Lng is assumed.
type BoundingBox struct {
	SW GeoPoint `json:"sw"`
	NE GeoPoint `json:"ne"`
}

func NewBoundingBox(sw, ne GeoPoint) BoundingBox {
	return BoundingBox{SW: sw, NE: ne}
}

func BoundingBoxFromOrb(b orb.Bound) BoundingBox {
	return BoundingBox{SW: FromOrb(b.Min), NE: FromOrb(b.Max)}
}

func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: b.SW.Point(), Max: b.NE.Point()}
}

// Contains is inclusive of the edges.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.SW.Lat && p.Lat <= b.NE.Lat &&
		p.Lng >= b.SW.Lng && p.Lng <= b.NE.Lng
}

// Width in degrees of longitude.
func (b BoundingBox) Width() float64 {
	return b.NE.Lng - b.SW.Lng
}

// Height in degrees of latitude.
func (b BoundingBox) Height() float64 {
	return b.NE.Lat - b.SW.Lat
}

// MaxAbsLat is the latitude of the edge closest to a pole, in absolute degrees.
func (b BoundingBox) MaxAbsLat() float64 {
	return math.Max(math.Abs(b.SW.Lat), math.Abs(b.NE.Lat))
}

// Valid reports whether both corners are finite and the box is not inverted.
func (b BoundingBox) Valid() bool {
	return b.SW.IsFinite() && b.NE.IsFinite() &&
		b.SW.Lat <= b.NE.Lat && b.SW.Lng <= b.NE.Lng
}
