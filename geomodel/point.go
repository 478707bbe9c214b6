package geomodel

import (
	"math"

	"github.com/paulmach/orb"
)

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Lat: lat, Lng: lng}
}

// FromOrb converts an orb point (x = longitude, y = latitude).
func FromOrb(p orb.Point) GeoPoint {
	return GeoPoint{Lat: p.Lat(), Lng: p.Lon()}
}

// Point returns the orb representation, longitude first.
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func (p GeoPoint) IsFinite() bool {
	return isFinite(p.Lat) && isFinite(p.Lng)
}

// Valid reports whether the point is finite and inside the lat/lng ranges.
func (p GeoPoint) Valid() bool {
	return p.IsFinite() &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PointList is an ordered sequence of points, e.g. generated pins.
type PointList []GeoPoint
