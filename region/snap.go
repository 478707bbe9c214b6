package region

import (
	"math"

	"github.com/royalcat/rgeopins/geomodel"
)

// DefaultGridSizeDeg is roughly 100m of latitude.
const DefaultGridSizeDeg = 0.001

// Snap rounds both coordinates to the nearest multiple of stepDeg.
// Non positive steps and non finite inputs are returned unchanged.
func Snap(p geomodel.GeoPoint, stepDeg float64) geomodel.GeoPoint {
	if !(stepDeg > 0) || math.IsInf(stepDeg, 0) || !p.IsFinite() {
		return p
	}
	return geomodel.GeoPoint{
		Lat: snapValue(p.Lat, stepDeg),
		Lng: snapValue(p.Lng, stepDeg),
	}
}

func snapValue(v, step float64) float64 {
	return math.Round(v/step) * step
}

// SnapConfig controls grid snapping of pins after a drag.
type SnapConfig struct {
	Enabled     bool    `json:"enabled"`
	GridSizeDeg float64 `json:"grid_size_deg"`
}

func DefaultSnapConfig() SnapConfig {
	return SnapConfig{
		Enabled:     false,
		GridSizeDeg: DefaultGridSizeDeg,
	}
}

func (c SnapConfig) Active() bool {
	return c.Enabled && c.GridSizeDeg > 0
}

// Apply snaps p when snapping is active, otherwise p is returned untouched.
func (c SnapConfig) Apply(p geomodel.GeoPoint) geomodel.GeoPoint {
	if !c.Active() {
		return p
	}
	return Snap(p, c.GridSizeDeg)
}
