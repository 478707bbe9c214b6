package region_test

import (
	"math"
	"testing"

	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/region"
	"github.com/stretchr/testify/assert"
)

func TestSnap(t *testing.T) {
	got := region.Snap(geomodel.GeoPoint{Lat: 39.73921, Lng: -104.99031}, 0.001)
	assert.InDelta(t, 39.739, got.Lat, 1e-12)
	assert.InDelta(t, -104.99, got.Lng, 1e-12)
}

func TestSnapIdentity(t *testing.T) {
	p := geomodel.GeoPoint{Lat: 39.73921, Lng: -104.99031}

	assert.Equal(t, p, region.Snap(p, 0))
	assert.Equal(t, p, region.Snap(p, -0.001))
	assert.Equal(t, p, region.Snap(p, math.NaN()))

	inf := geomodel.GeoPoint{Lat: math.Inf(1), Lng: 1}
	assert.Equal(t, inf, region.Snap(inf, 0.001))
}

func TestSnapConfig(t *testing.T) {
	p := geomodel.GeoPoint{Lat: 39.73921, Lng: -104.99031}

	assert.Equal(t, p, region.DefaultSnapConfig().Apply(p), "snapping is off by default")
	assert.Equal(t, p, region.SnapConfig{Enabled: true, GridSizeDeg: 0}.Apply(p))
	assert.Equal(t, p, region.SnapConfig{Enabled: false, GridSizeDeg: 0.01}.Apply(p))

	on := region.SnapConfig{Enabled: true, GridSizeDeg: 0.001}
	assert.True(t, on.Active())
	assert.Equal(t, region.Snap(p, 0.001), on.Apply(p))
}

func FuzzSnapIdempotent(f *testing.F) {
	f.Add(39.73921, -104.99031, 0.001)
	f.Add(-89.99999, 179.99999, 0.5)
	f.Add(0.0, 0.0, 1e-6)

	f.Fuzz(func(t *testing.T, lat, lng, step float64) {
		if math.IsNaN(lat) || math.IsNaN(lng) || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
			t.Skip()
		}
		if !(step >= 1e-9) || step > 360 {
			t.Skip()
		}

		p := geomodel.GeoPoint{Lat: lat, Lng: lng}
		once := region.Snap(p, step)
		twice := region.Snap(once, step)
		if once != twice {
			t.Fatalf("snap is not idempotent: %+v -> %+v -> %+v", p, once, twice)
		}
	})
}
