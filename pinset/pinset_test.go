package pinset_test

import (
	"sync"
	"testing"

	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/pinset"
	"github.com/royalcat/rgeopins/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	a = geomodel.GeoPoint{Lat: 39.7392, Lng: -104.9903}
	b = geomodel.GeoPoint{Lat: 39.7400, Lng: -104.9800}
	c = geomodel.GeoPoint{Lat: 39.7500, Lng: -104.9700}
)

func TestPinSetOrder(t *testing.T) {
	set := pinset.New(region.DefaultSnapConfig(), a, b)
	set.Add(c)

	assert.Equal(t, geomodel.PointList{a, b, c}, set.Points())
	assert.Equal(t, 3, set.Len())

	p, err := set.At(1)
	require.NoError(t, err)
	assert.Equal(t, b, p)
}

func TestPinSetPointsIsCopy(t *testing.T) {
	set := pinset.New(region.DefaultSnapConfig(), a)
	pts := set.Points()
	pts[0] = c

	p, _ := set.At(0)
	assert.Equal(t, a, p)
}

func TestPinSetUpdate(t *testing.T) {
	dragged := geomodel.GeoPoint{Lat: 39.73921, Lng: -104.99031}

	t.Run("snapping disabled", func(t *testing.T) {
		set := pinset.New(region.DefaultSnapConfig(), a, b)
		got, err := set.Update(1, dragged)
		require.NoError(t, err)
		assert.Equal(t, dragged, got)
		assert.Equal(t, geomodel.PointList{a, dragged}, set.Points())
	})

	t.Run("snapping enabled", func(t *testing.T) {
		set := pinset.New(region.SnapConfig{Enabled: true, GridSizeDeg: 0.001}, a, b)
		got, err := set.Update(0, dragged)
		require.NoError(t, err)
		assert.InDelta(t, 39.739, got.Lat, 1e-12)
		assert.InDelta(t, -104.99, got.Lng, 1e-12)

		stored, _ := set.At(0)
		assert.Equal(t, got, stored)
	})

	t.Run("out of range", func(t *testing.T) {
		set := pinset.New(region.DefaultSnapConfig(), a)
		_, err := set.Update(1, dragged)
		assert.ErrorIs(t, err, pinset.ErrIndexOutOfRange)
		_, err = set.Update(-1, dragged)
		assert.ErrorIs(t, err, pinset.ErrIndexOutOfRange)
	})
}

func TestPinSetRemove(t *testing.T) {
	set := pinset.New(region.DefaultSnapConfig(), a, b, c)

	require.NoError(t, set.Remove(1))
	assert.Equal(t, geomodel.PointList{a, c}, set.Points())

	assert.ErrorIs(t, set.Remove(2), pinset.ErrIndexOutOfRange)

	set.Clear()
	assert.Zero(t, set.Len())
}

func TestPinSetReplace(t *testing.T) {
	set := pinset.New(region.DefaultSnapConfig(), a)
	set.Replace([]geomodel.GeoPoint{b, c})
	assert.Equal(t, geomodel.PointList{b, c}, set.Points())
}

func TestPinSetNearest(t *testing.T) {
	set := pinset.New(region.DefaultSnapConfig(), a, b, c)

	i, ok := set.Nearest(geomodel.GeoPoint{Lat: 39.7401, Lng: -104.9801}, 50)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = set.Nearest(geomodel.GeoPoint{Lat: 39.80, Lng: -104.90}, 50)
	assert.False(t, ok)

	// index follows mutations
	require.NoError(t, set.Remove(0))
	i, ok = set.Nearest(c, 1)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, err := set.Update(1, a)
	require.NoError(t, err)
	i, ok = set.Nearest(a, 1)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = set.Nearest(a, -1)
	assert.False(t, ok)
}

func TestPinSetConcurrentAccess(t *testing.T) {
	set := pinset.New(region.DefaultSnapConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				set.Add(a)
				set.Nearest(a, 10)
				_ = set.Points()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, set.Len())
}
