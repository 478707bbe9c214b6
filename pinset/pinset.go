package pinset

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/paulmach/orb/geo"
	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/region"
	"github.com/tidwall/qtree"
)

var ErrIndexOutOfRange = errors.New("pin index out of range")

// PinSet is an ordered list of pins, order is the generation order.
// Pins are added by sampling or search, moved by drags and removed by the delete gesture.
type PinSet struct {
	mu   sync.RWMutex
	pins []geomodel.GeoPoint
	snap region.SnapConfig

	// spatial index over pins, rebuilt lazily after mutation
	qt    *qtree.QTree
	dirty bool
}

func New(snap region.SnapConfig, points ...geomodel.GeoPoint) *PinSet {
	return &PinSet{
		pins:  slices.Clone(points),
		snap:  snap,
		dirty: true,
	}
}

func (s *PinSet) SnapConfig() region.SnapConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *PinSet) SetSnapConfig(snap region.SnapConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

func (s *PinSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pins)
}

// Points returns a copy of the pins.
func (s *PinSet) Points() geomodel.PointList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pins)
}

func (s *PinSet) At(i int) (geomodel.GeoPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkIndex(i); err != nil {
		return geomodel.GeoPoint{}, err
	}
	return s.pins[i], nil
}

// Add appends pins, e.g. search results.
func (s *PinSet) Add(points ...geomodel.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins = append(s.pins, points...)
	s.dirty = true
}

// Replace drops all pins and stores points instead, used when a new shape is applied.
func (s *PinSet) Replace(points []geomodel.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins = slices.Clone(points)
	s.dirty = true
}

func (s *PinSet) Clear() {
	s.Replace(nil)
}

// Update moves pin i to p after a drag, snapping it to the grid when snapping is enabled.
// The stored position is returned.
func (s *PinSet) Update(i int, p geomodel.GeoPoint) (geomodel.GeoPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return geomodel.GeoPoint{}, err
	}
	p = s.snap.Apply(p)
	s.pins[i] = p
	s.dirty = true
	return p, nil
}

// Remove deletes pin i, later pins shift down by one.
func (s *PinSet) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.pins = slices.Delete(s.pins, i, i+1)
	s.dirty = true
	return nil
}

// Nearest returns the index of the pin closest to p within toleranceMeters.
func (s *PinSet) Nearest(p geomodel.GeoPoint, toleranceMeters float64) (int, bool) {
	if !p.Valid() || math.IsNaN(toleranceMeters) || toleranceMeters < 0 {
		return -1, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty {
		s.reindex()
	}

	search := geo.NewBoundAroundPoint(p.Point(), toleranceMeters)
	if search.Min.X() > search.Max.X() {
		search.Min[0], search.Max[0] = -180, 180
	}

	best, bestDist := -1, math.Inf(1)
	s.qt.Search(search.Min, search.Max, func(_, _ [2]float64, data interface{}) bool {
		i := data.(int)
		d := geo.DistanceHaversine(p.Point(), s.pins[i].Point())
		if d <= toleranceMeters && (d < bestDist || (d == bestDist && i < best)) {
			best, bestDist = i, d
		}
		return true
	})

	return best, best >= 0
}

func (s *PinSet) reindex() {
	s.qt = &qtree.QTree{}
	for i, p := range s.pins {
		pt := p.Point()
		s.qt.Insert(pt, pt, i)
	}
	s.dirty = false
}

func (s *PinSet) checkIndex(i int) error {
	if i < 0 || i >= len(s.pins) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(s.pins))
	}
	return nil
}
