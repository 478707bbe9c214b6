package region

import (
	"log/slog"
	"math/rand"

	"github.com/royalcat/rgeopins/geomodel"
)

// Sampler generates pins inside drawn shapes by rejection sampling over the shape's bounding box.
// A Sampler is not safe for concurrent use, create one per goroutine.
type Sampler struct {
	rnd              *rand.Rand
	attemptsPerPoint int
	logger           *slog.Logger
}

func NewSampler(opts ...Option) *Sampler {
	o := loadOptions(opts...)
	return &Sampler{
		rnd:              o.rnd,
		attemptsPerPoint: o.attemptsPerPoint,
		logger:           o.logger,
	}
}

func (s *Sampler) AttemptsPerPoint() int {
	return s.attemptsPerPoint
}

// Sample draws points uniformly inside bounds and keeps those accepted by shape.
// A nil shape accepts every draw. At most count*AttemptsPerPoint draws are made,
// so the result may hold fewer than count points.
func (s *Sampler) Sample(bounds geomodel.BoundingBox, shape geomodel.Shape, count int) []geomodel.GeoPoint {
	if count <= 0 {
		return []geomodel.GeoPoint{}
	}

	pts := make([]geomodel.GeoPoint, 0, count)
	maxAttempts := count * s.attemptsPerPoint

	attempts := 0
	for len(pts) < count && attempts < maxAttempts {
		attempts++
		p := geomodel.GeoPoint{
			Lat: s.uniform(bounds.SW.Lat, bounds.NE.Lat),
			Lng: s.uniform(bounds.SW.Lng, bounds.NE.Lng),
		}
		if shape == nil || Contains(shape, p) {
			pts = append(pts, p)
		}
	}

	if len(pts) < count {
		s.logger.Debug("sampling attempts exhausted",
			"requested", count,
			"accepted", len(pts),
			"attempts", attempts,
		)
	}

	return pts
}

// SampleShape computes the shape bounds and samples count points inside the shape.
// Rectangles skip the membership test, their bounds are the shape.
func (s *Sampler) SampleShape(shape geomodel.Shape, count int) ([]geomodel.GeoPoint, error) {
	bounds, err := Bounds(shape)
	if err != nil {
		return nil, err
	}
	if _, ok := shape.(geomodel.Rectangle); ok {
		return s.Sample(bounds, nil, count), nil
	}
	return s.Sample(bounds, shape, count), nil
}

func (s *Sampler) uniform(min, max float64) float64 {
	return s.rnd.Float64()*(max-min) + min
}
