package region

import (
	"math"

	"github.com/fogleman/poissondisc"
	"github.com/paulmach/orb"
	"github.com/royalcat/rgeopins/geomodel"
)

const (
	// poissonAttempts is the number of neighbours tried around every accepted point.
	poissonAttempts = 30
	// maxSpreadCells caps the poisson background grid, spacing is widened to fit.
	maxSpreadCells = 1 << 20
	minLngScale    = 0.01
)

const metersPerDegree = orb.EarthRadius * math.Pi / 180

// SampleSpread returns up to count points inside the shape that are at least spacingMeters apart.
// Longitudes are scaled by the cosine of the most poleward latitude of the bounds, where a degree
// of longitude is shortest, so the spacing holds across the whole box. Within about half a
// degree of a pole the scale is clamped and the spacing is no longer guaranteed.
// Candidates come from Poisson-disc sampling over the bounds, then they are filtered by
// the shape and shuffled before truncation so the kept pins cover the whole shape.
// A non positive spacing falls back to uniform sampling.
func (s *Sampler) SampleSpread(shape geomodel.Shape, count int, spacingMeters float64) ([]geomodel.GeoPoint, error) {
	bounds, err := Bounds(shape)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return []geomodel.GeoPoint{}, nil
	}
	if spacingMeters <= 0 || bounds.Width() == 0 || bounds.Height() == 0 {
		return s.SampleShape(shape, count)
	}

	// sample in a plane where one unit is one degree of latitude in both directions
	lngScale := math.Max(math.Cos(bounds.MaxAbsLat()*math.Pi/180), minLngScale)
	x0, x1 := bounds.SW.Lng*lngScale, bounds.NE.Lng*lngScale
	y0, y1 := bounds.SW.Lat, bounds.NE.Lat

	r := spacingMeters / metersPerDegree
	if cells := 2 * (x1 - x0) * (y1 - y0) / (r * r); cells > maxSpreadCells {
		widened := math.Sqrt(2 * (x1 - x0) * (y1 - y0) / maxSpreadCells)
		s.logger.Debug("spread spacing widened to bound sampling grid",
			"spacing_m", spacingMeters,
			"widened_m", widened*metersPerDegree,
		)
		r = widened
	}

	candidates := poissondisc.Sample(x0, y0, x1, y1, r, poissonAttempts, s.rnd)

	pts := make([]geomodel.GeoPoint, 0, len(candidates))
	for _, c := range candidates {
		p := geomodel.GeoPoint{Lat: c.Y, Lng: c.X / lngScale}
		if Contains(shape, p) {
			pts = append(pts, p)
		}
	}

	s.rnd.Shuffle(len(pts), func(i, j int) {
		pts[i], pts[j] = pts[j], pts[i]
	})
	if len(pts) > count {
		pts = pts[:count]
	}

	if len(pts) < count {
		s.logger.Debug("spread sampling produced fewer points than requested",
			"requested", count,
			"accepted", len(pts),
			"spacing_m", spacingMeters,
		)
	}

	return pts, nil
}
