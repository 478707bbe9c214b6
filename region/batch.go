package region

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/royalcat/rgeopins/geomodel"
	"github.com/sourcegraph/conc/pool"
)

type BatchOptions struct {
	// Threads limits concurrent samplers, 0 means GOMAXPROCS.
	Threads int
	// Seed of the first shape, shape i is sampled with Seed+i.
	Seed             int64
	AttemptsPerPoint int
	// SpacingMeters switches to spread sampling when positive.
	SpacingMeters float64
	Logger        *slog.Logger
}

type BatchResult struct {
	Index  int
	Points []geomodel.GeoPoint
	Err    error
}

// SampleBatch samples every shape concurrently. Results keep the order of shapes.
// Per shape failures are reported in the result and don't stop the batch.
// Shapes not started before ctx is done report the context error.
func SampleBatch(ctx context.Context, shapes []geomodel.Shape, count int, opts BatchOptions) []BatchResult {
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	results := make([]BatchResult, len(shapes))

	p := pool.New().WithMaxGoroutines(threads)
	for i, shape := range shapes {
		p.Go(func() {
			results[i].Index = i
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}

			sampler := NewSampler(
				WithSeed(opts.Seed+int64(i)),
				WithAttemptsPerPoint(opts.AttemptsPerPoint),
				WithLogger(log.With("shape", i)),
			)

			var (
				pts []geomodel.GeoPoint
				err error
			)
			if opts.SpacingMeters > 0 {
				pts, err = sampler.SampleSpread(shape, count, opts.SpacingMeters)
			} else {
				pts, err = sampler.SampleShape(shape, count)
			}
			results[i].Points = pts
			results[i].Err = err
		})
	}
	p.Wait()

	return results
}
