package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/cheggaaa/pb/v3/termutil"
	"github.com/dustin/go-humanize"
	"github.com/royalcat/rgeopins/internal/stats"
	"github.com/royalcat/rgeopins/region"
	"github.com/urfave/cli/v3"
)

func bench(ctx *cli.Context) error {
	stopProfiling, err := startProfiling(ctx)
	if err != nil {
		return err
	}
	defer stopProfiling()

	params := samplingParamsFromCli(ctx)
	shapes, err := loadShapes(ctx.String("input"))
	if err != nil {
		return err
	}

	iterations := ctx.Int("iterations")
	if iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", iterations)
	}

	collector, err := stats.NewCollector(ctx.Duration("interval"))
	if err != nil {
		return err
	}

	bar := pb.Start64(int64(iterations))
	bar.Set("prefix", "sampling")
	bar.SetRefreshRate(time.Second)
	if w, err := termutil.TerminalWidth(); w == 0 || err != nil {
		bar.SetTemplateString(`{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}` + "\n")
	}

	var generated, shortfalls int64
	collector.Start()
	for i := 0; i < iterations; i++ {
		if err := ctx.Context.Err(); err != nil {
			break
		}
		opts := params.Batch
		opts.Seed = params.Seed + int64(i*len(shapes))
		for _, res := range region.SampleBatch(ctx.Context, shapes, params.Count, opts) {
			if res.Err != nil {
				bar.Finish()
				collector.Stop()
				return fmt.Errorf("shape %d: %w", res.Index, res.Err)
			}
			generated += int64(len(res.Points))
			if len(res.Points) < params.Count {
				shortfalls++
			}
		}
		bar.Increment()
	}
	runtimeStats := collector.Stop()
	bar.Finish()

	fmt.Printf("Shapes:           %d\n", len(shapes))
	fmt.Printf("Pins generated:   %s\n", humanize.Comma(generated))
	fmt.Printf("Short batches:    %s\n", humanize.Comma(shortfalls))
	if secs := runtimeStats.TotalElapsed.Seconds(); secs > 0 {
		fmt.Printf("Pins per second:  %s\n", humanize.CommafWithDigits(float64(generated)/secs, 0))
	}
	return runtimeStats.WriteReport(os.Stdout)
}
