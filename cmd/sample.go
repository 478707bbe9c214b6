package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/pinsaver"
	"github.com/royalcat/rgeopins/region"
	"github.com/urfave/cli/v3"
	"golang.org/x/exp/mmap"
)

type samplingParams struct {
	Count int
	Seed  int64
	Snap  region.SnapConfig
	Batch region.BatchOptions
}

func samplingParamsFromCli(ctx *cli.Context) samplingParams {
	threads := ctx.Int("threads")
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	seed := time.Now().UnixNano()
	if ctx.IsSet("seed") {
		seed = ctx.Int64("seed")
	}

	p := samplingParams{
		Count: ctx.Int("count"),
		Seed:  seed,
		Snap: region.SnapConfig{
			Enabled:     ctx.Float64("snap") > 0,
			GridSizeDeg: ctx.Float64("snap"),
		},
	}
	p.Batch = region.BatchOptions{
		Threads:          threads,
		Seed:             seed,
		AttemptsPerPoint: ctx.Int("attempts"),
		SpacingMeters:    ctx.Float64("spacing"),
		Logger:           slog.Default().With("threads", threads),
	}
	return p
}

func sample(ctx *cli.Context) error {
	stopProfiling, err := startProfiling(ctx)
	if err != nil {
		return err
	}
	defer stopProfiling()

	return runSample(ctx.Context, ctx.String("input"), ctx.String("out"), os.Stdout, samplingParamsFromCli(ctx))
}

// runSample samples every shape of input and writes the pins to out, or to stdout when out is empty.
// Generated pins are never snapped, the snap config is only stored in pin files for later drags.
func runSample(ctx context.Context, input, out string, stdout io.Writer, params samplingParams) error {
	shapes, err := loadShapes(input)
	if err != nil {
		return err
	}

	results := region.SampleBatch(ctx, shapes, params.Count, params.Batch)
	for _, res := range results {
		if res.Err != nil {
			return fmt.Errorf("shape %d: %w", res.Index, res.Err)
		}
		if len(res.Points) < params.Count {
			slog.Warn("Fewer pins than requested", "shape", res.Index, "requested", params.Count, "generated", len(res.Points))
		}
	}

	if out == "" {
		return writeFeatureCollection(stdout, results)
	}
	if isPinFile(out) {
		return savePinFiles(out, shapes, results, params)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	err = writeFeatureCollection(f, results)
	if err != nil {
		return err
	}
	return f.Close()
}

// loadShapes reads a GeoJSON feature collection or a single shape envelope.
func loadShapes(name string) ([]geomodel.Shape, error) {
	data, err := readInput(name)
	if err != nil {
		return nil, err
	}

	if shape, err := geomodel.UnmarshalShape(data); err == nil {
		return []geomodel.Shape{shape}, nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", name, err)
	}
	shapes, err := geomodel.ShapesFromFeatureCollection(fc)
	if err != nil {
		return nil, fmt.Errorf("error reading shapes from %s: %w", name, err)
	}
	if len(shapes) == 0 {
		return nil, fmt.Errorf("no shapes in %s", name)
	}
	return shapes, nil
}

func readInput(name string) ([]byte, error) {
	if strings.HasSuffix(name, ".zst") {
		r, err := pinsaver.OpenReader(name)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}

	file, err := mmap.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(io.NewSectionReader(file, 0, int64(file.Len())))
}

func writeFeatureCollection(w io.Writer, results []region.BatchResult) error {
	fc := geojson.NewFeatureCollection()
	for _, res := range results {
		for _, f := range geomodel.PointsToFeatureCollection(res.Points).Features {
			f.Properties["shape"] = res.Index
			fc.Append(f)
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func isPinFile(name string) bool {
	return strings.HasSuffix(name, ".rgp") || strings.HasSuffix(name, ".zst")
}

// pinFileName numbers the output when more than one shape is saved: pins.rgp.zst -> pins-1.rgp.zst.
func pinFileName(name string, index, total int) string {
	if total <= 1 {
		return name
	}
	dir, base := filepath.Split(name)
	stem, ext, _ := strings.Cut(base, ".")
	if ext != "" {
		ext = "." + ext
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, index, ext))
}

func savePinFiles(name string, shapes []geomodel.Shape, results []region.BatchResult, params samplingParams) error {
	created := time.Now()
	for _, res := range results {
		fileName := pinFileName(name, res.Index, len(results))
		err := pinsaver.SaveToFile(fileName, pinsaver.PinFile{
			Metadata: pinsaver.Metadata{
				DateCreated: created,
				Shape:       geomodel.ShapeJSON{Shape: shapes[res.Index]},
				Snap:        params.Snap,
				Seed:        params.Seed + int64(res.Index),
			},
			Points: res.Points,
		})
		if err != nil {
			return fmt.Errorf("failed to save pins to file %s: %w", fileName, err)
		}
		slog.Info("Pins saved", "file", fileName, "pins", len(res.Points))
	}
	return nil
}
