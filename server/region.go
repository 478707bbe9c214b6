package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/region"
	"github.com/valyala/fasthttp"
)

type shapeRequest struct {
	Shape geomodel.ShapeJSON `json:"shape"`
}

type containsRequest struct {
	Shape  geomodel.ShapeJSON `json:"shape"`
	Points geomodel.PointList `json:"points"`
}

type sampleRequest struct {
	Shape    geomodel.ShapeJSON `json:"shape"`
	Count    *int               `json:"count"`
	Seed     *int64             `json:"seed"`
	SpacingM *float64           `json:"spacing_m"`
}

type batchRequest struct {
	Shapes []geomodel.ShapeJSON `json:"shapes"`
	Count  *int                 `json:"count"`
	Seed   *int64               `json:"seed"`
}

type batchResponseItem struct {
	Points geomodel.PointList `json:"points"`
	Error  string             `json:"error,omitempty"`
}

func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.Request.Body(), v); err != nil {
		writeError(ctx, http.StatusBadRequest, "failed to parse request: "+err.Error())
		return false
	}
	return true
}

func (s *server) BoundsHandler(ctx *fasthttp.RequestCtx) {
	var req shapeRequest
	if !decodeBody(ctx, &req) {
		return
	}

	b, err := region.Bounds(req.Shape.Shape)
	if err != nil {
		s.writeRegionError(ctx, err)
		return
	}

	writeJSON(ctx, http.StatusOK, b)
}

func (s *server) ContainsHandler(ctx *fasthttp.RequestCtx) {
	var req containsRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if req.Shape.Shape == nil {
		writeError(ctx, http.StatusBadRequest, "shape is required")
		return
	}

	res := make([]bool, len(req.Points))
	for i, p := range req.Points {
		res[i] = region.Contains(req.Shape.Shape, p)
	}

	writeJSON(ctx, http.StatusOK, res)
}

func (s *server) SampleHandler(ctx *fasthttp.RequestCtx) {
	var req sampleRequest
	if !decodeBody(ctx, &req) {
		return
	}

	count, err := s.pinCount(req.Count)
	if err != nil {
		writeError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	spacing := s.cfg.Pins.SpreadSpacingM
	if req.SpacingM != nil {
		spacing = *req.SpacingM
	}

	pts, err := s.sample(ctx, req.Shape.Shape, count, req.Seed, spacing)
	if err != nil {
		s.writeRegionError(ctx, err)
		return
	}

	writeJSON(ctx, http.StatusOK, geomodel.PointList(pts))
}

func (s *server) SampleBatchHandler(ctx *fasthttp.RequestCtx) {
	var req batchRequest
	if !decodeBody(ctx, &req) {
		return
	}

	count, err := s.pinCount(req.Count)
	if err != nil {
		writeError(ctx, http.StatusBadRequest, err.Error())
		return
	}

	shapes := make([]geomodel.Shape, len(req.Shapes))
	for i, sh := range req.Shapes {
		shapes[i] = sh.Shape
	}

	results := region.SampleBatch(ctx, shapes, count, region.BatchOptions{
		Seed:             s.seed(req.Seed),
		AttemptsPerPoint: s.cfg.Pins.AttemptsPerPoint,
		SpacingMeters:    s.cfg.Pins.SpreadSpacingM,
		Logger:           s.log,
	})

	writeJSON(ctx, http.StatusOK, s.batchResponse(ctx, count, results))
}

// batchResponse reports every shape separately, only shapes without bounds count as bounds failures.
func (s *server) batchResponse(ctx context.Context, count int, results []region.BatchResult) []batchResponseItem {
	res := make([]batchResponseItem, len(results))
	for i, r := range results {
		if r.Err != nil {
			if errors.Is(r.Err, region.ErrNoBounds) {
				s.metricBoundsFailures.Add(ctx, 1)
			}
			res[i].Error = r.Err.Error()
			res[i].Points = geomodel.PointList{}
			continue
		}
		s.recordSample(ctx, count, len(r.Points))
		res[i].Points = r.Points
	}
	return res
}

func (s *server) SnapHandler(ctx *fasthttp.RequestCtx) {
	p, ok := pathPoint(ctx)
	if !ok {
		return
	}

	snap := s.cfg.Pins.Snap()
	if raw := ctx.QueryArgs().Peek("step"); len(raw) > 0 {
		step, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || !(step > 0) {
			writeError(ctx, http.StatusBadRequest, "step must be a positive number")
			return
		}
		snap = region.SnapConfig{Enabled: true, GridSizeDeg: step}
	}

	writeJSON(ctx, http.StatusOK, snap.Apply(p))
}

func (s *server) pinCount(requested *int) (int, error) {
	if requested == nil {
		return s.cfg.Pins.Count, nil
	}
	if *requested < 0 || *requested > maxSampleCount {
		return 0, fmt.Errorf("count must be in [0, %d]", maxSampleCount)
	}
	return *requested, nil
}

func (s *server) seed(requested *int64) int64 {
	if requested != nil {
		return *requested
	}
	return time.Now().UnixNano()
}

// sample generates pins for a shape, spread sampling is used when spacing is positive.
func (s *server) sample(ctx *fasthttp.RequestCtx, shape geomodel.Shape, count int, seed *int64, spacing float64) ([]geomodel.GeoPoint, error) {
	sampler := region.NewSampler(
		region.WithRand(rand.New(rand.NewSource(s.seed(seed)))),
		region.WithAttemptsPerPoint(s.cfg.Pins.AttemptsPerPoint),
		region.WithLogger(s.log),
	)

	var (
		pts []geomodel.GeoPoint
		err error
	)
	if spacing > 0 {
		pts, err = sampler.SampleSpread(shape, count, spacing)
	} else {
		pts, err = sampler.SampleShape(shape, count)
	}
	if err != nil {
		return nil, err
	}

	s.recordSample(ctx, count, len(pts))
	return pts, nil
}

func (s *server) recordSample(ctx context.Context, requested, accepted int) {
	s.metricPinsGenerated.Add(ctx, int64(accepted))
	if accepted < requested {
		s.metricShortfalls.Add(ctx, 1)
	}
}

func pathPoint(ctx *fasthttp.RequestCtx) (geomodel.GeoPoint, bool) {
	lat, err := strconv.ParseFloat(ctx.UserValue("lat").(string), 64)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		return geomodel.GeoPoint{}, false
	}
	lng, err := strconv.ParseFloat(ctx.UserValue("lng").(string), 64)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		return geomodel.GeoPoint{}, false
	}
	return geomodel.GeoPoint{Lat: lat, Lng: lng}, true
}
