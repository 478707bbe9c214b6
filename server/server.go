package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdlog "log"
	"log/slog"
	"net/http"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/royalcat/rgeopins/config"
	"github.com/royalcat/rgeopins/pinset"
	"github.com/royalcat/rgeopins/region"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// maxSampleCount caps the pins a single request may ask for.
const maxSampleCount = 10_000

var (
	meter  = otel.Meter("github.com/royalcat/rgeopins/server")
	tracer = otel.Tracer("github.com/royalcat/rgeopins/server")
)

func Run(ctx context.Context, cfg *config.Config, store *pinset.Store) error {
	log := slog.Default()

	s, err := newServer(cfg, store)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	server := &fasthttp.Server{
		ReadTimeout:        cfg.Server.ReadTimeout,
		MaxRequestBodySize: cfg.Server.MaxBodySize,
		Handler:            s.router().Handler,
	}

	go func() {
		log.Info("Server listening", "address", cfg.Server.Listen)
		if err := server.ListenAndServe(cfg.Server.Listen); err != nil && err != http.ErrServerClosed {
			stdlog.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Info("Server started")

	// wait cancel
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}

type server struct {
	cfg   *config.Config
	store *pinset.Store
	log   *slog.Logger

	metricRequests       metric.Int64Counter
	metricPinsGenerated  metric.Int64Counter
	metricShortfalls     metric.Int64Counter
	metricBoundsFailures metric.Int64Counter
}

func newServer(cfg *config.Config, store *pinset.Store) (*server, error) {
	metricRequests, err := meter.Int64Counter("http_requests_total")
	if err != nil {
		return nil, err
	}
	metricPinsGenerated, err := meter.Int64Counter("pins_generated_total")
	if err != nil {
		return nil, err
	}
	metricShortfalls, err := meter.Int64Counter("sampling_shortfall_total")
	if err != nil {
		return nil, err
	}
	metricBoundsFailures, err := meter.Int64Counter("bounds_failures_total")
	if err != nil {
		return nil, err
	}

	return &server{
		cfg:   cfg,
		store: store,
		log:   slog.Default().With("component", "server"),

		metricRequests:       metricRequests,
		metricPinsGenerated:  metricPinsGenerated,
		metricShortfalls:     metricShortfalls,
		metricBoundsFailures: metricBoundsFailures,
	}, nil
}

func (s *server) router() *router.Router {
	r := router.New()

	r.POST("/region/bounds", s.instrument("bounds", s.BoundsHandler))
	r.POST("/region/contains", s.instrument("contains", s.ContainsHandler))
	r.POST("/region/sample", s.instrument("sample", s.SampleHandler))
	r.POST("/region/sample/batch", s.instrument("sample_batch", s.SampleBatchHandler))
	r.GET("/snap/{lat}/{lng}", s.instrument("snap", s.SnapHandler))

	r.POST("/pinsets", s.instrument("pinset_create", s.CreatePinSetHandler))
	r.GET("/pinsets/{id}", s.instrument("pinset_get", s.GetPinSetHandler))
	r.PUT("/pinsets/{id}", s.instrument("pinset_resample", s.ResamplePinSetHandler))
	r.DELETE("/pinsets/{id}", s.instrument("pinset_delete", s.DeletePinSetHandler))
	r.POST("/pinsets/{id}/pins", s.instrument("pin_add", s.AddPinHandler))
	r.DELETE("/pinsets/{id}/pins", s.instrument("pin_clear", s.ClearPinsHandler))
	r.PUT("/pinsets/{id}/pins/{idx}", s.instrument("pin_update", s.UpdatePinHandler))
	r.DELETE("/pinsets/{id}/pins/{idx}", s.instrument("pin_delete", s.DeletePinHandler))
	r.GET("/pinsets/{id}/hit/{lat}/{lng}", s.instrument("pin_hit", s.HitPinHandler))

	r.Handle(http.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	return r
}

// instrument counts requests per route and wraps each one in a span.
func (s *server) instrument(route string, h fasthttp.RequestHandler) fasthttp.RequestHandler {
	routeAttr := attribute.String("route", route)
	attrs := metric.WithAttributes(routeAttr)
	return func(ctx *fasthttp.RequestCtx) {
		s.metricRequests.Add(ctx, 1, attrs)

		_, span := tracer.Start(ctx, route, trace.WithAttributes(routeAttr))
		defer span.End()

		h(ctx)

		status := ctx.Response.StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to marshal response")
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyString(msg)
}

// writeRegionError maps sampling errors to status codes, a shape without bounds is not a server fault.
func (s *server) writeRegionError(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, region.ErrNoBounds) {
		s.metricBoundsFailures.Add(ctx, 1)
		writeError(ctx, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.log.Error("region operation failed", "error", err)
	writeError(ctx, http.StatusInternalServerError, err.Error())
}
