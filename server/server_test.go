package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geo"
	"github.com/royalcat/rgeopins/config"
	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/pinset"
	"github.com/royalcat/rgeopins/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	circleJSON    = `{"type":"circle","center":{"lat":39.7392,"lng":-104.9903},"radius":1000}`
	rectangleJSON = `{"type":"rectangle","sw":{"lat":39.70,"lng":-105.00},"ne":{"lat":39.78,"lng":-104.95}}`
	badPolyJSON   = `{"type":"polygon","vertices":[{"lat":0,"lng":0},{"lat":1,"lng":1}]}`
)

var denver = geomodel.GeoPoint{Lat: 39.7392, Lng: -104.9903}

func testServer(t testing.TB, mutate func(cfg *config.Config)) *server {
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	s, err := newServer(cfg, pinset.NewStore())
	require.NoError(t, err)
	return s
}

func do(s *server, method, uri, body string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != "" {
		req.SetBodyString(body)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	s.router().Handler(ctx)
	return ctx
}

func TestBoundsHandler(t *testing.T) {
	s := testServer(t, nil)

	ctx := do(s, http.MethodPost, "/region/bounds", `{"shape":`+rectangleJSON+`}`)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))

	var b geomodel.BoundingBox
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &b))
	assert.Equal(t, geomodel.GeoPoint{Lat: 39.70, Lng: -105.00}, b.SW)
	assert.Equal(t, geomodel.GeoPoint{Lat: 39.78, Lng: -104.95}, b.NE)

	ctx = do(s, http.MethodPost, "/region/bounds", `{"shape":`+badPolyJSON+`}`)
	assert.Equal(t, http.StatusUnprocessableEntity, ctx.Response.StatusCode())

	ctx = do(s, http.MethodPost, "/region/bounds", `{"shape":{"type":"hexagon"}}`)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
}

func TestContainsHandler(t *testing.T) {
	s := testServer(t, nil)

	ctx := do(s, http.MethodPost, "/region/contains",
		`{"shape":`+circleJSON+`,"points":[{"lat":39.7392,"lng":-104.9903},{"lat":40,"lng":-104}]}`)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))

	var res []bool
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
	assert.Equal(t, []bool{true, false}, res)
}

func TestSampleHandler(t *testing.T) {
	s := testServer(t, nil)

	ctx := do(s, http.MethodPost, "/region/sample", `{"shape":`+circleJSON+`,"seed":1}`)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))

	var pts geomodel.PointList
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &pts))
	assert.LessOrEqual(t, len(pts), config.DefaultPinCount)
	assert.NotEmpty(t, pts)
	for _, p := range pts {
		assert.LessOrEqual(t, geo.DistanceHaversine(denver.Point(), p.Point()), 1000.0)
	}

	ctx = do(s, http.MethodPost, "/region/sample", `{"shape":`+rectangleJSON+`,"count":0}`)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "[]", string(ctx.Response.Body()))

	ctx = do(s, http.MethodPost, "/region/sample", `{"shape":`+rectangleJSON+`,"count":-1}`)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())

	ctx = do(s, http.MethodPost, "/region/sample", `{"shape":`+badPolyJSON+`}`)
	assert.Equal(t, http.StatusUnprocessableEntity, ctx.Response.StatusCode())
}

func TestSampleBatchHandler(t *testing.T) {
	s := testServer(t, nil)

	ctx := do(s, http.MethodPost, "/region/sample/batch",
		`{"shapes":[`+rectangleJSON+`,`+badPolyJSON+`],"count":5,"seed":3}`)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))

	var res []struct {
		Points geomodel.PointList `json:"points"`
		Error  string             `json:"error"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
	require.Len(t, res, 2)
	assert.Len(t, res[0].Points, 5)
	assert.Empty(t, res[0].Error)
	assert.Empty(t, res[1].Points)
	assert.Contains(t, res[1].Error, region.ErrNoBounds.Error())
}

func TestSnapHandler(t *testing.T) {
	t.Run("disabled in config", func(t *testing.T) {
		s := testServer(t, nil)
		ctx := do(s, http.MethodGet, "/snap/39.73921/-104.99031", "")
		require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

		var p geomodel.GeoPoint
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &p))
		assert.Equal(t, geomodel.GeoPoint{Lat: 39.73921, Lng: -104.99031}, p)
	})

	t.Run("explicit step", func(t *testing.T) {
		s := testServer(t, nil)
		ctx := do(s, http.MethodGet, "/snap/39.73921/-104.99031?step=0.001", "")
		require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

		var p geomodel.GeoPoint
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &p))
		assert.InDelta(t, 39.739, p.Lat, 1e-12)
		assert.InDelta(t, -104.99, p.Lng, 1e-12)
	})

	t.Run("bad step", func(t *testing.T) {
		s := testServer(t, nil)
		ctx := do(s, http.MethodGet, "/snap/39.73921/-104.99031?step=-1", "")
		assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestPinSetLifecycle(t *testing.T) {
	s := testServer(t, func(cfg *config.Config) {
		cfg.Pins.SnapToGrid = true
		cfg.Pins.GridSizeDeg = 0.001
	})

	ctx := do(s, http.MethodPost, "/pinsets", `{"shape":`+rectangleJSON+`,"count":3,"seed":9}`)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))

	var created pinSetResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &created))
	require.Len(t, created.Pins, 3)
	base := "/pinsets/" + created.ID

	// drag end is snapped
	ctx = do(s, http.MethodPut, base+"/pins/1", `{"lat":39.73921,"lng":-104.99031}`)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	var moved pinResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &moved))
	assert.InDelta(t, 39.739, moved.Pin.Lat, 1e-12)
	assert.InDelta(t, -104.99, moved.Pin.Lng, 1e-12)

	// hit test finds the moved pin
	ctx = do(s, http.MethodGet, base+"/hit/39.7391/-104.9901?tolerance_m=50", "")
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var hit pinResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &hit))
	assert.Equal(t, 1, hit.Index)

	ctx = do(s, http.MethodPost, base+"/pins", `{"lat":39.75,"lng":-104.97}`)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode())

	ctx = do(s, http.MethodDelete, base+"/pins/0", "")
	require.Equal(t, http.StatusNoContent, ctx.Response.StatusCode())

	ctx = do(s, http.MethodDelete, base+"/pins/10", "")
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())

	ctx = do(s, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var got pinSetResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
	require.Len(t, got.Pins, 3)
	assert.Equal(t, moved.Pin, got.Pins[0])
	assert.Equal(t, geomodel.GeoPoint{Lat: 39.75, Lng: -104.97}, got.Pins[2])

	ctx = do(s, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, ctx.Response.StatusCode())

	ctx = do(s, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())

	ctx = do(s, http.MethodGet, "/pinsets/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
}

func BenchmarkSampleHandler(b *testing.B) {
	s := testServer(b, nil)
	h := s.router().Handler

	for _, count := range []int{10, 1000} {
		body := fmt.Sprintf(`{"shape":%s,"count":%d}`, circleJSON, count)
		b.Run(fmt.Sprintf("SampleHandler-%d", count), func(b *testing.B) {
			var req fasthttp.Request
			req.Header.SetMethod(http.MethodPost)
			req.SetRequestURI("/region/sample")
			req.SetBodyString(body)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ctx := &fasthttp.RequestCtx{}
				ctx.Init(&req, nil, nil)
				h(ctx)
			}
		})
	}
}

func boundsFailures(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "bounds_failures_total" {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestBatchResponseCountsOnlyBoundsFailures(t *testing.T) {
	s := testServer(t, nil)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	var err error
	s.metricBoundsFailures, err = provider.Meter("test").Int64Counter("bounds_failures_total")
	require.NoError(t, err)

	_, noBounds := region.Bounds(geomodel.Polygon{})
	require.ErrorIs(t, noBounds, region.ErrNoBounds)

	res := s.batchResponse(context.Background(), 1, []region.BatchResult{
		{Index: 0, Points: []geomodel.GeoPoint{denver}},
		{Index: 1, Err: noBounds},
		{Index: 2, Err: context.Canceled},
	})
	require.Len(t, res, 3)
	assert.Len(t, res[0].Points, 1)
	assert.Contains(t, res[1].Error, region.ErrNoBounds.Error())
	assert.Equal(t, context.Canceled.Error(), res[2].Error)
	assert.Empty(t, res[2].Points)

	assert.EqualValues(t, 1, boundsFailures(t, reader))
}

func TestResampleAndClearPinSet(t *testing.T) {
	s := testServer(t, nil)

	ctx := do(s, http.MethodPost, "/pinsets", `{"shape":`+rectangleJSON+`,"count":3,"seed":9}`)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	var created pinSetResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &created))
	base := "/pinsets/" + created.ID

	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	set, ok := s.store.Get(id)
	require.True(t, ok)
	assert.False(t, set.SnapConfig().Enabled)

	ctx = do(s, http.MethodPut, base,
		`{"shape":`+circleJSON+`,"count":4,"seed":2,"snap":{"enabled":true,"grid_size_deg":0.01}}`)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	var resampled pinSetResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resampled))
	assert.Equal(t, created.ID, resampled.ID)
	require.Len(t, resampled.Pins, 4)
	for _, p := range resampled.Pins {
		assert.LessOrEqual(t, geo.DistanceHaversine(denver.Point(), p.Point()), 1000.0)
	}
	assert.Equal(t, region.SnapConfig{Enabled: true, GridSizeDeg: 0.01}, set.SnapConfig())

	// later drags use the new grid
	ctx = do(s, http.MethodPut, base+"/pins/0", `{"lat":39.7392,"lng":-104.9903}`)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var moved pinResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &moved))
	assert.InDelta(t, 39.74, moved.Pin.Lat, 1e-12)
	assert.InDelta(t, -104.99, moved.Pin.Lng, 1e-12)

	ctx = do(s, http.MethodPut, base, `{"shape":`+badPolyJSON+`}`)
	assert.Equal(t, http.StatusUnprocessableEntity, ctx.Response.StatusCode())
	assert.Equal(t, 4, set.Len(), "failed resample keeps the pins")

	ctx = do(s, http.MethodPut, base, `{"shape":`+circleJSON+`,"snap":{"enabled":true,"grid_size_deg":0}}`)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())

	ctx = do(s, http.MethodDelete, base+"/pins", "")
	require.Equal(t, http.StatusNoContent, ctx.Response.StatusCode())
	assert.Zero(t, set.Len())
	assert.True(t, set.SnapConfig().Enabled, "clearing keeps the snap config")

	ctx = do(s, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var cleared pinSetResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &cleared))
	assert.Empty(t, cleared.Pins)

	missing := "/pinsets/" + uuid.NewString()
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPut, missing, `{"shape":`+circleJSON+`}`).Response.StatusCode())
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodDelete, missing+"/pins", "").Response.StatusCode())
}
