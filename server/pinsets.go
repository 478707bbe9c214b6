package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/pinset"
	"github.com/royalcat/rgeopins/region"
	"github.com/valyala/fasthttp"
)

// defaultHitToleranceM is the pointer hit radius when the request doesn't set one.
const defaultHitToleranceM = 25.0

type pinSetResponse struct {
	ID   string             `json:"id"`
	Pins geomodel.PointList `json:"pins"`
}

type pinResponse struct {
	Index int               `json:"index"`
	Pin   geomodel.GeoPoint `json:"pin"`
}

func (s *server) CreatePinSetHandler(ctx *fasthttp.RequestCtx) {
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

	id, set := s.store.Create(s.cfg.Pins.Snap(), pts)
	s.log.Debug("pin set created", "id", id, "pins", set.Len())

	writeJSON(ctx, http.StatusCreated, pinSetResponse{ID: id.String(), Pins: set.Points()})
}

// resampleRequest applies a new shape to an existing pin set, snap replaces the set's snap config when present.
type resampleRequest struct {
	sampleRequest
	Snap *region.SnapConfig `json:"snap"`
}

// ResamplePinSetHandler replaces all pins of a set with pins sampled inside a new shape.
func (s *server) ResamplePinSetHandler(ctx *fasthttp.RequestCtx) {
	id, set, ok := s.lookupPinSet(ctx)
	if !ok {
		return
	}

	var req resampleRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if req.Snap != nil && req.Snap.Enabled && !(req.Snap.GridSizeDeg > 0) {
		writeError(ctx, http.StatusBadRequest, "snap grid_size_deg must be positive when snapping is enabled")
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

	if req.Snap != nil {
		set.SetSnapConfig(*req.Snap)
	}
	set.Replace(pts)
	s.log.Debug("pin set resampled", "id", id, "pins", len(pts))

	writeJSON(ctx, http.StatusOK, pinSetResponse{ID: id.String(), Pins: set.Points()})
}

func (s *server) GetPinSetHandler(ctx *fasthttp.RequestCtx) {
	id, set, ok := s.lookupPinSet(ctx)
	if !ok {
		return
	}
	writeJSON(ctx, http.StatusOK, pinSetResponse{ID: id.String(), Pins: set.Points()})
}

func (s *server) DeletePinSetHandler(ctx *fasthttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if !s.store.Delete(id) {
		writeError(ctx, http.StatusNotFound, "pin set not found")
		return
	}
	ctx.Response.SetStatusCode(http.StatusNoContent)
}

// ClearPinsHandler removes every pin but keeps the set and its snap config.
func (s *server) ClearPinsHandler(ctx *fasthttp.RequestCtx) {
	_, set, ok := s.lookupPinSet(ctx)
	if !ok {
		return
	}
	set.Clear()
	ctx.Response.SetStatusCode(http.StatusNoContent)
}

func (s *server) AddPinHandler(ctx *fasthttp.RequestCtx) {
	_, set, ok := s.lookupPinSet(ctx)
	if !ok {
		return
	}

	var p geomodel.GeoPoint
	if err := p.UnmarshalJSON(ctx.Request.Body()); err != nil {
		writeError(ctx, http.StatusBadRequest, "failed to parse request: "+err.Error())
		return
	}
	if !p.Valid() {
		writeError(ctx, http.StatusBadRequest, "pin is not a valid coordinate")
		return
	}

	set.Add(p)
	writeJSON(ctx, http.StatusCreated, pinResponse{Index: set.Len() - 1, Pin: p})
}

// UpdatePinHandler stores the drag end position of a pin, snapped to the grid when enabled.
func (s *server) UpdatePinHandler(ctx *fasthttp.RequestCtx) {
	_, set, ok := s.lookupPinSet(ctx)
	if !ok {
		return
	}
	idx, ok := pathIndex(ctx)
	if !ok {
		return
	}

	var p geomodel.GeoPoint
	if err := p.UnmarshalJSON(ctx.Request.Body()); err != nil {
		writeError(ctx, http.StatusBadRequest, "failed to parse request: "+err.Error())
		return
	}
	if !p.Valid() {
		writeError(ctx, http.StatusBadRequest, "pin is not a valid coordinate")
		return
	}

	stored, err := set.Update(idx, p)
	if err != nil {
		writePinError(ctx, err)
		return
	}

	writeJSON(ctx, http.StatusOK, pinResponse{Index: idx, Pin: stored})
}

func (s *server) DeletePinHandler(ctx *fasthttp.RequestCtx) {
	_, set, ok := s.lookupPinSet(ctx)
	if !ok {
		return
	}
	idx, ok := pathIndex(ctx)
	if !ok {
		return
	}

	if err := set.Remove(idx); err != nil {
		writePinError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(http.StatusNoContent)
}

func (s *server) HitPinHandler(ctx *fasthttp.RequestCtx) {
	_, set, ok := s.lookupPinSet(ctx)
	if !ok {
		return
	}
	p, ok := pathPoint(ctx)
	if !ok {
		return
	}

	tolerance := defaultHitToleranceM
	if raw := ctx.QueryArgs().Peek("tolerance_m"); len(raw) > 0 {
		v, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || v < 0 {
			writeError(ctx, http.StatusBadRequest, "tolerance_m must be a non negative number")
			return
		}
		tolerance = v
	}

	idx, found := set.Nearest(p, tolerance)
	if !found {
		ctx.Response.SetStatusCode(http.StatusNoContent)
		return
	}
	pin, err := set.At(idx)
	if err != nil {
		// removed concurrently
		ctx.Response.SetStatusCode(http.StatusNoContent)
		return
	}

	writeJSON(ctx, http.StatusOK, pinResponse{Index: idx, Pin: pin})
}

func (s *server) lookupPinSet(ctx *fasthttp.RequestCtx) (uuid.UUID, *pinset.PinSet, bool) {
	id, ok := pathID(ctx)
	if !ok {
		return uuid.Nil, nil, false
	}
	set, ok := s.store.Get(id)
	if !ok {
		writeError(ctx, http.StatusNotFound, "pin set not found")
		return uuid.Nil, nil, false
	}
	return id, set, true
}

func pathID(ctx *fasthttp.RequestCtx) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.UserValue("id").(string))
	if err != nil {
		writeError(ctx, http.StatusBadRequest, "invalid pin set id")
		return uuid.Nil, false
	}
	return id, true
}

func pathIndex(ctx *fasthttp.RequestCtx) (int, bool) {
	idx, err := strconv.Atoi(ctx.UserValue("idx").(string))
	if err != nil {
		writeError(ctx, http.StatusBadRequest, "invalid pin index")
		return 0, false
	}
	return idx, true
}

func writePinError(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, pinset.ErrIndexOutOfRange) {
		writeError(ctx, http.StatusNotFound, err.Error())
		return
	}
	writeError(ctx, http.StatusInternalServerError, err.Error())
}
