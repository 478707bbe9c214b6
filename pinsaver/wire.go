package pinsaver

import (
	"errors"
	"fmt"
	"math"

	"github.com/royalcat/rgeopins/geomodel"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Field numbers of the v1 messages.
//
//	Header     { uint64 metadata_size = 1; uint64 points_count = 2; }
//	Metadata   { Timestamp date_created = 1; Shape shape = 2; bool snap_enabled = 3;
//	             double grid_size_deg = 4; sint64 seed = 5; }
//	Shape      { uint32 kind = 1; repeated double coords = 2 [packed]; }
//	PointsBlob { repeated double coords = 1 [packed]; } // lat, lng pairs
const (
	headerMetadataSizeField protowire.Number = 1
	headerPointsCountField  protowire.Number = 2

	metaDateCreatedField protowire.Number = 1
	metaShapeField       protowire.Number = 2
	metaSnapEnabledField protowire.Number = 3
	metaGridSizeField    protowire.Number = 4
	metaSeedField        protowire.Number = 5

	shapeKindField   protowire.Number = 1
	shapeCoordsField protowire.Number = 2

	blobCoordsField protowire.Number = 1
)

var errOddCoords = errors.New("points blob has an odd number of coordinates")

type header struct {
	MetadataSize uint64
	PointsCount  uint64
}

func marshalHeader(h header) []byte {
	var b []byte
	b = protowire.AppendTag(b, headerMetadataSizeField, protowire.VarintType)
	b = protowire.AppendVarint(b, h.MetadataSize)
	b = protowire.AppendTag(b, headerPointsCountField, protowire.VarintType)
	b = protowire.AppendVarint(b, h.PointsCount)
	return b
}

func unmarshalHeader(b []byte) (header, error) {
	var h header
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.VarintType {
			return 0, nil
		}
		v, n := protowire.ConsumeVarint(b)
		switch num {
		case headerMetadataSizeField:
			h.MetadataSize = v
		case headerPointsCountField:
			h.PointsCount = v
		}
		return n, nil
	})
	return h, err
}

func marshalMetadata(m Metadata) ([]byte, error) {
	date, err := proto.Marshal(timestamppb.New(m.DateCreated))
	if err != nil {
		return nil, fmt.Errorf("error encoding date created: %w", err)
	}

	var b []byte
	b = protowire.AppendTag(b, metaDateCreatedField, protowire.BytesType)
	b = protowire.AppendBytes(b, date)
	if m.Shape.Shape != nil {
		b = protowire.AppendTag(b, metaShapeField, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalShape(m.Shape.Shape))
	}
	b = protowire.AppendTag(b, metaSnapEnabledField, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(m.Snap.Enabled))
	b = protowire.AppendTag(b, metaGridSizeField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(m.Snap.GridSizeDeg))
	b = protowire.AppendTag(b, metaSeedField, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Seed))
	return b, nil
}

func unmarshalMetadata(b []byte) (Metadata, error) {
	var m Metadata
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == metaDateCreatedField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(v, &ts); err != nil {
				return 0, fmt.Errorf("error decoding date created: %w", err)
			}
			m.DateCreated = ts.AsTime()
			return n, nil
		case num == metaShapeField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			shape, err := unmarshalShape(v)
			if err != nil {
				return 0, err
			}
			m.Shape.Shape = shape
			return n, nil
		case num == metaSnapEnabledField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Snap.Enabled = protowire.DecodeBool(v)
			return n, nil
		case num == metaGridSizeField && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			m.Snap.GridSizeDeg = math.Float64frombits(v)
			return n, nil
		case num == metaSeedField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Seed = protowire.DecodeZigZag(v)
			return n, nil
		}
		return 0, nil
	})
	return m, err
}

func marshalShape(shape geomodel.Shape) []byte {
	var coords []float64
	switch s := shape.(type) {
	case geomodel.Rectangle:
		coords = []float64{s.Bounds.SW.Lat, s.Bounds.SW.Lng, s.Bounds.NE.Lat, s.Bounds.NE.Lng}
	case geomodel.Circle:
		coords = []float64{s.Center.Lat, s.Center.Lng, s.RadiusMeters}
	case geomodel.Polygon:
		coords = make([]float64, 0, 2*len(s.Vertices))
		for _, v := range s.Vertices {
			coords = append(coords, v.Lat, v.Lng)
		}
	}

	var b []byte
	b = protowire.AppendTag(b, shapeKindField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(shape.Kind()))
	return appendPackedDoubles(b, shapeCoordsField, coords)
}

func unmarshalShape(b []byte) (geomodel.Shape, error) {
	var (
		kind   geomodel.ShapeKind
		coords []float64
	)
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == shapeKindField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			kind = geomodel.ShapeKind(v)
			return n, nil
		case num == shapeCoordsField && typ == protowire.BytesType:
			v, n, err := consumePackedDoubles(b)
			coords = append(coords, v...)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}

	switch kind {
	case geomodel.KindRectangle:
		if len(coords) != 4 {
			return nil, fmt.Errorf("rectangle needs 4 coordinates, got %d", len(coords))
		}
		return geomodel.Rectangle{Bounds: geomodel.NewBoundingBox(
			geomodel.GeoPoint{Lat: coords[0], Lng: coords[1]},
			geomodel.GeoPoint{Lat: coords[2], Lng: coords[3]},
		)}, nil
	case geomodel.KindCircle:
		if len(coords) != 3 {
			return nil, fmt.Errorf("circle needs 3 coordinates, got %d", len(coords))
		}
		return geomodel.Circle{
			Center:       geomodel.GeoPoint{Lat: coords[0], Lng: coords[1]},
			RadiusMeters: coords[2],
		}, nil
	case geomodel.KindPolygon:
		if len(coords)%2 != 0 {
			return nil, fmt.Errorf("polygon has an odd number of coordinates")
		}
		vertices := make([]geomodel.GeoPoint, 0, len(coords)/2)
		for i := 0; i < len(coords); i += 2 {
			vertices = append(vertices, geomodel.GeoPoint{Lat: coords[i], Lng: coords[i+1]})
		}
		return geomodel.Polygon{Vertices: vertices}, nil
	}
	return nil, fmt.Errorf("unknown shape kind %d", kind)
}

func marshalPointsBlob(points []geomodel.GeoPoint) []byte {
	coords := make([]float64, 0, 2*len(points))
	for _, p := range points {
		coords = append(coords, p.Lat, p.Lng)
	}
	return appendPackedDoubles(nil, blobCoordsField, coords)
}

func unmarshalPointsBlob(b []byte, dst geomodel.PointList) (geomodel.PointList, error) {
	var coords []float64
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != blobCoordsField || typ != protowire.BytesType {
			return 0, nil
		}
		v, n, err := consumePackedDoubles(b)
		coords = append(coords, v...)
		return n, err
	})
	if err != nil {
		return dst, err
	}
	if len(coords)%2 != 0 {
		return dst, errOddCoords
	}
	for i := 0; i < len(coords); i += 2 {
		dst = append(dst, geomodel.GeoPoint{Lat: coords[i], Lng: coords[i+1]})
	}
	return dst, nil
}

func appendPackedDoubles(b []byte, num protowire.Number, values []float64) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(values)*protowire.SizeFixed64()))
	for _, v := range values {
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	}
	return b
}

func consumePackedDoubles(b []byte) ([]float64, int, error) {
	packed, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, n, nil
	}
	if len(packed)%protowire.SizeFixed64() != 0 {
		return nil, 0, fmt.Errorf("packed doubles length %d is not a multiple of 8", len(packed))
	}

	values := make([]float64, 0, len(packed)/protowire.SizeFixed64())
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed64(packed)
		if m < 0 {
			return nil, 0, protowire.ParseError(m)
		}
		values = append(values, math.Float64frombits(v))
		packed = packed[m:]
	}
	return values, n, nil
}

// consumeFields walks the fields of a message. fn consumes the value of a known field and
// returns its length, a zero length skips the field, a negative one is a protowire error code.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}
