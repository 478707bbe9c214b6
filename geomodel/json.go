package geomodel

import (
	"errors"
	"fmt"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

var (
	_ easyjson.Marshaler   = GeoPoint{}
	_ easyjson.Unmarshaler = (*GeoPoint)(nil)
	_ easyjson.Marshaler   = PointList{}
	_ easyjson.Unmarshaler = (*PointList)(nil)
	_ easyjson.Marshaler   = BoundingBox{}
	_ easyjson.Unmarshaler = (*BoundingBox)(nil)
	_ easyjson.Marshaler   = ShapeJSON{}
	_ easyjson.Unmarshaler = (*ShapeJSON)(nil)
)

func (p GeoPoint) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawString(`{"lat":`)
	out.Float64(p.Lat)
	out.RawString(`,"lng":`)
	out.Float64(p.Lng)
	out.RawByte('}')
}

func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return easyjson.Marshal(p)
}

func (p *GeoPoint) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "lat":
			p.Lat = in.Float64()
		case "lng", "lon":
			p.Lng = in.Float64()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	return easyjson.Unmarshal(data, p)
}

func (l PointList) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawByte('[')
	for i, p := range l {
		if i > 0 {
			out.RawByte(',')
		}
		p.MarshalEasyJSON(out)
	}
	out.RawByte(']')
}

func (l PointList) MarshalJSON() ([]byte, error) {
	return easyjson.Marshal(l)
}

func (l *PointList) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		in.Skip()
		*l = nil
	} else {
		in.Delim('[')
		if *l == nil {
			*l = make(PointList, 0, 16)
		} else {
			*l = (*l)[:0]
		}
		for !in.IsDelim(']') {
			var p GeoPoint
			if in.IsDelim('[') {
				p = unmarshalPair(in)
			} else {
				p.UnmarshalEasyJSON(in)
			}
			*l = append(*l, p)
			in.WantComma()
		}
		in.Delim(']')
	}
	if isTopLevel {
		in.Consumed()
	}
}

// unmarshalPair reads the compact [lat, lng] form.
func unmarshalPair(in *jlexer.Lexer) GeoPoint {
	var coords [2]float64
	n := 0
	in.Delim('[')
	for !in.IsDelim(']') {
		v := in.Float64()
		if n < len(coords) {
			coords[n] = v
		}
		n++
		in.WantComma()
	}
	in.Delim(']')
	if n != len(coords) {
		in.AddError(fmt.Errorf("point pair must have 2 coordinates, got %d", n))
	}
	return GeoPoint{Lat: coords[0], Lng: coords[1]}
}

func (l *PointList) UnmarshalJSON(data []byte) error {
	return easyjson.Unmarshal(data, l)
}

func (b BoundingBox) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawString(`{"sw":`)
	b.SW.MarshalEasyJSON(out)
	out.RawString(`,"ne":`)
	b.NE.MarshalEasyJSON(out)
	out.RawByte('}')
}

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return easyjson.Marshal(b)
}

func (b *BoundingBox) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		switch key {
		case "sw":
			b.SW.UnmarshalEasyJSON(in)
		case "ne":
			b.NE.UnmarshalEasyJSON(in)
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	return easyjson.Unmarshal(data, b)
}

// ShapeJSON is the wire envelope for a Shape:
//
//	{"type":"rectangle","sw":{..},"ne":{..}}
//	{"type":"circle","center":{..},"radius":1000}
//	{"type":"polygon","vertices":[{..},{..},{..}]}
type ShapeJSON struct {
	Shape Shape
}

var ErrMissingShapeType = errors.New("shape type is missing")

func (s ShapeJSON) MarshalEasyJSON(out *jwriter.Writer) {
	if s.Shape == nil {
		out.RawString("null")
		return
	}
	out.RawString(`{"type":`)
	out.String(s.Shape.Kind().String())
	switch v := s.Shape.(type) {
	case Rectangle:
		out.RawString(`,"sw":`)
		v.Bounds.SW.MarshalEasyJSON(out)
		out.RawString(`,"ne":`)
		v.Bounds.NE.MarshalEasyJSON(out)
	case Circle:
		out.RawString(`,"center":`)
		v.Center.MarshalEasyJSON(out)
		out.RawString(`,"radius":`)
		out.Float64(v.RadiusMeters)
	case Polygon:
		out.RawString(`,"vertices":`)
		PointList(v.Vertices).MarshalEasyJSON(out)
	}
	out.RawByte('}')
}

func (s ShapeJSON) MarshalJSON() ([]byte, error) {
	return easyjson.Marshal(s)
}

func (s *ShapeJSON) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		s.Shape = nil
		return
	}

	var (
		kind      string
		sw, ne    *GeoPoint
		center    *GeoPoint
		radius    float64
		hasRadius bool
		vertices  PointList
	)

	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "type":
			kind = in.String()
		case "sw":
			sw = new(GeoPoint)
			sw.UnmarshalEasyJSON(in)
		case "ne":
			ne = new(GeoPoint)
			ne.UnmarshalEasyJSON(in)
		case "center":
			center = new(GeoPoint)
			center.UnmarshalEasyJSON(in)
		case "radius":
			radius = in.Float64()
			hasRadius = true
		case "vertices":
			vertices.UnmarshalEasyJSON(in)
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
	if in.Error() != nil {
		return
	}

	if kind == "" {
		in.AddError(ErrMissingShapeType)
		return
	}
	k, err := ParseShapeKind(kind)
	if err != nil {
		in.AddError(err)
		return
	}

	switch k {
	case KindRectangle:
		if sw == nil || ne == nil {
			in.AddError(fmt.Errorf("rectangle requires sw and ne corners"))
			return
		}
		s.Shape = Rectangle{Bounds: BoundingBox{SW: *sw, NE: *ne}}
	case KindCircle:
		if center == nil || !hasRadius {
			in.AddError(fmt.Errorf("circle requires center and radius"))
			return
		}
		s.Shape = Circle{Center: *center, RadiusMeters: radius}
	case KindPolygon:
		s.Shape = Polygon{Vertices: vertices}
	}
}

func (s *ShapeJSON) UnmarshalJSON(data []byte) error {
	return easyjson.Unmarshal(data, s)
}

// MarshalShape encodes a shape with the ShapeJSON envelope.
func MarshalShape(shape Shape) ([]byte, error) {
	return easyjson.Marshal(ShapeJSON{Shape: shape})
}

// UnmarshalShape decodes a ShapeJSON envelope.
func UnmarshalShape(data []byte) (Shape, error) {
	var s ShapeJSON
	if err := easyjson.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Shape == nil {
		return nil, ErrMissingShapeType
	}
	return s.Shape, nil
}
