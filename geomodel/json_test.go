package geomodel

import (
	"errors"
	"slices"
	"testing"
)

func TestUnmarshalPointListPairs(t *testing.T) {
	tests := []struct {
		data []byte
		want PointList
	}{
		{[]byte(`[]`), PointList{}},
		{[]byte(`[[1, 2]]`), PointList{{1, 2}}},
		{[]byte(`[[1,2], [3,4]]`), PointList{{1, 2}, {3, 4}}},
		{[]byte(`[[1,2.1], [3,4]]`), PointList{{1, 2.1}, {3, 4}}},
		{[]byte(`[[-1.4, -1],[-0, 1]]`), PointList{{-1.4, -1}, {0, 1}}},
		{[]byte(`[[1.4, 0.1], {"lat":3.1,"lng":-1}]`), PointList{{1.4, 0.1}, {3.1, -1}}},
		{[]byte(`[{"lat":5,"lon":6}]`), PointList{{5, 6}}},
	}

	for _, tt := range tests {
		var res PointList
		if err := res.UnmarshalJSON(tt.data); err != nil {
			t.Fatalf("unexpected error for %s: %s", tt.data, err.Error())
		}

		if !slices.Equal(tt.want, res) {
			t.Fatalf("result expected %v; got %v", tt.want, res)
		}
	}
}

func TestUnmarshalPointListInvalid(t *testing.T) {
	for _, data := range []string{
		`[[1]]`,
		`[[1,2,3]]`,
		`[[a, 0]]`,
		`[[1,2]`,
		`[[1,2]] x`,
	} {
		var res PointList
		if err := res.UnmarshalJSON([]byte(data)); err == nil {
			t.Fatalf("expected error for %s, got %v", data, res)
		}
	}
}

func FuzzUnmarshalPointList(f *testing.F) {
	f.Add([]byte(`[]`))
	f.Add([]byte(`[[1,2]]`))
	f.Add([]byte(`[[1,2],[3,4]]`))
	f.Add([]byte(`[[1,2.1],[3]]`))
	f.Add([]byte(`[[1,2.1],[3,4,5]]`))
	f.Add([]byte(`[{"lat":1,"lng":2}]`))
	f.Add([]byte(`[[-1.4, -1],[-0, 1]]`))
	f.Add([]byte(`[[a, -0],[0, 2]]`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var first PointList
		if err := first.UnmarshalJSON(data); err != nil {
			return
		}

		encoded, err := first.MarshalJSON()
		if err != nil {
			t.Fatalf("marshal error: %s", err.Error())
		}

		var second PointList
		if err := second.UnmarshalJSON(encoded); err != nil {
			t.Fatalf("re-decoding %s: %s", encoded, err.Error())
		}
		if !slices.Equal(first, second) {
			t.Fatalf("round trip expected %v; got %v", first, second)
		}
	})
}

func TestShapeJSON(t *testing.T) {
	shapes := []Shape{
		Rectangle{Bounds: NewBoundingBox(GeoPoint{Lat: 1, Lng: 2}, GeoPoint{Lat: 3, Lng: 4})},
		Circle{Center: GeoPoint{Lat: 39.7392, Lng: -104.9903}, RadiusMeters: 1000},
		Polygon{Vertices: []GeoPoint{{0, 0}, {0, 1}, {1, 1}}},
	}

	for _, shape := range shapes {
		data, err := MarshalShape(shape)
		if err != nil {
			t.Fatalf("marshal %s: %s", shape.Kind(), err.Error())
		}

		got, err := UnmarshalShape(data)
		if err != nil {
			t.Fatalf("unmarshal %s: %s", data, err.Error())
		}
		if got.Kind() != shape.Kind() {
			t.Fatalf("kind expected %s; got %s", shape.Kind(), got.Kind())
		}
		if p, ok := shape.(Polygon); ok {
			if !slices.Equal(p.Vertices, got.(Polygon).Vertices) {
				t.Fatalf("vertices expected %v; got %v", p.Vertices, got.(Polygon).Vertices)
			}
		} else if got != shape {
			t.Fatalf("shape expected %+v; got %+v", shape, got)
		}
	}
}

func TestShapeJSONErrors(t *testing.T) {
	tests := []struct {
		data string
		is   error
	}{
		{`{"sw":{"lat":0,"lng":0}}`, ErrMissingShapeType},
		{`null`, ErrMissingShapeType},
		{`{"type":"hexagon"}`, nil},
		{`{"type":"circle","center":{"lat":0,"lng":0}}`, nil},
		{`{"type":"rectangle","sw":{"lat":0,"lng":0}}`, nil},
	}

	for _, tt := range tests {
		_, err := UnmarshalShape([]byte(tt.data))
		if err == nil {
			t.Fatalf("expected error for %s", tt.data)
		}
		if tt.is != nil && !errors.Is(err, tt.is) {
			t.Fatalf("error for %s expected %v; got %v", tt.data, tt.is, err)
		}
	}
}
