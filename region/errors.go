package region

import (
	"errors"
	"fmt"

	"github.com/royalcat/rgeopins/geomodel"
)

var ErrNoBounds = errors.New("shape has no bounds")

// NoBoundsError is returned when a shape geometry can't produce a bounding box.
// Callers should treat the draw action as a no-op.
type NoBoundsError struct {
	Kind   geomodel.ShapeKind
	Reason string
}

func (e *NoBoundsError) Error() string {
	if e.Kind == 0 {
		return fmt.Sprintf("%s: %s", ErrNoBounds.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrNoBounds.Error(), e.Kind, e.Reason)
}

func (e *NoBoundsError) Unwrap() error {
	return ErrNoBounds
}

func noBounds(kind geomodel.ShapeKind, reason string) error {
	return &NoBoundsError{Kind: kind, Reason: reason}
}
