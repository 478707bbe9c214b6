package pinsaver

import (
	"time"

	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/region"
)

var MAGIC_BYTES = []byte("RGPINS")

const COMPATIBILITY_LEVEL uint32 = 1

// Limits guarding allocations when reading a corrupted file.
const (
	maxHeaderSize   = 1 << 10
	maxMetadataSize = 1 << 20
	maxPoints       = 1 << 26
)

// pointsChunkSize is the number of points per points blob.
const pointsChunkSize = 1000

// maxBlobSize fits a full chunk of packed lat/lng doubles plus field framing.
const maxBlobSize = pointsChunkSize*2*8 + 16

type Metadata struct {
	DateCreated time.Time
	Shape       geomodel.ShapeJSON
	Snap        region.SnapConfig
	Seed        int64
}

type PinFile struct {
	Metadata Metadata
	Points   geomodel.PointList
}
