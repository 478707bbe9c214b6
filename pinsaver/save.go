package pinsaver

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Save writes the magic bytes and compatibility level, then the size prefixed v1 header,
// metadata and points blobs of pointsChunkSize points each.
func Save(w io.Writer, file PinFile) error {
	bw := bufio.NewWriter(w)

	_, err := bw.Write(MAGIC_BYTES)
	if err != nil {
		return err
	}

	err = binary.Write(bw, binary.LittleEndian, COMPATIBILITY_LEVEL)
	if err != nil {
		return err
	}

	metadataBytes, err := marshalMetadata(file.Metadata)
	if err != nil {
		return fmt.Errorf("error encoding metadata: %w", err)
	}

	headerBytes := marshalHeader(header{
		MetadataSize: uint64(len(metadataBytes)),
		PointsCount:  uint64(len(file.Points)),
	})

	err = writeSized(bw, headerBytes)
	if err != nil {
		return err
	}
	_, err = bw.Write(metadataBytes)
	if err != nil {
		return err
	}

	for i := 0; i < len(file.Points); i += pointsChunkSize {
		end := min(i+pointsChunkSize, len(file.Points))
		err = writeSized(bw, marshalPointsBlob(file.Points[i:end]))
		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeSized(w io.Writer, data []byte) error {
	err := binary.Write(w, binary.LittleEndian, uint32(len(data)))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
