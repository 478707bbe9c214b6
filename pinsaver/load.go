package pinsaver

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/royalcat/rgeopins/geomodel"
)

// Load reads a pin file, a nil log uses the default logger.
func Load(reader io.Reader, log *slog.Logger) (PinFile, error) {
	if log == nil {
		log = slog.Default()
	}
	magic := make([]byte, len(MAGIC_BYTES))
	n, err := io.ReadFull(reader, magic)
	if err != nil && err != io.ErrUnexpectedEOF {
		return PinFile{}, fmt.Errorf("error reading magic bytes: %w", err)
	}
	magic = magic[:n]

	// without magic bytes the file is expected to be a plain JSON list of points
	if !bytes.Equal(magic, MAGIC_BYTES) {
		log.Info("Magic bytes not detected, trying JSON format")
		return jsonLoader(io.MultiReader(bytes.NewReader(magic), reader))
	}

	var compatibilityLevel uint32
	err = binary.Read(reader, binary.LittleEndian, &compatibilityLevel)
	if err != nil {
		return PinFile{}, fmt.Errorf("error reading compatibility level: %w", err)
	}

	switch compatibilityLevel {
	case COMPATIBILITY_LEVEL:
		log.Debug("Loading v1 pin file")
		file, err := loadV1(reader)
		if err != nil {
			return PinFile{}, err
		}
		log.Info("Loaded pin file",
			"points", len(file.Points),
			"date_created", file.Metadata.DateCreated,
		)
		return file, nil
	}

	return PinFile{}, fmt.Errorf("unsupported compatibility level: %d", compatibilityLevel)
}

func jsonLoader(reader io.Reader) (PinFile, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return PinFile{}, err
	}
	var points geomodel.PointList
	err = points.UnmarshalJSON(data)
	if err != nil {
		return PinFile{}, fmt.Errorf("error decoding points: %w", err)
	}
	return PinFile{Points: points}, nil
}

func loadV1(reader io.Reader) (PinFile, error) {
	var file PinFile

	headerBytes, err := readSized(reader, maxHeaderSize)
	if err != nil {
		return file, fmt.Errorf("error reading header: %w", err)
	}
	h, err := unmarshalHeader(headerBytes)
	if err != nil {
		return file, fmt.Errorf("error decoding header: %w", err)
	}
	if h.MetadataSize > maxMetadataSize {
		return file, fmt.Errorf("metadata size %d exceeds limit %d", h.MetadataSize, maxMetadataSize)
	}
	if h.PointsCount > maxPoints {
		return file, fmt.Errorf("points count %d exceeds limit %d", h.PointsCount, maxPoints)
	}

	metadataBytes := make([]byte, h.MetadataSize)
	_, err = io.ReadFull(reader, metadataBytes)
	if err != nil {
		return file, fmt.Errorf("error reading metadata: %w", err)
	}
	file.Metadata, err = unmarshalMetadata(metadataBytes)
	if err != nil {
		return file, fmt.Errorf("error decoding metadata: %w", err)
	}

	count := int(h.PointsCount)
	file.Points = make(geomodel.PointList, 0, min(count, pointsChunkSize))
	for len(file.Points) < count {
		blob, err := readSized(reader, maxBlobSize)
		if err != nil {
			return file, fmt.Errorf("error reading points blob at point %d: %w", len(file.Points), err)
		}
		file.Points, err = unmarshalPointsBlob(blob, file.Points)
		if err != nil {
			return file, fmt.Errorf("error decoding points blob at point %d: %w", len(file.Points), err)
		}
	}
	if len(file.Points) != count {
		return file, fmt.Errorf("expected %d points, got %d", count, len(file.Points))
	}

	return file, nil
}

// readSized reads a little endian uint32 size followed by that many bytes.
func readSized(reader io.Reader, limit uint32) ([]byte, error) {
	var size uint32
	err := binary.Read(reader, binary.LittleEndian, &size)
	if err != nil {
		return nil, err
	}
	if size > limit {
		return nil, fmt.Errorf("size %d exceeds limit %d", size, limit)
	}
	data := make([]byte, size)
	_, err = io.ReadFull(reader, data)
	if err != nil {
		return nil, err
	}
	return data, nil
}
