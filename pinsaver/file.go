package pinsaver

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// SaveToFile writes a pin file, names ending in .zst are zstd compressed.
func SaveToFile(name string, file PinFile) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("can`t create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(name, ".zst") {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("can`t create zstd writer: %w", err)
		}
		err = Save(enc, file)
		if err != nil {
			enc.Close()
			return err
		}
		err = enc.Close()
		if err != nil {
			return err
		}
		return f.Close()
	}

	err = Save(w, file)
	if err != nil {
		return err
	}
	return f.Close()
}

func LoadFromFile(name string, log *slog.Logger) (PinFile, error) {
	reader, err := OpenReader(name)
	if err != nil {
		return PinFile{}, err
	}
	defer reader.Close()

	return Load(reader, log)
}

// OpenReader opens a file, transparently decompressing .zst files.
func OpenReader(name string) (io.ReadCloser, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("can`t open file error: %w", err)
	}

	if strings.HasSuffix(name, ".zst") {
		dec, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("can`t create zstd reader: %w", err)
		}

		return &zstdFile{ReadCloser: dec.IOReadCloser(), file: file}, nil
	}

	return file, nil
}

type zstdFile struct {
	io.ReadCloser
	file *os.File
}

func (z *zstdFile) Close() error {
	z.ReadCloser.Close()
	return z.file.Close()
}
