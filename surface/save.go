// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrNotRaster is returned when a surface has no CPU pixels to encode.
var ErrNotRaster = errors.New("surface: surface has no raster storage")

// Encode writes the surface pixels to w in the given format.
// Supported formats are "png", "bmp" and "tiff".
func Encode(w io.Writer, s Surface, format string) error {
	img, ok := RasterOf(s)
	if !ok {
		return ErrNotRaster
	}

	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	case "tif", "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("surface: unknown image format %q", format)
	}
}

// Save writes the surface to path, choosing the format by file extension.
func Save(s Surface, path string) (err error) {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "png"
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("surface: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := Encode(f, s, format); err != nil {
		return fmt.Errorf("surface: save %s: %w", path, err)
	}
	return nil
}
