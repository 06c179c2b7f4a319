// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestImageLazyAllocation(t *testing.T) {
	s := NewImage(8, 4)
	if s.Allocated() {
		t.Fatal("new image should not allocate pixels")
	}
	if got := s.Bounds(); got != image.Rect(0, 0, 8, 4) {
		t.Errorf("Bounds() = %v, want (0,0)-(8,4)", got)
	}

	img := s.RGBA()
	if !s.Allocated() {
		t.Error("RGBA() should allocate pixels")
	}
	if s.RGBA() != img {
		t.Error("RGBA() should return the same image on repeated calls")
	}
}

func TestImageRelease(t *testing.T) {
	s := NewImage(2, 2)
	s.RGBA().SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})

	s.Release()

	if s.Allocated() {
		t.Error("Release() should drop pixels")
	}
	if s.Releases() != 1 {
		t.Errorf("Releases() = %d, want 1", s.Releases())
	}
	if got := s.RGBA().RGBAAt(0, 0); got.A != 0 {
		t.Errorf("pixel after release = %v, want transparent", got)
	}
}

func TestImageFromTranslatesBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 13, 12))
	src.SetRGBA(12, 11, color.RGBA{1, 2, 3, 4})

	s := NewImageFrom(src)
	if got := s.Bounds(); got != image.Rect(0, 0, 3, 2) {
		t.Fatalf("Bounds() = %v, want (0,0)-(3,2)", got)
	}
	if got := s.RGBA().RGBAAt(2, 1); got != (color.RGBA{1, 2, 3, 4}) {
		t.Errorf("pixel = %v, want {1 2 3 4}", got)
	}
}

func TestSurfaceIdentity(t *testing.T) {
	a := NewImage(1, 1)
	b := NewImage(1, 1)
	if a.ID() == b.ID() {
		t.Error("surfaces should have distinct IDs")
	}
	if Temporary(a) {
		t.Error("surface should not be temporary by default")
	}
	if !Temporary(NewImage(1, 1, WithTemporary())) {
		t.Error("WithTemporary() not applied")
	}
}

func TestNegativeSizeClamped(t *testing.T) {
	s := NewImage(-5, 3)
	if !s.Bounds().Empty() {
		t.Errorf("Bounds() = %v, want empty", s.Bounds())
	}
}

func TestTextureFormats(t *testing.T) {
	tex, err := NewTexture(2, 1, gputypes.TextureFormatUndefined)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	if tex.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want RGBA8Unorm", tex.Format())
	}

	if _, err := NewTexture(2, 1, gputypes.TextureFormatDepth24PlusStencil8); err == nil {
		t.Error("expected error for depth format")
	}
}

func TestTextureTexelsBGRA(t *testing.T) {
	tex, err := NewTexture(1, 1, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	tex.RGBA().SetRGBA(0, 0, color.RGBA{10, 20, 30, 40})

	got := tex.Texels()
	want := []byte{30, 20, 10, 40}
	if !bytes.Equal(got, want) {
		t.Errorf("Texels() = %v, want %v", got, want)
	}
}

func TestTextureGeneration(t *testing.T) {
	tex, _ := NewTexture(1, 1, gputypes.TextureFormatRGBA8Unorm)
	if tex.Generation() != 0 {
		t.Fatalf("Generation() = %d, want 0", tex.Generation())
	}
	tex.Touch()
	tex.Release()
	if tex.Generation() != 2 {
		t.Errorf("Generation() = %d, want 2", tex.Generation())
	}
}

func TestRasterOf(t *testing.T) {
	if _, ok := RasterOf(NewImage(1, 1)); !ok {
		t.Error("Image should be a raster")
	}
	tex, _ := NewTexture(1, 1, gputypes.TextureFormatRGBA8Unorm)
	if _, ok := RasterOf(tex); !ok {
		t.Error("Texture should be a raster")
	}
	if _, ok := RasterOf(opaqueSurface{}); ok {
		t.Error("opaque surface should not be a raster")
	}
}

type opaqueSurface struct{}

func (opaqueSurface) ID() uint64              { return 0 }
func (opaqueSurface) Bounds() image.Rectangle { return image.Rectangle{} }
func (opaqueSurface) Release()                {}

// ============================================================================
// Encoding
// ============================================================================

func TestEncodeFormats(t *testing.T) {
	s := NewImage(3, 2)
	s.RGBA().SetRGBA(1, 1, color.RGBA{0, 128, 0, 255})

	decoders := map[string]func(*bytes.Buffer) (image.Image, error){
		"png":  func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) },
		"bmp":  func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) },
		"tiff": func(b *bytes.Buffer) (image.Image, error) { return tiff.Decode(b) },
	}

	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, s, format); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			img, err := decode(&buf)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
				t.Errorf("decoded size = %v, want 3x2", img.Bounds())
			}
			_, g, _, _ := img.At(1, 1).RGBA()
			if g>>8 != 128 {
				t.Errorf("decoded green = %d, want 128", g>>8)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, NewImage(1, 1), "gif"); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := Encode(&buf, opaqueSurface{}, "png"); err != ErrNotRaster {
		t.Errorf("Encode(opaque) = %v, want ErrNotRaster", err)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bmp")
	if err := Save(NewImage(2, 2), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("BM")) {
		t.Errorf("saved file is not a BMP")
	}
}
