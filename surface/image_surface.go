// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"sync"
)

// Image is a CPU surface backed by *image.RGBA.
//
// Pixels are allocated lazily, so empty surfaces that are never drawn into
// cost nothing.
type Image struct {
	header

	mu       sync.Mutex
	img      *image.RGBA
	releases int
}

// NewImage creates an image surface of the given size.
func NewImage(width, height int, opts ...Option) *Image {
	return &Image{header: newHeader(width, height, opts)}
}

// NewImageFrom wraps an existing image. The image bounds are translated so
// that Min is (0, 0).
func NewImageFrom(img *image.RGBA, opts ...Option) *Image {
	b := img.Bounds()
	s := NewImage(b.Dx(), b.Dy(), opts...)
	if b.Min != (image.Point{}) {
		dup := image.NewRGBA(s.bounds)
		for y := 0; y < b.Dy(); y++ {
			copy(dup.Pix[y*dup.Stride:y*dup.Stride+b.Dx()*4], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		img = dup
	}
	s.img = img
	return s
}

// RGBA returns the backing image, allocating it on first use.
func (s *Image) RGBA() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img == nil {
		s.img = image.NewRGBA(s.bounds)
	}
	return s.img
}

// Allocated reports whether pixel storage exists.
func (s *Image) Allocated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img != nil
}

// Release drops the pixel storage.
func (s *Image) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.img = nil
	s.releases++
}

// Releases returns how many times Release was called.
func (s *Image) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

// Snapshot returns a copy of the current pixels.
func (s *Image) Snapshot() *image.RGBA {
	return cloneRGBA(s.RGBA())
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
