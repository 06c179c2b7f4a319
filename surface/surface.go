// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Surface is a render target.
//
// Two tasks refer to the same surface when their Surface values are the
// same object. Implementations must be safe for concurrent use.
type Surface interface {
	// ID returns a process-unique identifier, used only for logging.
	ID() uint64

	// Bounds returns the pixel bounds of the surface. Min is always (0, 0).
	Bounds() image.Rectangle

	// Release discards the surface contents. The surface stays usable and
	// reads back as fully transparent afterwards.
	Release()
}

// Raster is implemented by surfaces whose pixels are addressable on the CPU.
type Raster interface {
	Surface

	// RGBA returns the backing image, allocating it if needed.
	RGBA() *image.RGBA
}

// RasterOf returns the CPU pixels of s, if it has any.
func RasterOf(s Surface) (*image.RGBA, bool) {
	r, ok := s.(Raster)
	if !ok {
		return nil, false
	}
	return r.RGBA(), true
}

// Temporary reports whether s was created with WithTemporary.
func Temporary(s Surface) bool {
	t, ok := s.(interface{ Temporary() bool })
	return ok && t.Temporary()
}

// Options configures surface creation through the registry.
type Options struct {
	// Width is the surface width in pixels.
	Width int

	// Height is the surface height in pixels.
	Height int

	// Temporary marks the surface as owned by a single task list.
	Temporary bool

	// Format is the texel format for GPU surfaces.
	// Zero value selects RGBA8Unorm.
	Format gputypes.TextureFormat
}

// Option modifies a surface at construction time.
type Option func(*header)

// WithTemporary marks the surface as temporary.
func WithTemporary() Option {
	return func(h *header) {
		h.temporary = true
	}
}

var lastID atomic.Uint64

// header holds the state shared by all surface kinds.
type header struct {
	id        uint64
	bounds    image.Rectangle
	temporary bool
}

func newHeader(width, height int, opts []Option) header {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	h := header{
		id:     lastID.Add(1),
		bounds: image.Rect(0, 0, width, height),
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// ID returns the surface identifier.
func (h *header) ID() uint64 { return h.id }

// Bounds returns the surface bounds.
func (h *header) Bounds() image.Rectangle { return h.bounds }

// Temporary reports whether the surface is temporary.
func (h *header) Temporary() bool { return h.temporary }

// Width returns the surface width.
func (h *header) Width() int { return h.bounds.Dx() }

// Height returns the surface height.
func (h *header) Height() int { return h.bounds.Dy() }
