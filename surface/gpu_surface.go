// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
)

// Texture is a GPU surface.
//
// It records the texel format the GPU side works with and keeps a CPU
// staging image in RGBA order. GPU tasks upload from and read back into the
// staging image; CPU tasks draw into it directly.
type Texture struct {
	header

	format gputypes.TextureFormat

	mu         sync.Mutex
	staging    *image.RGBA
	generation uint64
}

// NewTexture creates a texture surface.
// An undefined format selects RGBA8Unorm.
func NewTexture(width, height int, format gputypes.TextureFormat, opts ...Option) (*Texture, error) {
	switch format {
	case gputypes.TextureFormatUndefined:
		format = gputypes.TextureFormatRGBA8Unorm
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
	default:
		return nil, fmt.Errorf("surface: unsupported texture format %v", format)
	}
	return &Texture{header: newHeader(width, height, opts), format: format}, nil
}

// Format returns the texel format.
func (s *Texture) Format() gputypes.TextureFormat { return s.format }

// RGBA returns the staging image, allocating it on first use.
func (s *Texture) RGBA() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staging == nil {
		s.staging = image.NewRGBA(s.bounds)
	}
	return s.staging
}

// Touch marks the staging image as modified and returns the new generation.
func (s *Texture) Touch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// Generation returns the number of recorded modifications.
func (s *Texture) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Release drops the staging image.
func (s *Texture) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staging = nil
	s.generation++
}

// Texels returns the staging pixels packed in the texture format.
func (s *Texture) Texels() []byte {
	src := s.RGBA()
	out := make([]byte, len(src.Pix))
	copy(out, src.Pix)
	if s.format == gputypes.TextureFormatBGRA8Unorm {
		for i := 0; i+3 < len(out); i += 4 {
			out[i], out[i+2] = out[i+2], out[i]
		}
	}
	return out
}
