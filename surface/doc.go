// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the render targets used by rendering tasks.
//
// A Surface is an opaque, identity-comparable pixel store. The scheduler only
// needs two facts about a surface: which surface it is (pointer identity) and
// its bounds. Everything else is up to the backend that writes into it.
//
// # Surface Types
//
//   - Image: CPU storage backed by *image.RGBA, allocated on first use
//   - Texture: GPU texture description with a CPU staging image
//
// Both types expose their pixels through the Raster interface, so the
// software backend can draw into either.
//
// # Temporary Surfaces
//
// A surface created with WithTemporary is owned by the task list that uses
// it. The list optimizer inserts release tasks for such surfaces once their
// last consumer has run.
//
// # Registry
//
// Surface kinds register themselves by name and priority:
//
//	s, err := surface.NewSurfaceByNameWithOptions("texture", surface.Options{Width: 256, Height: 256})
//	// or auto-select best available:
//	s, err := surface.NewSurfaceWithOptions(surface.Options{Width: 256, Height: 256})
package surface
