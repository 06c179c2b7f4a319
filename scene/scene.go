// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package scene loads scene descriptions: a set of named surfaces and a
// task list drawing into them.
//
// Scenes are written in YAML or HCL. Both formats describe the same
// structure:
//
//	surface "canvas" {
//	  width  = 64
//	  height = 64
//	}
//
//	task "fill" {
//	  target = "canvas"
//	  color  = "#ff0000"
//	}
//
// The equivalent YAML:
//
//	surfaces:
//	  - name: canvas
//	    width: 64
//	    height: 64
//	tasks:
//	  - type: fill
//	    target: canvas
//	    color: "#ff0000"
//
// Task types are fill, blend, resample and sequence, plus read, which
// refers to the current content of a surface region and is used as a
// blend or resample input. A task without a target inherits the target
// of its parent; a task without a rect covers its whole target.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest scene file Load accepts.
const MaxFileSize = 1 << 20

// Format is a scene file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

var (
	// ErrUnknownFormat is returned for files whose syntax cannot be
	// determined.
	ErrUnknownFormat = errors.New("scene: unknown format")

	// ErrTooLarge is returned for files over MaxFileSize.
	ErrTooLarge = errors.New("scene: file too large")
)

// Scene is a decoded scene description.
type Scene struct {
	Surfaces []SurfaceDef `yaml:"surfaces" hcl:"surface,block"`
	Tasks    []TaskDef    `yaml:"tasks" hcl:"task,block"`

	// Output names the surface the scene renders to. Empty selects the
	// first surface that is not temporary.
	Output string `yaml:"output" hcl:"output,optional"`
}

// SurfaceDef describes a surface.
type SurfaceDef struct {
	Name      string `yaml:"name" hcl:"name,label"`
	Width     int    `yaml:"width" hcl:"width"`
	Height    int    `yaml:"height" hcl:"height"`
	Kind      string `yaml:"kind" hcl:"kind,optional"`
	Temporary bool   `yaml:"temporary" hcl:"temporary,optional"`
}

// TaskDef describes a task and its inputs.
type TaskDef struct {
	Type   string `yaml:"type" hcl:"type,label"`
	Target string `yaml:"target" hcl:"target,optional"`
	Rect   []int  `yaml:"rect" hcl:"rect,optional"`

	// Fill.
	Color string `yaml:"color" hcl:"color,optional"`

	// Blend.
	Method string   `yaml:"method" hcl:"method,optional"`
	Amount *float64 `yaml:"amount" hcl:"amount,optional"`
	Dest   *TaskDef `yaml:"dest" hcl:"dest,block"`

	// Blend and resample.
	Source *TaskDef `yaml:"source" hcl:"source,block"`

	// Resample.
	Dst           []int  `yaml:"dst" hcl:"dst,optional"`
	Interpolation string `yaml:"interpolation" hcl:"interpolation,optional"`

	// Sequence.
	Tasks []TaskDef `yaml:"tasks" hcl:"task,block"`
}

// Load reads and decodes the scene file at path. The format is chosen by
// the file extension.
func Load(path string) (*Scene, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if fi.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, path, fi.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	return Parse(data, filepath.Base(path), format)
}

// Parse decodes a scene. Name is used in error messages.
func Parse(data []byte, name string, format Format) (*Scene, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data, name)
	case FormatHCL:
		return parseHCL(data, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func formatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
