// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package optimizer

import (
	"errors"
	"fmt"
	"slices"
)

// Errors.
var (
	// ErrAlreadyRegistered is returned when an optimizer is registered twice.
	ErrAlreadyRegistered = errors.New("optimizer: already registered")

	// ErrInvalidCategory is returned for optimizers with an unknown category.
	ErrInvalidCategory = errors.New("optimizer: invalid category")
)

// Set holds optimizers by category, in registration order.
// A Set is not safe for concurrent modification.
type Set struct {
	lists [CategoryIDCount][]Optimizer
}

// NewSet returns a set holding opts.
func NewSet(opts ...Optimizer) (*Set, error) {
	s := &Set{}
	for _, o := range opts {
		if err := s.Register(o); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register appends o to its category.
func (s *Set) Register(o Optimizer) error {
	info := o.Info()
	if info.Category < 0 || info.Category >= CategoryIDCount {
		return fmt.Errorf("%w: %s has category %d", ErrInvalidCategory, info.Name, info.Category)
	}
	if s.IsRegistered(o) {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, info.Name)
	}
	s.lists[info.Category] = append(s.lists[info.Category], o)
	return nil
}

// Unregister removes o and reports whether it was registered.
func (s *Set) Unregister(o Optimizer) bool {
	id := o.Info().Category
	if id < 0 || id >= CategoryIDCount {
		return false
	}
	i := slices.Index(s.lists[id], o)
	if i < 0 {
		return false
	}
	s.lists[id] = slices.Delete(s.lists[id], i, i+1)
	return true
}

// IsRegistered reports whether o is in the set.
func (s *Set) IsRegistered(o Optimizer) bool {
	id := o.Info().Category
	if id < 0 || id >= CategoryIDCount {
		return false
	}
	return slices.Contains(s.lists[id], o)
}

// Category returns a copy of the optimizers of a category.
func (s *Set) Category(id CategoryID) []Optimizer {
	if id < 0 || id >= CategoryIDCount {
		return nil
	}
	return slices.Clone(s.lists[id])
}

// Len returns the number of registered optimizers.
func (s *Set) Len() int {
	n := 0
	for _, l := range s.lists {
		n += len(l)
	}
	return n
}
