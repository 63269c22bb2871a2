// Package definitions decodes tags of a cache.Handle into typed records.
//
// Each class has one parser per range of format versions, selected through a
// Registry. Field offsets live in layout tables so a new build of a known class
// is a new row rather than new parsing code.
package definitions

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// Record is a decoded tag. Records own all of their data and hold no
// reference to the handle they were read from.
type Record interface {
	Class() cache.ClassCode
}

// DecodeFunc parses the tag at entry. The handle's reader is positioned at
// entry.Offset when it is called.
type DecodeFunc func(h *cache.Handle, entry cache.IndexEntry) (Record, error)

// Registration binds a parser to classes over an inclusive version range.
type Registration struct {
	Classes []cache.ClassCode
	Min     cache.Version
	Max     cache.Version
	Decode  DecodeFunc
}

func (r Registration) covers(v cache.Version) bool {
	return v >= r.Min && v <= r.Max
}

// Registry dispatches (class, version) pairs to parsers.
type Registry struct {
	mu    sync.RWMutex
	regs  map[cache.ClassCode][]Registration
	order []cache.ClassCode
}

func NewRegistry() *Registry {
	return &Registry{regs: make(map[cache.ClassCode][]Registration)}
}

// Register adds reg. It panics if reg overlaps an existing registration for
// any of its classes, or if it is malformed; registrations happen at init.
func (r *Registry) Register(reg Registration) {
	if reg.Decode == nil || len(reg.Classes) == 0 || reg.Min > reg.Max {
		panic(fmt.Sprintf("definitions: invalid registration %v %s..%s", reg.Classes, reg.Min, reg.Max))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, class := range reg.Classes {
		for _, existing := range r.regs[class] {
			if reg.Min <= existing.Max && existing.Min <= reg.Max {
				panic(fmt.Sprintf("definitions: %q %s..%s overlaps %s..%s",
					string(class), reg.Min, reg.Max, existing.Min, existing.Max))
			}
		}
	}
	for _, class := range reg.Classes {
		if _, seen := r.regs[class]; !seen {
			r.order = append(r.order, class)
		}
		r.regs[class] = append(r.regs[class], reg)
	}
}

// Lookup returns the parser for class at version, or an
// *cache.UnsupportedVersionError.
func (r *Registry) Lookup(class cache.ClassCode, version cache.Version) (DecodeFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.regs[class] {
		if reg.covers(version) {
			return reg.Decode, nil
		}
	}
	return nil, &cache.UnsupportedVersionError{Class: class, Version: version}
}

// Supports reports whether a parser exists for class at version.
func (r *Registry) Supports(class cache.ClassCode, version cache.Version) bool {
	_, err := r.Lookup(class, version)
	return err == nil
}

// Classes lists registered classes in registration order.
func (r *Registry) Classes() []cache.ClassCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Decode parses the tag at entry with the parser for the handle's version.
// The handle's cursor is restored afterwards.
func (r *Registry) Decode(h *cache.Handle, entry cache.IndexEntry) (Record, error) {
	decode, err := r.Lookup(entry.Class, h.Version)
	if err != nil {
		return nil, err
	}
	rd := h.Reader()
	if rd == nil {
		return nil, fmt.Errorf("decode %s %s: handle is closed", string(entry.Class), entry.ID)
	}
	var rec Record
	err = rd.Preserve(func() error {
		if err := rd.SeekTo(entry.Offset); err != nil {
			return err
		}
		var err error
		rec, err = decode(h, entry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", string(entry.Class), entry.ID, err)
	}
	return rec, nil
}

// DecodeID looks id up in the handle's index and decodes it.
func (r *Registry) DecodeID(h *cache.Handle, id cache.TagID) (Record, error) {
	entry, err := h.IndexByID(id)
	if err != nil {
		return nil, err
	}
	return r.Decode(h, entry)
}

// Default holds the built-in parsers.
var Default = newDefault()

// Decode uses the Default registry.
func Decode(h *cache.Handle, entry cache.IndexEntry) (Record, error) {
	return Default.Decode(h, entry)
}

// DecodeID uses the Default registry.
func DecodeID(h *cache.Handle, id cache.TagID) (Record, error) {
	return Default.DecodeID(h, id)
}

func newDefault() *Registry {
	r := NewRegistry()
	for _, l := range modelLayouts {
		r.Register(Registration{Classes: []cache.ClassCode{ClassRenderModel}, Min: l.min, Max: l.max, Decode: decodeModel(l)})
	}
	for _, l := range bspLayouts {
		r.Register(Registration{Classes: []cache.ClassCode{ClassStructureBSP}, Min: l.min, Max: l.max, Decode: decodeBSP(l)})
	}
	for _, l := range shaderLayouts {
		r.Register(Registration{Classes: shaderClasses, Min: l.min, Max: l.max, Decode: decodeShader(l)})
	}
	for _, l := range templateLayouts {
		r.Register(Registration{Classes: []cache.ClassCode{ClassTemplate}, Min: l.min, Max: l.max, Decode: decodeTemplate(l)})
	}
	r.Register(Registration{Classes: []cache.ClassCode{ClassMaterial}, Min: cache.Halo4Retail, Max: cache.Halo4Retail, Decode: decodeMaterial})
	return r
}
