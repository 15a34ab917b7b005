package transform

import (
	"sort"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/symbols"
)

type slotKey struct {
	layer    LayerID
	accessor symbols.AccessorKind
	proxy    string
}

// TransformationSet gathers every transformation targeting one declaration,
// together with the declaration's original bodies. At most one transformation
// exists per (layer, accessor); entries are only ever added.
type TransformationSet struct {
	Decl   *symbols.Declaration
	Source map[symbols.AccessorKind]*ast.Block // Original bodies; absent for auto, partial or introduced members

	entries []Transformation
	slots   map[slotKey]Transformation
}

func NewSet(decl *symbols.Declaration) *TransformationSet {
	return &TransformationSet{
		Decl:   decl,
		Source: make(map[symbols.AccessorKind]*ast.Block),
		slots:  make(map[slotKey]Transformation),
	}
}

// Add records t. It rejects transformations for another declaration, for an
// accessor the declaration cannot have, and duplicates of an occupied slot.
func (s *TransformationSet) Add(t Transformation, qualified string) *diagnostics.DiagnosticError {
	layer := t.Layer()
	if t.Target() != s.Decl.ID {
		return diagnostics.NewError(diagnostics.ErrW009, qualified, layer.String(),
			"%s transformation targets declaration %d, not %d", t.Kind(), t.Target(), s.Decl.ID)
	}
	keys := s.slotKeys(t)
	for _, k := range keys {
		if !s.Decl.AcceptsAccessor(k.accessor) && k.proxy == "" {
			return diagnostics.NewError(diagnostics.ErrW004, qualified, layer.String(),
				"%s template for the %s accessor cannot apply to a %s", t.Kind(), k.accessor, s.Decl.Kind)
		}
		if !s.Decl.HasAccessor(k.accessor) && k.proxy == "" {
			return diagnostics.NewError(diagnostics.ErrW004, qualified, layer.String(),
				"%s template for the %s accessor, but the %s declares no such accessor", t.Kind(), k.accessor, s.Decl.Kind)
		}
		if prev, taken := s.slots[k]; taken {
			return diagnostics.NewError(diagnostics.ErrW008, qualified, layer.String(),
				"%s transformation for the %s accessor conflicts with an earlier %s from the same layer",
				t.Kind(), k.accessor, prev.Kind())
		}
	}
	for _, k := range keys {
		s.slots[k] = t
	}
	s.entries = append(s.entries, t)
	return nil
}

func (s *TransformationSet) slotKeys(t Transformation) []slotKey {
	id := t.Layer().ID()
	if p, ok := t.(*ProxyInterfaceMember); ok {
		return []slotKey{{layer: id, proxy: p.Interface}}
	}
	kinds := t.Accessors()
	if r, ok := t.(*Redirect); ok && len(r.Only) == 0 {
		kinds = s.Decl.AccessorKinds()
	}
	keys := make([]slotKey, len(kinds))
	for i, k := range kinds {
		keys[i] = slotKey{layer: id, accessor: k}
	}
	return keys
}

// All returns the transformations in insertion order.
func (s *TransformationSet) All() []Transformation {
	return append([]Transformation(nil), s.entries...)
}

func (s *TransformationSet) Len() int { return len(s.entries) }

// At returns the transformation occupying (layer, accessor).
func (s *TransformationSet) At(layer LayerID, a symbols.AccessorKind) (Transformation, bool) {
	t, ok := s.slots[slotKey{layer: layer, accessor: a}]
	return t, ok
}

// Layers returns the distinct layers contributing to the set, sorted by id.
func (s *TransformationSet) Layers() []Layer {
	seen := make(map[LayerID]bool)
	var out []Layer
	for _, t := range s.entries {
		l := t.Layer()
		if !seen[l.ID()] {
			seen[l.ID()] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ForLayer returns the transformations of one layer, in insertion order.
func (s *TransformationSet) ForLayer(id LayerID) []Transformation {
	var out []Transformation
	for _, t := range s.entries {
		if t.Layer().ID() == id {
			out = append(out, t)
		}
	}
	return out
}

// Proxies returns the interface proxies in insertion order.
func (s *TransformationSet) Proxies() []*ProxyInterfaceMember {
	var out []*ProxyInterfaceMember
	for _, t := range s.entries {
		if p, ok := t.(*ProxyInterfaceMember); ok {
			out = append(out, p)
		}
	}
	return out
}

// Introduction returns the introduction of the declaration, if any.
func (s *TransformationSet) Introduction() (*Introduce, bool) {
	for _, t := range s.entries {
		if in, ok := t.(*Introduce); ok {
			return in, true
		}
	}
	return nil, false
}
