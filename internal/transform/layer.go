package transform

import (
	"fmt"
	"strings"
)

// LayerID is the stable key of a Layer.
type LayerID string

// Layer is one aspect application's pass over the code. Layers are values and
// never change once created.
type Layer struct {
	Aspect   string // Aspect kind, e.g. "LogAttribute"
	Name     string // Layer name within the aspect; empty for the default layer
	Order    int    // Declaration-site order of the aspect application
	Position int    // Index of the layer among its aspect's declared layers
}

// Node is the ordering node of the layer: constraints are declared between
// aspects or aspect layers, not between individual applications.
func (l Layer) Node() string {
	if l.Name == "" {
		return l.Aspect
	}
	return l.Aspect + ":" + l.Name
}

func (l Layer) ID() LayerID {
	return LayerID(fmt.Sprintf("%s#%d", l.Node(), l.Order))
}

func (l Layer) String() string {
	return string(l.ID())
}

// ShortAspect is the aspect name without a trailing "Attribute" suffix, used
// when naming generated members.
func (l Layer) ShortAspect() string {
	name := l.Aspect
	if i := strings.LastIndexAny(name, ".+"); i >= 0 {
		name = name[i+1:]
	}
	if trimmed := strings.TrimSuffix(name, "Attribute"); trimmed != "" {
		name = trimmed
	}
	return name
}
