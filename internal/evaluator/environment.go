package evaluator

import (
	"sync"

	"github.com/funvibe/weaver/internal/symbols"
)

// frame is the member invocation an environment belongs to.
type frame struct {
	this  *Instance      // nil in static members
	class symbols.TypeID // Declaring type of the running member
	name  string
	yield func(Object) *Error // nil outside iterator bodies
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Object)}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

func newFrameEnvironment(f *frame) *Environment {
	env := NewEnvironment()
	env.frame = f
	return env
}

type Environment struct {
	mu    sync.RWMutex
	store map[string]Object
	outer *Environment
	frame *frame
}

func (e *Environment) Get(name string) (Object, bool) {
	e.mu.RLock()
	obj, ok := e.store[name]
	e.mu.RUnlock()
	if !ok && e.outer != nil {
		obj, ok = e.outer.Get(name)
	}
	return obj, ok
}

func (e *Environment) Set(name string, val Object) Object {
	e.mu.Lock()
	e.store[name] = val
	e.mu.Unlock()
	return val
}

func (e *Environment) Update(name string, val Object) bool {
	e.mu.Lock()
	_, ok := e.store[name]
	if ok {
		e.store[name] = val
		e.mu.Unlock()
		return true
	}
	e.mu.Unlock()
	if e.outer != nil {
		return e.outer.Update(name, val)
	}
	return false
}

// current returns the innermost member invocation, or nil at top level.
func (e *Environment) current() *frame {
	for cur := e; cur != nil; cur = cur.outer {
		if cur.frame != nil {
			return cur.frame
		}
	}
	return nil
}

// resolve finds the scope binding name. Bodies are either unwoven sources
// or renamed woven output, where no binding shadows another, so spliced
// blocks scope like any other block.
func (e *Environment) resolve(name string) (*Environment, Object, bool) {
	for cur := e; cur != nil; cur = cur.outer {
		cur.mu.RLock()
		obj, ok := cur.store[name]
		cur.mu.RUnlock()
		if ok {
			return cur, obj, true
		}
	}
	return nil, nil, false
}
