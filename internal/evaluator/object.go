package evaluator

import (
	"strconv"
	"strings"

	"github.com/funvibe/weaver/internal/symbols"
)

type ObjectType string

const (
	INTEGER_OBJ      = "INTEGER"
	STRING_OBJ       = "STRING"
	BOOLEAN_OBJ      = "BOOLEAN"
	NULL_OBJ         = "NULL"
	INSTANCE_OBJ     = "INSTANCE"
	TYPE_OBJ         = "TYPE"
	BUILTIN_OBJ      = "BUILTIN"
	TASK_OBJ         = "TASK"
	SEQUENCE_OBJ     = "SEQUENCE"
	DELEGATE_OBJ     = "DELEGATE"
	ERROR_OBJ        = "ERROR"
	RETURN_VALUE_OBJ = "RETURN_VALUE"
	GOTO_SIGNAL_OBJ  = "GOTO_SIGNAL"
	YIELD_BREAK_OBJ  = "YIELD_BREAK"
)

type Object interface {
	Type() ObjectType
	Inspect() string
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }

// Inspect prints booleans the way Console.WriteLine does.
func (b *Boolean) Inspect() string {
	if b.Value {
		return "True"
	}
	return "False"
}

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "" }

// Instance is an object of a model type. Fields hold backing fields and
// untransformed auto members.
type Instance struct {
	Class  *symbols.Type
	Fields map[string]Object
}

func (i *Instance) Type() ObjectType { return INSTANCE_OBJ }
func (i *Instance) Inspect() string  { return i.Class.Name }

// TypeRef is a type used as the receiver of static members.
type TypeRef struct {
	Class *symbols.Type
}

func (t *TypeRef) Type() ObjectType { return TYPE_OBJ }
func (t *TypeRef) Inspect() string  { return t.Class.Name }

// Builtin is a host type such as Console or Task.
type Builtin struct {
	Name string
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return b.Name }

// Task is a completed task. Async calls run to completion before they return.
type Task struct {
	Value Object
}

func (t *Task) Type() ObjectType { return TASK_OBJ }
func (t *Task) Inspect() string  { return "Task(" + t.Value.Inspect() + ")" }

type Error struct {
	Message string
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "ERROR: " + e.Message }
func (e *Error) Error() string    { return e.Message }

type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

// GotoSignal unwinds blocks until one declares Label.
type GotoSignal struct {
	Label string
}

func (g *GotoSignal) Type() ObjectType { return GOTO_SIGNAL_OBJ }
func (g *GotoSignal) Inspect() string  { return "goto " + g.Label }

type YieldBreak struct{}

func (y *YieldBreak) Type() ObjectType { return YIELD_BREAK_OBJ }
func (y *YieldBreak) Inspect() string  { return "yield break" }

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func nativeBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

func inspectAll(items []Object) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
