package symbols

import "strings"

// DeclID addresses a Declaration in a Compilation. The zero value is NoDecl.
type DeclID int

// TypeID addresses a Type in a Compilation. The zero value is NoType.
type TypeID int

const (
	NoDecl DeclID = 0
	NoType TypeID = 0
)

type DeclKind int

const (
	MethodDecl DeclKind = iota
	PropertyDecl
	EventDecl
)

func (k DeclKind) String() string {
	switch k {
	case PropertyDecl:
		return "property"
	case EventDecl:
		return "event"
	default:
		return "method"
	}
}

// AccessorKind selects one independently transformable body of a declaration.
// Methods have a single AccessorBody.
type AccessorKind int

const (
	AccessorBody AccessorKind = iota
	AccessorGet
	AccessorSet
	AccessorAdd
	AccessorRemove
)

var accessorNames = [...]string{"body", "get", "set", "add", "remove"}

func (a AccessorKind) String() string {
	if int(a) < len(accessorNames) {
		return accessorNames[a]
	}
	return "unknown"
}

// ParseAccessor maps "get", "set", "add", "remove" and "body" (or "") to an AccessorKind.
func ParseAccessor(s string) (AccessorKind, bool) {
	switch strings.ToLower(s) {
	case "", "body":
		return AccessorBody, true
	case "get":
		return AccessorGet, true
	case "set":
		return AccessorSet, true
	case "add":
		return AccessorAdd, true
	case "remove":
		return AccessorRemove, true
	}
	return AccessorBody, false
}

// Shape is the execution character of a declaration or of one body.
type Shape int

const (
	ShapeVoid Shape = iota
	ShapeValue
	ShapeAsync
	ShapeIterator
	ShapeAsyncIterator
)

var shapeNames = [...]string{"void", "value", "async", "iterator", "async-iterator"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "unknown"
}

// ParseShape accepts the names produced by Shape.String.
func ParseShape(s string) (Shape, bool) {
	for i, n := range shapeNames {
		if n == s {
			return Shape(i), true
		}
	}
	return ShapeVoid, false
}

func (s Shape) IsAsync() bool {
	return s == ShapeAsync || s == ShapeAsyncIterator
}

func (s Shape) IsIterator() bool {
	return s == ShapeIterator || s == ShapeAsyncIterator
}

type Parameter struct {
	Name              string
	Type              string
	CancellationToken bool // Late-bound token forwarded to async buffering
}

// Declaration is a method, property or event. Identity is its ID; the record
// is not mutated once the Compilation is sealed.
type Declaration struct {
	ID         DeclID
	Name       string
	Kind       DeclKind
	Type       TypeID // Declaring type
	Visibility string
	Static     bool
	Virtual    bool
	Overrides  bool // Declared with override
	Hides      bool // Declared with new
	Partial    bool // Partial declaration whose implementation lives in another unit
	Auto       bool // Auto-property or field-like event
	Introduced bool // Created by an introduction, absent from source

	Shape      Shape
	ReturnType string // Declared type: "void", "int", "Task<int>", "IEnumerable<int>"; property/event type
	ResultType string // Awaited or element type; empty for void and non-generic Task
	Params     []Parameter
	Accessors  []AccessorKind
}

// AccessorKinds returns the transformable bodies of the declaration in
// canonical order.
func (d *Declaration) AccessorKinds() []AccessorKind {
	if d.Kind == MethodDecl {
		return []AccessorKind{AccessorBody}
	}
	out := make([]AccessorKind, 0, 2)
	for _, k := range []AccessorKind{AccessorGet, AccessorSet, AccessorAdd, AccessorRemove} {
		if d.HasAccessor(k) {
			out = append(out, k)
		}
	}
	return out
}

func (d *Declaration) HasAccessor(a AccessorKind) bool {
	if d.Kind == MethodDecl {
		return a == AccessorBody
	}
	if len(d.Accessors) == 0 {
		return d.validAccessor(a)
	}
	for _, k := range d.Accessors {
		if k == a {
			return true
		}
	}
	return false
}

func (d *Declaration) validAccessor(a AccessorKind) bool {
	switch d.Kind {
	case PropertyDecl:
		return a == AccessorGet || a == AccessorSet
	case EventDecl:
		return a == AccessorAdd || a == AccessorRemove
	}
	return a == AccessorBody
}

// AcceptsAccessor reports whether a template for kind a can apply to the
// declaration at all, independently of which accessors it declares.
func (d *Declaration) AcceptsAccessor(a AccessorKind) bool {
	return d.validAccessor(a)
}

// ReturnsValue reports whether the accessor produces a value.
func (d *Declaration) ReturnsValue(a AccessorKind) bool {
	switch a {
	case AccessorGet:
		return true
	case AccessorSet, AccessorAdd, AccessorRemove:
		return false
	}
	switch d.Shape {
	case ShapeVoid:
		return false
	case ShapeAsync:
		return d.ResultType != ""
	}
	return true
}

// ValueType is the type of the value a body of accessor a returns from a
// `return` statement: the awaited type for async methods, the property type
// for getters.
func (d *Declaration) ValueType(a AccessorKind) string {
	if a == AccessorGet {
		return d.ReturnType
	}
	if d.Kind == MethodDecl && d.Shape == ShapeAsync {
		return d.ResultType
	}
	return d.ReturnType
}

// CancellationToken returns the name of the cancellation token parameter, if any.
func (d *Declaration) CancellationToken() (string, bool) {
	for _, p := range d.Params {
		if p.CancellationToken {
			return p.Name, true
		}
	}
	return "", false
}

// Signature identifies the declaration among same-named members: name and
// parameter types for methods, name alone for properties and events.
func (d *Declaration) Signature() string {
	if d.Kind != MethodDecl {
		return d.Kind.String() + " " + d.Name
	}
	types := make([]string, len(d.Params))
	for i, p := range d.Params {
		types[i] = p.Type
	}
	return d.Name + "(" + strings.Join(types, ",") + ")"
}

// Type is a class or interface in the compilation.
type Type struct {
	ID         TypeID
	Name       string
	Base       TypeID
	Interface  bool
	Interfaces []TypeID
	Members    []DeclID
}
