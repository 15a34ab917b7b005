package evaluator

import (
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/symbols"
)

// receiver is a resolved member access target. Non-virtual accesses through
// base start the lookup at start instead of the runtime type.
type receiver struct {
	this    *Instance
	start   symbols.TypeID
	virtual bool
}

func (e *Evaluator) evalIdentifier(id *ast.Identifier, env *Environment) Object {
	if _, val, ok := env.resolve(id.Name); ok {
		return val
	}
	if e.program != nil {
		if f := env.current(); f != nil {
			if recv, ok := e.implicit(f, id.Name, -1); ok {
				return e.getMember(recv, id.Name)
			}
		}
		if t, ok := e.program.comp.TypeByName(id.Name); ok {
			return &TypeRef{Class: t}
		}
	}
	if _, ok := builtinTypes[id.Name]; ok {
		return &Builtin{Name: id.Name}
	}
	return newError("identifier not found: %s", id.Name)
}

// implicit resolves an unqualified member name against the running member's
// type: to this for instance members, to the type for static ones.
func (e *Evaluator) implicit(f *frame, name string, arity int) (Object, bool) {
	static := false
	if m, _ := e.program.find(f.class, name, arity); m != nil {
		static = m.Static
	} else if _, st, ok := e.program.field(f.class, name); ok {
		static = st.static
	} else {
		return nil, false
	}
	if static || f.this == nil {
		return &TypeRef{Class: e.program.comp.Type(f.class)}, true
	}
	return &receiver{this: f.this, start: f.class, virtual: true}, true
}

func (e *Evaluator) typeRef(name string) Object {
	if e.program != nil {
		if t, ok := e.program.comp.TypeByName(name); ok {
			return &TypeRef{Class: t}
		}
	}
	if _, ok := builtinTypes[name]; ok {
		return &Builtin{Name: name}
	}
	return newError("unknown type %s", name)
}

// evalReceiver evaluates the object of a member access. this dispatches from
// the running member's type; base skips it.
func (e *Evaluator) evalReceiver(obj ast.Expression, env *Environment) Object {
	switch obj.(type) {
	case *ast.ThisExpression, *ast.BaseExpression:
		f := env.current()
		if f == nil || f.this == nil {
			return newError("this is not available in a static member")
		}
		if _, isBase := obj.(*ast.BaseExpression); isBase {
			base := e.program.comp.Type(f.class).Base
			if base == symbols.NoType {
				return newError("%s has no base type", e.program.comp.Type(f.class).Name)
			}
			return &receiver{this: f.this, start: base}
		}
		return &receiver{this: f.this, start: f.class, virtual: true}
	}
	return e.Eval(obj, env)
}

func (r *receiver) Type() ObjectType { return INSTANCE_OBJ }
func (r *receiver) Inspect() string  { return r.this.Inspect() }

// lookup finds the member that an access to name with the given arity binds
// to. Virtual members bind to the override of the runtime type.
func (e *Evaluator) lookup(recv Object, name string, arity int) (*Method, symbols.TypeID, *Instance, bool) {
	var this *Instance
	var start symbols.TypeID
	virtual := true
	switch r := recv.(type) {
	case *receiver:
		this, start, virtual = r.this, r.start, r.virtual
	case *Instance:
		this, start = r, r.Class.ID
	case *TypeRef:
		start = r.Class.ID
	default:
		return nil, symbols.NoType, nil, false
	}
	m, owner := e.program.find(start, name, arity)
	if m == nil {
		return nil, symbols.NoType, this, true
	}
	if virtual && m.Virtual && this != nil && this.Class.ID != start {
		if o, at := e.program.find(this.Class.ID, name, arity); o != nil && o.Virtual {
			m, owner = o, at
		}
	}
	return m, owner, this, true
}

func (e *Evaluator) getMember(recv Object, name string) Object {
	switch r := recv.(type) {
	case *Builtin:
		return builtinMember(r, name)
	case *Sequence, *Task:
		return newError("%s has no member %s", recv.Type(), name)
	}
	m, owner, this, ok := e.lookup(recv, name, -1)
	if !ok {
		return newError("cannot access %s on %s", name, recv.Type())
	}
	if m != nil {
		if m.Kind != symbols.PropertyDecl {
			return newError("%s is not readable", name)
		}
		return e.callAccessor(m, owner, this, symbols.AccessorGet, nil)
	}
	store, st, err := e.storage(recv, this, name)
	if err != nil {
		return err
	}
	if val, ok := store[name]; ok {
		return val
	}
	return zero(st.typ)
}

// storage returns the field map holding name: the instance fields, or the
// static fields of the declaring type.
func (e *Evaluator) storage(recv Object, this *Instance, name string) (map[string]Object, storage, *Error) {
	start := symbols.NoType
	switch r := recv.(type) {
	case *receiver:
		start = r.start
	case *Instance:
		start = r.Class.ID
	case *TypeRef:
		start = r.Class.ID
		this = nil
	}
	owner, st, ok := e.program.field(start, name)
	if !ok {
		return nil, st, newError("%s has no member %s", e.program.comp.Type(start).Name, name)
	}
	if this != nil && !st.static {
		return this.Fields, st, nil
	}
	if e.statics[owner] == nil {
		e.statics[owner] = make(map[string]Object)
	}
	return e.statics[owner], st, nil
}

func (e *Evaluator) setMember(recv Object, name, op string, val Object) Object {
	m, owner, this, ok := e.lookup(recv, name, -1)
	if !ok {
		return newError("cannot assign %s on %s", name, recv.Type())
	}
	if m != nil {
		var a symbols.AccessorKind
		switch {
		case m.Kind == symbols.PropertyDecl && op == "=":
			a = symbols.AccessorSet
		case m.Kind == symbols.EventDecl && op == "+=":
			a = symbols.AccessorAdd
		case m.Kind == symbols.EventDecl && op == "-=":
			a = symbols.AccessorRemove
		default:
			return newError("operator %s is not valid for %s %s", op, m.Kind, name)
		}
		if res := e.callAccessor(m, owner, this, a, val); isError(res) {
			return res
		}
		return val
	}
	store, st, err := e.storage(recv, this, name)
	if err != nil {
		return err
	}
	cur, ok := store[name]
	if !ok {
		cur = zero(st.typ)
	}
	res := combine(op, cur, val, st.event)
	if isError(res) {
		return res
	}
	store[name] = res
	return res
}

func (e *Evaluator) evalAssignment(a *ast.Assignment, env *Environment) Object {
	val := e.Eval(a.Value, env)
	if isError(val) {
		return val
	}
	switch t := a.Target.(type) {
	case *ast.Identifier:
		if scope, cur, ok := env.resolve(t.Name); ok {
			res := combine(a.Operator, cur, val, false)
			if isError(res) {
				return res
			}
			scope.Set(t.Name, res)
			return res
		}
		if t.Name == "_" {
			return val
		}
		if f := env.current(); f != nil && e.program != nil {
			if recv, ok := e.implicit(f, t.Name, -1); ok {
				return e.setMember(recv, t.Name, a.Operator, val)
			}
		}
		return newError("identifier not found: %s", t.Name)
	case *ast.MemberAccess:
		recv := e.evalReceiver(t.Object, env)
		if isError(recv) {
			return recv
		}
		return e.setMember(recv, t.Member, a.Operator, val)
	}
	return newError("invalid assignment target %T", a.Target)
}

func (e *Evaluator) evalInvocation(call *ast.Invocation, env *Environment) Object {
	args := make([]Object, 0, len(call.Args))
	var recv Object
	var name string
	switch fn := call.Function.(type) {
	case *ast.Identifier:
		name = fn.Name
		f := env.current()
		if f == nil || e.program == nil {
			return newError("function not found: %s", name)
		}
		r, ok := e.implicit(f, name, len(call.Args))
		if !ok {
			return newError("function not found: %s", name)
		}
		recv = r
	case *ast.MemberAccess:
		name = fn.Member
		recv = e.evalReceiver(fn.Object, env)
		if isError(recv) {
			return recv
		}
	default:
		return newError("not callable: %T", call.Function)
	}
	for _, a := range call.Args {
		val := e.Eval(a, env)
		if isError(val) {
			return val
		}
		args = append(args, val)
	}

	switch r := recv.(type) {
	case *Builtin:
		return e.callBuiltin(r, name, args)
	case *Sequence:
		return e.callSequence(r, name, args)
	}
	m, owner, this, ok := e.lookup(recv, name, len(args))
	if !ok {
		return newError("cannot call %s on %s", name, recv.Type())
	}
	if m == nil {
		return newError("no method %s with %d arguments", name, len(args))
	}
	return e.callMethod(m, owner, this, args)
}

// callMethod runs a method body. Bodies that yield run lazily as sequences;
// async bodies complete before their task is returned.
func (e *Evaluator) callMethod(m *Method, owner symbols.TypeID, this *Instance, args []Object) Object {
	if m.Static {
		this = nil
	}
	body := m.Bodies[symbols.AccessorBody]
	if body == nil {
		return newError("%s has no body", m.Name)
	}
	env := newFrameEnvironment(&frame{this: this, class: owner, name: m.Name})
	for i, p := range m.Params {
		env.Set(p, args[i])
	}
	if ast.ContainsYield(body) {
		f := env.frame
		return e.newGenerator(m.Async, func(yield func(Object) *Error) Object {
			f.yield = yield
			return e.run(body, env)
		})
	}
	res := e.run(body, env)
	if isError(res) {
		return res
	}
	if m.Async {
		return &Task{Value: res}
	}
	return res
}

func (e *Evaluator) callAccessor(m *Method, owner symbols.TypeID, this *Instance, a symbols.AccessorKind, value Object) Object {
	if m.Static {
		this = nil
	}
	body, ok := m.Bodies[a]
	if !ok {
		return newError("%s has no %s accessor", m.Name, a)
	}
	env := newFrameEnvironment(&frame{this: this, class: owner, name: m.Name})
	if value != nil {
		env.Set("value", value)
	}
	return e.run(body, env)
}

// run evaluates a body and unwraps its result.
func (e *Evaluator) run(body *ast.Block, env *Environment) Object {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxDepth {
		return newError("call depth exceeds %d", maxDepth)
	}
	switch res := e.evalBlock(body, env).(type) {
	case *ReturnValue:
		return res.Value
	case *Error:
		return res
	case *GotoSignal:
		return newError("label %s not found", res.Label)
	}
	return NULL
}
