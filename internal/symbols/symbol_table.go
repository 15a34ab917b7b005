package symbols

import "fmt"

// Compilation is the arena of types and declarations for one weaving pass.
// Relationships (declaring type, members, base type) are ID lookups. After
// Seal the compilation is read-only and safe for concurrent queries.
type Compilation struct {
	types      []*Type
	decls      []*Declaration
	typeByName map[string]TypeID
	sealed     bool
}

func NewCompilation() *Compilation {
	return &Compilation{
		// index 0 is reserved for NoType / NoDecl
		types:      []*Type{nil},
		decls:      []*Declaration{nil},
		typeByName: make(map[string]TypeID),
	}
}

// AddType registers a type. Names are unique within a compilation.
func (c *Compilation) AddType(name string, base TypeID) (*Type, error) {
	if c.sealed {
		return nil, fmt.Errorf("compilation is sealed")
	}
	if _, exists := c.typeByName[name]; exists {
		return nil, fmt.Errorf("duplicate type %s", name)
	}
	if base != NoType && c.Type(base) == nil {
		return nil, fmt.Errorf("type %s: unknown base type id %d", name, base)
	}
	t := &Type{ID: TypeID(len(c.types)), Name: name, Base: base}
	c.types = append(c.types, t)
	c.typeByName[name] = t.ID
	return t, nil
}

// AddDeclaration assigns an ID to d and attaches it to its declaring type.
func (c *Compilation) AddDeclaration(d *Declaration) (DeclID, error) {
	if c.sealed {
		return NoDecl, fmt.Errorf("compilation is sealed")
	}
	t := c.Type(d.Type)
	if t == nil {
		return NoDecl, fmt.Errorf("declaration %s: unknown declaring type id %d", d.Name, d.Type)
	}
	for _, a := range d.Accessors {
		if !d.validAccessor(a) {
			return NoDecl, fmt.Errorf("declaration %s.%s: %s accessor is not valid for a %s", t.Name, d.Name, a, d.Kind)
		}
	}
	if d.Visibility == "" {
		d.Visibility = "public"
	}
	d.ID = DeclID(len(c.decls))
	c.decls = append(c.decls, d)
	t.Members = append(t.Members, d.ID)
	return d.ID, nil
}

// Seal forbids further additions.
func (c *Compilation) Seal() { c.sealed = true }

func (c *Compilation) Type(id TypeID) *Type {
	if id <= NoType || int(id) >= len(c.types) {
		return nil
	}
	return c.types[id]
}

func (c *Compilation) Declaration(id DeclID) *Declaration {
	if id <= NoDecl || int(id) >= len(c.decls) {
		return nil
	}
	return c.decls[id]
}

func (c *Compilation) TypeByName(name string) (*Type, bool) {
	id, ok := c.typeByName[name]
	if !ok {
		return nil, false
	}
	return c.types[id], true
}

// Declarations returns all declarations in ID order.
func (c *Compilation) Declarations() []*Declaration {
	return c.decls[1:]
}

// Types returns all types in ID order.
func (c *Compilation) Types() []*Type {
	return c.types[1:]
}

// QualifiedName returns "Type.Member" for a declaration id.
func (c *Compilation) QualifiedName(id DeclID) string {
	d := c.Declaration(id)
	if d == nil {
		return fmt.Sprintf("<decl %d>", id)
	}
	if t := c.Type(d.Type); t != nil {
		return t.Name + "." + d.Name
	}
	return d.Name
}

// LookupQualified finds a declaration by "Type.Member". When several members
// share the name (overloads) the first declared one is returned.
func (c *Compilation) LookupQualified(qualified string) (*Declaration, bool) {
	for i := len(qualified) - 1; i > 0; i-- {
		if qualified[i] != '.' {
			continue
		}
		t, ok := c.TypeByName(qualified[:i])
		if !ok {
			return nil, false
		}
		for _, id := range t.Members {
			if d := c.decls[id]; d.Name == qualified[i+1:] {
				return d, true
			}
		}
		return nil, false
	}
	return nil, false
}

// MemberNames returns the names of all members of t, used for collision checks
// when naming generated members.
func (c *Compilation) MemberNames(t TypeID) map[string]bool {
	names := make(map[string]bool)
	typ := c.Type(t)
	if typ == nil {
		return names
	}
	for _, id := range typ.Members {
		names[c.decls[id].Name] = true
	}
	return names
}
