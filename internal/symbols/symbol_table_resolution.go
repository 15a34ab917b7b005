package symbols

// BaseChain returns the base types of t, nearest first, excluding t itself.
func (c *Compilation) BaseChain(t TypeID) []TypeID {
	var chain []TypeID
	seen := map[TypeID]bool{t: true}
	for cur := c.Type(t); cur != nil && cur.Base != NoType; cur = c.Type(cur.Base) {
		if seen[cur.Base] {
			break // malformed input, cyclic inheritance
		}
		seen[cur.Base] = true
		chain = append(chain, cur.Base)
	}
	return chain
}

// IsSubtype reports whether t is of or derives from of.
func (c *Compilation) IsSubtype(t, of TypeID) bool {
	if t == of {
		return true
	}
	for _, b := range c.BaseChain(t) {
		if b == of {
			return true
		}
	}
	return false
}

// Related reports whether one type derives from the other.
func (c *Compilation) Related(a, b TypeID) bool {
	return c.IsSubtype(a, b) || c.IsSubtype(b, a)
}

// FindMember finds a member of t (not its bases) with the given signature.
func (c *Compilation) FindMember(t TypeID, signature string) DeclID {
	typ := c.Type(t)
	if typ == nil {
		return NoDecl
	}
	for _, id := range typ.Members {
		if c.decls[id].Signature() == signature {
			return id
		}
	}
	return NoDecl
}

// LookupInherited finds the nearest member in the base chain of d's declaring
// type with d's signature. It does not look at d's own type.
func (c *Compilation) LookupInherited(d *Declaration) DeclID {
	sig := d.Signature()
	for _, b := range c.BaseChain(d.Type) {
		if id := c.FindMember(b, sig); id != NoDecl {
			return id
		}
	}
	return NoDecl
}

// IsHiding reports whether d hides, rather than overrides, an inherited member.
func (c *Compilation) IsHiding(d *Declaration) bool {
	if d.Overrides {
		return false
	}
	return d.Hides || c.LookupInherited(d) != NoDecl
}

// MostDerivedVisible returns the member that an implicit-this access to
// member from within type t binds to: a same-signature member declared in t
// or between t and member's declaring type (override or hider), else member.
func (c *Compilation) MostDerivedVisible(t TypeID, member DeclID) DeclID {
	m := c.Declaration(member)
	if m == nil || m.Type == t {
		return member
	}
	sig := m.Signature()
	for _, cur := range append([]TypeID{t}, c.BaseChain(t)...) {
		if cur == m.Type {
			break
		}
		if id := c.FindMember(cur, sig); id != NoDecl {
			return id
		}
	}
	return member
}

// HiddenBy returns the member of t that hides base member, if any.
func (c *Compilation) HiddenBy(t TypeID, base DeclID) DeclID {
	v := c.MostDerivedVisible(t, base)
	if v == base {
		return NoDecl
	}
	if d := c.Declaration(v); d != nil && c.IsHiding(d) {
		return v
	}
	return NoDecl
}
