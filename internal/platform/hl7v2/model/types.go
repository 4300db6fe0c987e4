package model

// Type is the value held by one field repetition, component or subcomponent.
type Type interface {
	// TypeName is the HL7 data type code, e.g. "CX" or "ST".
	TypeName() string
	IsEmpty() bool
	Clear()
	// Extra holds components found beyond the ones the data type declares.
	Extra() *ExtraComponents
}

// GenericTypeName is used for primitives and composites created without a
// data type definition.
const GenericTypeName = "GENERIC"

// VariesTypeName is the type code of a Varies placeholder.
const VariesTypeName = "varies"

type base struct {
	name  string
	extra ExtraComponents
}

func (b *base) TypeName() string        { return b.name }
func (b *base) Extra() *ExtraComponents { return &b.extra }

// Primitive is a single string value such as ST, ID, NM or DT.
type Primitive struct {
	base
	Value string
}

// NewPrimitive creates an empty primitive of the given data type.
func NewPrimitive(name string) *Primitive {
	return &Primitive{base: base{name: name}}
}

// Set replaces the primitive value.
func (p *Primitive) Set(v string) { p.Value = v }

func (p *Primitive) String() string { return p.Value }

func (p *Primitive) IsEmpty() bool {
	return p.Value == "" && p.extra.isEmpty()
}

func (p *Primitive) Clear() {
	p.Value = ""
	p.extra.Clear()
}

// Composite is a data type made of ordered components. A generic composite has
// no declared components and grows as components are addressed.
type Composite struct {
	base
	components []Type
	generic    bool
}

// NewComposite creates a composite with the given declared components.
func NewComposite(name string, components ...Type) *Composite {
	return &Composite{base: base{name: name}, components: components}
}

// NewGenericComposite creates a composite whose components are Varies created
// on demand.
func NewGenericComposite() *Composite {
	return &Composite{base: base{name: GenericTypeName}, generic: true}
}

// Len returns the number of declared (or, for generic composites, allocated)
// components.
func (c *Composite) Len() int { return len(c.components) }

// Generic reports whether the composite grows on demand.
func (c *Composite) Generic() bool { return c.generic }

// Components returns the declared components in order.
func (c *Composite) Components() []Type { return c.components }

// Component returns the component at the zero-based index. Generic composites
// grow to fit; declared composites report false past their last component.
func (c *Composite) Component(i int) (Type, bool) {
	if i < 0 {
		return nil, false
	}
	if i < len(c.components) {
		return c.components[i], true
	}
	if !c.generic {
		return nil, false
	}
	for len(c.components) <= i {
		c.components = append(c.components, NewVaries())
	}
	return c.components[i], true
}

func (c *Composite) IsEmpty() bool {
	for _, comp := range c.components {
		if !comp.IsEmpty() {
			return false
		}
	}
	return c.extra.isEmpty()
}

func (c *Composite) Clear() {
	for _, comp := range c.components {
		comp.Clear()
	}
	if c.generic {
		c.components = nil
	}
	c.extra.Clear()
}

// Varies stands in for a value whose data type is only known at parse time,
// such as OBX-5 or any field of an undefined segment.
type Varies struct {
	base
	data Type
}

// NewVaries creates a Varies holding an empty generic primitive.
func NewVaries() *Varies {
	return &Varies{base: base{name: VariesTypeName}, data: NewPrimitive(GenericTypeName)}
}

// Data returns the value currently held.
func (v *Varies) Data() Type { return v.data }

// SetData replaces the held value.
func (v *Varies) SetData(t Type) {
	if t == nil {
		t = NewPrimitive(GenericTypeName)
	}
	v.data = t
}

// Expand turns a held primitive into a generic composite whose first
// component is that primitive and whose later components are the
// primitive's extra components. It is a no-op for any other value.
func (v *Varies) Expand() *Composite {
	switch d := v.data.(type) {
	case *Composite:
		return d
	case *Primitive:
		gc := NewGenericComposite()
		first, _ := gc.Component(0)
		first.(*Varies).SetData(d)
		gc.components = append(gc.components, toTypes(d.extra.comps)...)
		d.extra.comps = nil
		v.data = gc
		return gc
	}
	return nil
}

func toTypes(vs []*Varies) []Type {
	out := make([]Type, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func (v *Varies) IsEmpty() bool { return v.data.IsEmpty() && v.extra.isEmpty() }

func (v *Varies) Clear() {
	v.data.Clear()
	v.extra.Clear()
}

// ExtraComponents collects components that appear after the last declared
// component of a data type.
type ExtraComponents struct {
	comps []*Varies
}

// Len returns the number of extra components allocated.
func (e *ExtraComponents) Len() int { return len(e.comps) }

// Component returns the extra component at the zero-based index, allocating
// as needed.
func (e *ExtraComponents) Component(i int) *Varies {
	for len(e.comps) <= i {
		e.comps = append(e.comps, NewVaries())
	}
	return e.comps[i]
}

// All returns the allocated extra components.
func (e *ExtraComponents) All() []*Varies { return e.comps }

func (e *ExtraComponents) Clear() { e.comps = nil }

func (e *ExtraComponents) isEmpty() bool {
	for _, c := range e.comps {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// ComponentAt returns component n (one based) of t, following the rules a
// terser uses: a Varies is looked through, a primitive is its own first
// component, and components past the declared ones come from the extra
// components. A Varies holding a primitive is promoted to a generic composite
// when a later component is requested.
func ComponentAt(t Type, n int) Type {
	if n < 1 {
		n = 1
	}
	if v, ok := t.(*Varies); ok {
		if n > 1 {
			v.Expand()
		}
		t = v.data
	}
	switch tt := t.(type) {
	case *Composite:
		if c, ok := tt.Component(n - 1); ok {
			return c
		}
		return tt.extra.Component(n - 1 - len(tt.components))
	default:
		if n == 1 {
			return t
		}
		return t.Extra().Component(n - 2)
	}
}

// PrimitiveAt returns the primitive at component comp, subcomponent sub (both
// one based) of t. Composites nested deeper than the subcomponent level
// resolve to their first primitive.
func PrimitiveAt(t Type, comp, sub int) *Primitive {
	c := ComponentAt(t, comp)
	sc := ComponentAt(c, sub)
	return FirstPrimitive(sc)
}

// FirstPrimitive descends through Varies and first components until it
// reaches a primitive.
func FirstPrimitive(t Type) *Primitive {
	for {
		switch tt := t.(type) {
		case *Primitive:
			return tt
		case *Varies:
			t = tt.data
		case *Composite:
			c, ok := tt.Component(0)
			if !ok {
				// A declared composite with no components cannot hold a value;
				// fall back to its first extra component.
				t = tt.extra.Component(0)
				continue
			}
			t = c
		default:
			return NewPrimitive(GenericTypeName)
		}
	}
}
