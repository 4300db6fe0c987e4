// Package model is the in-memory HL7 v2 structure tree: messages are groups,
// groups hold ordered repeating children (segments or nested groups) and
// segments hold repeating fields of typed values.
package model

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrUnknownStructure     = errors.New("hl7v2: unknown structure")
	ErrNotRepeating         = errors.New("hl7v2: structure does not repeat")
	ErrRepetitionOutOfRange = errors.New("hl7v2: repetition out of range")
	ErrFieldOutOfRange      = errors.New("hl7v2: field number out of range")
	ErrWrongKind            = errors.New("hl7v2: structure is not of the requested kind")
)

// Structure is a node of the message tree: a *Segment or a *Group.
type Structure interface {
	Name() string
	Parent() *Group
	Message() *Message
	IsEmpty() bool
	IsSegment() bool
}

// Factory builds segments and data types for one HL7 version.
type Factory interface {
	NewSegment(name string, parent *Group) *Segment
	NewType(typeName string) Type
}

// GenericFactory builds definition-less segments whose fields are Varies.
type GenericFactory struct{}

func (GenericFactory) NewSegment(name string, parent *Group) *Segment {
	return NewSegment(name, parent, nil, GenericFactory{})
}

func (GenericFactory) NewType(string) Type { return NewVaries() }

// ChildDef registers one child of a group.
type ChildDef struct {
	// Name is unique within the group; a segment appearing twice gets a
	// numeric suffix (ROL, ROL2).
	Name string
	// Segment is the segment code for segment children.
	Segment   string
	Required  bool
	Repeating bool
	Group     bool
	// FirstSegments lists the segment codes that may open a group child.
	FirstSegments []string
	// New builds an empty instance under parent.
	New func(parent *Group) Structure
}

type child struct {
	def         ChildDef
	reps        []Structure
	nonstandard bool
}

// Group is an ordered cluster of child structures, each with its own
// cardinality.
type Group struct {
	name     string
	parent   *Group
	msg      *Message
	children []*child
	index    map[string]int
}

// NewGroup creates an empty group under parent.
func NewGroup(name string, parent *Group) *Group {
	g := &Group{name: name, parent: parent, index: make(map[string]int)}
	if parent != nil {
		g.msg = parent.msg
	}
	return g
}

func (g *Group) Name() string    { return g.name }
func (g *Group) Parent() *Group  { return g.parent }
func (g *Group) IsSegment() bool { return false }

// Message returns the message at the root of the tree.
func (g *Group) Message() *Message { return g.msg }

// AddChild registers a child and returns the name it was registered under.
func (g *Group) AddChild(def ChildDef) string {
	return g.insertChild(def, len(g.children), false)
}

func (g *Group) insertChild(def ChildDef, at int, nonstandard bool) string {
	if !def.Group && def.Segment == "" {
		def.Segment = def.Name
	}
	def.Name = g.uniqueName(def.Name)
	c := &child{def: def, nonstandard: nonstandard}
	if at < 0 || at > len(g.children) {
		at = len(g.children)
	}
	g.children = append(g.children, nil)
	copy(g.children[at+1:], g.children[at:])
	g.children[at] = c
	for i := at; i < len(g.children); i++ {
		g.index[g.children[i].def.Name] = i
	}
	return def.Name
}

func (g *Group) uniqueName(name string) string {
	if _, taken := g.index[name]; !taken {
		return name
	}
	for n := 2; ; n++ {
		candidate := name + strconv.Itoa(n)
		if _, taken := g.index[candidate]; !taken {
			return candidate
		}
	}
}

// AddNonstandardSegment registers a repeating segment child that is not part
// of the group definition, inserted at index. It returns the child name.
func (g *Group) AddNonstandardSegment(segment string, index int) string {
	def := ChildDef{
		Name:      segment,
		Segment:   segment,
		Repeating: true,
	}
	def.New = func(parent *Group) Structure {
		return parent.newSegment(segment)
	}
	return g.insertChild(def, index, true)
}

func (g *Group) newSegment(name string) *Segment {
	if g.msg != nil && g.msg.factory != nil {
		return g.msg.factory.NewSegment(name, g)
	}
	return GenericFactory{}.NewSegment(name, g)
}

// Names returns the child names in definition order.
func (g *Group) Names() []string {
	names := make([]string, len(g.children))
	for i, c := range g.children {
		names[i] = c.def.Name
	}
	return names
}

// Children returns copies of the child definitions in order.
func (g *Group) Children() []ChildDef {
	defs := make([]ChildDef, len(g.children))
	for i, c := range g.children {
		defs[i] = c.def
	}
	return defs
}

// ChildIndex returns the position of the named child, or -1.
func (g *Group) ChildIndex(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	return -1
}

func (g *Group) lookup(name string) (*child, error) {
	i, ok := g.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a child of %s", ErrUnknownStructure, name, g.name)
	}
	return g.children[i], nil
}

// Def returns the definition of the named child.
func (g *Group) Def(name string) (ChildDef, error) {
	c, err := g.lookup(name)
	if err != nil {
		return ChildDef{}, err
	}
	return c.def, nil
}

func (g *Group) IsRequired(name string) bool {
	c, err := g.lookup(name)
	return err == nil && c.def.Required
}

func (g *Group) IsRepeating(name string) bool {
	c, err := g.lookup(name)
	return err == nil && c.def.Repeating
}

func (g *Group) IsGroup(name string) bool {
	c, err := g.lookup(name)
	return err == nil && c.def.Group
}

func (g *Group) IsNonstandard(name string) bool {
	c, err := g.lookup(name)
	return err == nil && c.nonstandard
}

// CanStart reports whether segment may be the first segment of the named
// child: its own code for segments, its first-segment set for groups.
func (g *Group) CanStart(name, segment string) bool {
	c, err := g.lookup(name)
	if err != nil {
		return false
	}
	if !c.def.Group {
		return c.def.Segment == segment
	}
	for _, s := range c.def.FirstSegments {
		if s == segment {
			return true
		}
	}
	return false
}

// Get returns the first repetition of the named child, creating it if absent.
func (g *Group) Get(name string) (Structure, error) {
	return g.GetRep(name, 0)
}

// GetRep returns repetition rep (zero based) of the named child. Asking for
// the repetition right after the last one creates it.
func (g *Group) GetRep(name string, rep int) (Structure, error) {
	c, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	if rep < 0 || rep > len(c.reps) {
		return nil, fmt.Errorf("%w: %s(%d), %d in use", ErrRepetitionOutOfRange, name, rep, len(c.reps))
	}
	if rep < len(c.reps) {
		return c.reps[rep], nil
	}
	if rep > 0 && !c.def.Repeating {
		return nil, fmt.Errorf("%w: %s", ErrNotRepeating, name)
	}
	s := c.def.New(g)
	c.reps = append(c.reps, s)
	return s, nil
}

// Existing returns repetition rep of the named child without creating it.
func (g *Group) Existing(name string, rep int) (Structure, bool) {
	c, err := g.lookup(name)
	if err != nil || rep < 0 || rep >= len(c.reps) {
		return nil, false
	}
	return c.reps[rep], true
}

// GetAll returns every repetition of the named child. A required child with
// no repetitions yet is created so that callers always see it.
func (g *Group) GetAll(name string) ([]Structure, error) {
	c, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	if len(c.reps) == 0 && c.def.Required {
		if _, err := g.GetRep(name, 0); err != nil {
			return nil, err
		}
	}
	out := make([]Structure, len(c.reps))
	copy(out, c.reps)
	return out, nil
}

// RepetitionsUsed returns how many repetitions of the named child exist.
func (g *Group) RepetitionsUsed(name string) (int, error) {
	c, err := g.lookup(name)
	if err != nil {
		return 0, err
	}
	return len(c.reps), nil
}

// Add appends a new repetition of the named child.
func (g *Group) Add(name string) (Structure, error) {
	n, err := g.RepetitionsUsed(name)
	if err != nil {
		return nil, err
	}
	return g.GetRep(name, n)
}

// InsertRepetition creates a new repetition at position rep, shifting later
// repetitions back.
func (g *Group) InsertRepetition(name string, rep int) (Structure, error) {
	c, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	if rep < 0 || rep > len(c.reps) {
		return nil, fmt.Errorf("%w: %s(%d), %d in use", ErrRepetitionOutOfRange, name, rep, len(c.reps))
	}
	if !c.def.Repeating && len(c.reps) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotRepeating, name)
	}
	s := c.def.New(g)
	c.reps = append(c.reps, nil)
	copy(c.reps[rep+1:], c.reps[rep:])
	c.reps[rep] = s
	return s, nil
}

// RemoveRepetition deletes and returns repetition rep of the named child.
func (g *Group) RemoveRepetition(name string, rep int) (Structure, error) {
	c, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	if rep < 0 || rep >= len(c.reps) {
		return nil, fmt.Errorf("%w: %s(%d), %d in use", ErrRepetitionOutOfRange, name, rep, len(c.reps))
	}
	s := c.reps[rep]
	c.reps = append(c.reps[:rep], c.reps[rep+1:]...)
	return s, nil
}

// Remove deletes the given repetition of the named child.
func (g *Group) Remove(name string, s Structure) error {
	c, err := g.lookup(name)
	if err != nil {
		return err
	}
	for i, r := range c.reps {
		if r == s {
			_, err := g.RemoveRepetition(name, i)
			return err
		}
	}
	return fmt.Errorf("%w: structure is not a repetition of %s", ErrUnknownStructure, name)
}

// GetSegment is Get restricted to segment children.
func (g *Group) GetSegment(name string, rep int) (*Segment, error) {
	s, err := g.GetRep(name, rep)
	if err != nil {
		return nil, err
	}
	seg, ok := s.(*Segment)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a group", ErrWrongKind, name)
	}
	return seg, nil
}

// GetGroup is Get restricted to group children.
func (g *Group) GetGroup(name string, rep int) (*Group, error) {
	s, err := g.GetRep(name, rep)
	if err != nil {
		return nil, err
	}
	grp, ok := s.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a segment", ErrWrongKind, name)
	}
	return grp, nil
}

// Clear removes every repetition of every child and drops nonstandard
// children.
func (g *Group) Clear() {
	kept := g.children[:0]
	for _, c := range g.children {
		if c.nonstandard {
			continue
		}
		c.reps = nil
		kept = append(kept, c)
	}
	g.children = kept
	g.index = make(map[string]int, len(kept))
	for i, c := range kept {
		g.index[c.def.Name] = i
	}
}

func (g *Group) IsEmpty() bool {
	for _, c := range g.children {
		for _, r := range c.reps {
			if !r.IsEmpty() {
				return false
			}
		}
	}
	return true
}

// Walk visits every existing structure under g in document order. Returning
// false from fn stops the walk.
func (g *Group) Walk(fn func(s Structure) bool) bool {
	for _, c := range g.children {
		for _, r := range c.reps {
			if !fn(r) {
				return false
			}
			if sub, ok := r.(*Group); ok {
				if !sub.Walk(fn) {
					return false
				}
			}
		}
	}
	return true
}

// Segments returns every existing segment under g in document order.
func (g *Group) Segments() []*Segment {
	var segs []*Segment
	g.Walk(func(s Structure) bool {
		if seg, ok := s.(*Segment); ok {
			segs = append(segs, seg)
		}
		return true
	})
	return segs
}
