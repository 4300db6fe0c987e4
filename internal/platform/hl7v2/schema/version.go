package schema

import (
	"sort"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
)

// Version is the resolved schema of one HL7 version. It is immutable once
// built and safe for concurrent use.
type Version struct {
	id        string
	parent    string
	events    map[string]string
	datatypes map[string][]string
	segments  map[string][]model.FieldDef
	grammars  map[string]string
	messages  map[string]*Node
}

// maxTypeDepth bounds composite nesting to what ER7 can encode: components
// and subcomponents. Deeper composites become primitives of their type.
const maxTypeDepth = 2

func (v *Version) ID() string { return v.id }

// Extends returns the version this one inherits from, or "".
func (v *Version) Extends() string { return v.parent }

// MessageStructures returns the known structure ids in sorted order.
func (v *Version) MessageStructures() []string {
	out := make([]string, 0, len(v.messages))
	for k := range v.messages {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SegmentNames returns the defined segment codes in sorted order.
func (v *Version) SegmentNames() []string {
	out := make([]string, 0, len(v.segments))
	for k := range v.segments {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Events returns a copy of the event map (e.g. ADT_A04 -> ADT_A01).
func (v *Version) Events() map[string]string {
	out := make(map[string]string, len(v.events))
	for k, s := range v.events {
		out[k] = s
	}
	return out
}

// Structure returns the compiled grammar for a message structure.
func (v *Version) Structure(name string) (*Node, bool) {
	n, ok := v.messages[name]
	return n, ok
}

// Grammar returns the grammar source of a message structure.
func (v *Version) Grammar(name string) (string, bool) {
	g, ok := v.grammars[name]
	return g, ok
}

// SegmentDef returns the field definitions of a segment.
func (v *Version) SegmentDef(name string) ([]model.FieldDef, bool) {
	defs, ok := v.segments[name]
	return defs, ok
}

// DataType returns the component types of a composite data type.
func (v *Version) DataType(name string) ([]string, bool) {
	comps, ok := v.datatypes[name]
	return comps, ok
}

// ResolveStructure picks the message structure for MSH-9. The explicit
// structure (MSH-9.3) wins when known, then the event map entry for
// code_trigger, then code_trigger itself, then code alone. It returns ""
// when nothing matches, meaning the message is generic.
func (v *Version) ResolveStructure(code, trigger, structure string) string {
	if structure != "" {
		if _, ok := v.messages[structure]; ok {
			return structure
		}
	}
	if code == "" {
		return ""
	}
	if trigger != "" {
		key := code + "_" + trigger
		if mapped, ok := v.events[key]; ok {
			if _, known := v.messages[mapped]; known {
				return mapped
			}
		}
		if _, ok := v.messages[key]; ok {
			return key
		}
	}
	if _, ok := v.messages[code]; ok {
		return code
	}
	return ""
}

// NewMessage builds an empty message for structure. Unknown structures get a
// generic message that declares only MSH.
func (v *Version) NewMessage(structure string) *model.Message {
	node, ok := v.messages[structure]
	if !ok {
		m := model.NewMessage(model.GenericStructure, v.id, v)
		m.AddChild(v.segmentChild(&Node{Name: "MSH", Required: true}))
		return m
	}
	m := model.NewMessage(structure, v.id, v)
	v.populate(m.Group, node)
	return m
}

func (v *Version) populate(g *model.Group, node *Node) {
	for _, c := range node.Children {
		if c.group {
			g.AddChild(v.groupChild(c))
		} else {
			g.AddChild(v.segmentChild(c))
		}
	}
}

func (v *Version) groupChild(n *Node) model.ChildDef {
	return model.ChildDef{
		Name:          n.Name,
		Required:      n.Required,
		Repeating:     n.Repeating,
		Group:         true,
		FirstSegments: n.First,
		New: func(parent *model.Group) model.Structure {
			g := model.NewGroup(n.Name, parent)
			v.populate(g, n)
			return g
		},
	}
}

func (v *Version) segmentChild(n *Node) model.ChildDef {
	name := n.Name
	return model.ChildDef{
		Name:      name,
		Segment:   name,
		Required:  n.Required,
		Repeating: n.Repeating,
		New: func(parent *model.Group) model.Structure {
			return v.NewSegment(name, parent)
		},
	}
}

// NewSegment implements model.Factory. Segments missing from the table are
// generic: every field is a Varies.
func (v *Version) NewSegment(name string, parent *model.Group) *model.Segment {
	return model.NewSegment(name, parent, v.segments[name], v)
}

// NewType implements model.Factory.
func (v *Version) NewType(name string) model.Type {
	return v.newType(name, 0)
}

func (v *Version) newType(name string, depth int) model.Type {
	if name == model.VariesTypeName || name == "" {
		return model.NewVaries()
	}
	comps, ok := v.datatypes[name]
	if !ok || depth >= maxTypeDepth {
		return model.NewPrimitive(name)
	}
	types := make([]model.Type, len(comps))
	for i, c := range comps {
		types[i] = v.newType(c, depth+1)
	}
	return model.NewComposite(name, types...)
}
