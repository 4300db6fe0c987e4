package hl7v2

import (
	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
)

// Node is the JSON form of one populated group or segment repetition.
type Node struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Rep      int     `json:"rep,omitempty"`
	Children []Node  `json:"children,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
}

// Field is one populated field of a segment. Repetitions hold the encoded
// text of each repetition.
type Field struct {
	Seq         int      `json:"seq"`
	Name        string   `json:"name,omitempty"`
	Type        string   `json:"type,omitempty"`
	Repetitions []string `json:"repetitions"`
}

// Tree converts msg into its JSON form. Empty structures are omitted.
func Tree(msg *model.Message) Node {
	return groupNode(msg.Group, msg.Structure(), 0, msg.Delimiters())
}

func groupNode(g *model.Group, name string, rep int, d encoding.Delimiters) Node {
	n := Node{Name: name, Kind: "group", Rep: rep}
	for _, child := range g.Names() {
		for r := 0; ; r++ {
			s, ok := g.Existing(child, r)
			if !ok {
				break
			}
			if s.IsEmpty() {
				continue
			}
			switch s := s.(type) {
			case *model.Group:
				n.Children = append(n.Children, groupNode(s, child, r, d))
			case *model.Segment:
				n.Children = append(n.Children, segmentNode(s, child, r, d))
			}
		}
	}
	return n
}

func segmentNode(s *model.Segment, name string, rep int, d encoding.Delimiters) Node {
	n := Node{Name: name, Kind: "segment", Rep: rep}
	for i := 1; i <= s.NumFields(); i++ {
		reps, _ := s.Field(i)
		if len(reps) == 0 {
			continue
		}
		f := Field{Seq: i}
		if def, ok := s.FieldDef(i); ok {
			f.Name, f.Type = def.Name, def.Type
		}
		empty := true
		for _, t := range reps {
			text := parser.EncodeType(t, d)
			if s.Name() == "MSH" && i <= 2 {
				text = model.FirstPrimitive(t).Value
			}
			if text != "" {
				empty = false
			}
			f.Repetitions = append(f.Repetitions, text)
		}
		if !empty {
			n.Fields = append(n.Fields, f)
		}
	}
	return n
}
