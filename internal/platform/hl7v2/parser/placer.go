package parser

import (
	"fmt"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
)

// cursor is the parse position inside one group: pos is the index of the
// child that received the last segment, -1 before the first.
type cursor struct {
	group *model.Group
	pos   int
}

// placer assigns each incoming segment to a place in the structure tree.
// The stack runs from the message (index 0) to the innermost open group.
type placer struct {
	root   *model.Group
	stack  []*cursor
	policy UnexpectedSegments
}

func newPlacer(msg *model.Message, policy UnexpectedSegments) *placer {
	return &placer{
		root:   msg.Group,
		stack:  []*cursor{{group: msg.Group, pos: -1}},
		policy: policy,
	}
}

// place returns a new repetition for the segment. inline is true when
// the segment was added as a nonstandard child.
func (p *placer) place(name string) (seg *model.Segment, inline bool, err error) {
	for level := len(p.stack) - 1; level >= 0; level-- {
		c := p.stack[level]
		if s, ok, err := p.search(level, c, name); err != nil {
			return nil, false, err
		} else if ok {
			return s, false, nil
		}
	}
	s, err := p.unexpected(name)
	return s, err == nil, err
}

// search looks for name among the children of c at or after its position.
// The current child only takes a new repetition when it repeats.
func (p *placer) search(level int, c *cursor, name string) (*model.Segment, bool, error) {
	start := c.pos
	if start < 0 {
		start = 0
	}
	children := c.group.Children()
	for i := start; i < len(children); i++ {
		def := children[i]
		if p.policy == DropToRoot && c.group.IsNonstandard(def.Name) {
			continue
		}
		if i == c.pos && !def.Repeating {
			continue
		}
		if !def.Group {
			if def.Segment != name {
				continue
			}
			s, err := c.group.Add(def.Name)
			if err != nil {
				return nil, false, err
			}
			c.pos = i
			p.stack = p.stack[:level+1]
			return s.(*model.Segment), true, nil
		}
		if !c.group.CanStart(def.Name, name) {
			continue
		}
		s, err := c.group.Add(def.Name)
		if err != nil {
			return nil, false, err
		}
		c.pos = i
		p.stack = append(p.stack[:level+1], &cursor{group: s.(*model.Group), pos: -1})
		inner := len(p.stack) - 1
		seg, ok, err := p.search(inner, p.stack[inner], name)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			// FirstSegments promised a match; a mismatch means the table is
			// inconsistent with the group it describes.
			return nil, false, fmt.Errorf("%w: %s cannot open group %s", ErrUnexpectedSegment, name, def.Name)
		}
		return seg, true, nil
	}
	return nil, false, nil
}

func (p *placer) unexpected(name string) (*model.Segment, error) {
	switch p.policy {
	case Fail:
		inner := p.stack[len(p.stack)-1]
		return nil, fmt.Errorf("%w: %s has no place in %s", ErrUnexpectedSegment, name, inner.group.Name())
	case DropToRoot:
		child := ""
		for _, def := range p.root.Children() {
			if def.Segment == name && p.root.IsNonstandard(def.Name) {
				child = def.Name
				break
			}
		}
		if child == "" {
			child = p.root.AddNonstandardSegment(name, len(p.root.Names()))
		}
		s, err := p.root.Add(child)
		if err != nil {
			return nil, err
		}
		return s.(*model.Segment), nil
	default:
		inner := p.stack[len(p.stack)-1]
		at := inner.pos + 1
		child := inner.group.AddNonstandardSegment(name, at)
		s, err := inner.group.Add(child)
		if err != nil {
			return nil, err
		}
		inner.pos = at
		return s.(*model.Segment), nil
	}
}
