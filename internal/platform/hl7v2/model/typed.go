package model

import "fmt"

// Typed views over a group's children, used by the generated structure
// wrappers.

// Count returns the repetitions in use of the named child, or 0 when the
// group has no such child.
func (g *Group) Count(name string) int {
	n, err := g.RepetitionsUsed(name)
	if err != nil {
		return 0
	}
	return n
}

// SegmentReps returns every repetition of a segment child.
func (g *Group) SegmentReps(name string) ([]*Segment, error) {
	all, err := g.GetAll(name)
	if err != nil {
		return nil, err
	}
	out := make([]*Segment, len(all))
	for i, s := range all {
		seg, ok := s.(*Segment)
		if !ok {
			return nil, fmt.Errorf("%w: %s is a group", ErrWrongKind, name)
		}
		out[i] = seg
	}
	return out, nil
}

// GroupReps returns every repetition of a group child.
func (g *Group) GroupReps(name string) ([]*Group, error) {
	all, err := g.GetAll(name)
	if err != nil {
		return nil, err
	}
	out := make([]*Group, len(all))
	for i, s := range all {
		grp, ok := s.(*Group)
		if !ok {
			return nil, fmt.Errorf("%w: %s is a segment", ErrWrongKind, name)
		}
		out[i] = grp
	}
	return out, nil
}

// AddSegment appends a repetition of a segment child.
func (g *Group) AddSegment(name string) (*Segment, error) {
	return g.GetSegment(name, g.Count(name))
}

// AddGroup appends a repetition of a group child.
func (g *Group) AddGroup(name string) (*Group, error) {
	return g.GetGroup(name, g.Count(name))
}

// RemoveSegmentAt removes and returns repetition rep of a segment child.
func (g *Group) RemoveSegmentAt(name string, rep int) (*Segment, error) {
	if err := g.expectKind(name, false); err != nil {
		return nil, err
	}
	s, err := g.RemoveRepetition(name, rep)
	if err != nil {
		return nil, err
	}
	return s.(*Segment), nil
}

// RemoveGroupAt removes and returns repetition rep of a group child.
func (g *Group) RemoveGroupAt(name string, rep int) (*Group, error) {
	if err := g.expectKind(name, true); err != nil {
		return nil, err
	}
	s, err := g.RemoveRepetition(name, rep)
	if err != nil {
		return nil, err
	}
	return s.(*Group), nil
}

func (g *Group) expectKind(name string, group bool) error {
	c, err := g.lookup(name)
	if err != nil {
		return err
	}
	if c.def.Group != group {
		kind := "segment"
		if c.def.Group {
			kind = "group"
		}
		return fmt.Errorf("%w: %s is a %s", ErrWrongKind, name, kind)
	}
	return nil
}
