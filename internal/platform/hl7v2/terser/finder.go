package terser

import (
	"fmt"
	"path"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
)

// Finder navigates a message tree from a current position: a group and the
// index of a child inside it. Searches run depth-first from that position
// and climb out to enclosing groups when the current one is exhausted.
type Finder struct {
	root   *model.Group
	group  *model.Group
	pos    int
	create bool
}

// NewFinder returns a finder positioned at the start of msg. It creates
// missing structures as it navigates.
func NewFinder(msg *model.Message) *Finder {
	return &Finder{root: msg.Group, group: msg.Group, create: true}
}

// Reset moves the finder back to the start of the message.
func (f *Finder) Reset() {
	f.group = f.root
	f.pos = 0
}

// Current returns the group the finder is positioned in.
func (f *Finder) Current() *model.Group { return f.group }

// GetSegment returns repetition rep of the segment child name of the current
// group.
func (f *Finder) GetSegment(name string, rep int) (*model.Segment, error) {
	s, err := f.direct(name, rep, false)
	if err != nil {
		return nil, err
	}
	return s.(*model.Segment), nil
}

// GetGroup returns repetition rep of the group child name of the current
// group and moves into it.
func (f *Finder) GetGroup(name string, rep int) (*model.Group, error) {
	s, err := f.direct(name, rep, true)
	if err != nil {
		return nil, err
	}
	return s.(*model.Group), nil
}

// FindSegment searches for the first segment whose name matches pattern and
// returns its repetition rep. Existing segments are preferred; when none
// matches and the finder creates, the first matching definition is used.
func (f *Finder) FindSegment(pattern string, rep int) (*model.Segment, error) {
	s, err := f.find(pattern, rep, false)
	if err != nil {
		return nil, err
	}
	return s.(*model.Segment), nil
}

// FindGroup is FindSegment for groups. The finder moves into the group.
func (f *Finder) FindGroup(pattern string, rep int) (*model.Group, error) {
	s, err := f.find(pattern, rep, true)
	if err != nil {
		return nil, err
	}
	return s.(*model.Group), nil
}

func (f *Finder) direct(name string, rep int, wantGroup bool) (model.Structure, error) {
	def, err := f.group.Def(name)
	if err != nil {
		return nil, err
	}
	if def.Group != wantGroup {
		return nil, fmt.Errorf("%w: %s in %s", model.ErrWrongKind, name, f.group.Name())
	}
	s, err := f.rep(f.group, name, rep)
	if err != nil {
		return nil, err
	}
	f.moveTo(f.group, f.group.ChildIndex(name), s)
	return s, nil
}

// rep returns repetition rep of a child, creating it and any missing
// repetitions before it when the finder creates.
func (f *Finder) rep(g *model.Group, name string, rep int) (model.Structure, error) {
	if s, ok := g.Existing(name, rep); ok {
		return s, nil
	}
	if !f.create {
		return nil, fmt.Errorf("%w: %s(%d) in %s", ErrNotFound, name, rep, g.Name())
	}
	n, err := g.RepetitionsUsed(name)
	if err != nil {
		return nil, err
	}
	for r := n; r < rep; r++ {
		if _, err := g.GetRep(name, r); err != nil {
			return nil, err
		}
	}
	return g.GetRep(name, rep)
}

func (f *Finder) moveTo(g *model.Group, index int, s model.Structure) {
	if sub, ok := s.(*model.Group); ok {
		f.group, f.pos = sub, 0
		return
	}
	f.group, f.pos = g, index
}

type target struct {
	pattern string
	group   bool
}

func (t target) matches(def model.ChildDef) bool {
	if def.Group != t.group {
		return false
	}
	if ok, _ := path.Match(t.pattern, def.Name); ok {
		return true
	}
	ok, _ := path.Match(t.pattern, def.Segment)
	return !def.Group && ok
}

func (f *Finder) find(pattern string, rep int, wantGroup bool) (model.Structure, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPath, pattern, err)
	}
	t := target{pattern: pattern, group: wantGroup}

	passes := []bool{true}
	if f.create {
		passes = append(passes, false)
	}
	for _, existing := range passes {
		g, start := f.group, f.pos
		for g != nil {
			h, ok, err := f.search(g, start, t, rep, existing)
			if err != nil {
				return nil, err
			}
			if ok {
				f.moveTo(h.group, h.index, h.s)
				return h.s, nil
			}
			if g == f.root || g.Parent() == nil {
				break
			}
			start = g.Parent().ChildIndex(g.Name()) + 1
			g = g.Parent()
		}
	}
	return nil, fmt.Errorf("%w: %s(%d)", ErrNotFound, pattern, rep)
}

type hit struct {
	s     model.Structure
	group *model.Group
	index int
}

// search walks the children of g from start. In the existing pass only
// children with repetitions are considered and the first match decides.
// In the definition pass groups are probed with detached instances and only
// attached once a match is known to be inside.
func (f *Finder) search(g *model.Group, start int, t target, rep int, existing bool) (hit, bool, error) {
	children := g.Children()
	for i := start; i < len(children); i++ {
		def := children[i]
		n, _ := g.RepetitionsUsed(def.Name)
		if existing && n == 0 {
			continue
		}
		if t.matches(def) {
			s, err := f.rep(g, def.Name, rep)
			if err != nil {
				if !f.create {
					return hit{}, false, nil
				}
				return hit{}, false, err
			}
			return hit{s: s, group: g, index: i}, true, nil
		}
		if !def.Group {
			continue
		}
		if existing {
			for r := 0; r < n; r++ {
				sub, _ := g.Existing(def.Name, r)
				if h, ok, err := f.search(sub.(*model.Group), 0, t, rep, true); err != nil || ok {
					return h, ok, err
				}
			}
			continue
		}
		if !contains(def.New(g).(*model.Group), t) {
			continue
		}
		sub, err := f.rep(g, def.Name, 0)
		if err != nil {
			return hit{}, false, err
		}
		return f.search(sub.(*model.Group), 0, t, rep, false)
	}
	return hit{}, false, nil
}

// contains reports whether the definition of g has a child matching t at
// any depth. g is a detached instance and is discarded.
func contains(g *model.Group, t target) bool {
	for _, def := range g.Children() {
		if t.matches(def) {
			return true
		}
		if def.Group && contains(def.New(g).(*model.Group), t) {
			return true
		}
	}
	return false
}
