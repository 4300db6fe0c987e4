// Package terser reads and writes message values by path, e.g.
// "/PATIENT_RESULT/ORDER_OBSERVATION(1)/OBR-4-2" or "/.OBX(2)-5".
package terser

import (
	"fmt"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
)

// Terser addresses values in one message. Relative paths continue from the
// position the previous path left the finder in.
type Terser struct {
	msg    *model.Message
	finder *Finder
}

// New returns a terser over msg.
func New(msg *model.Message) *Terser {
	return &Terser{msg: msg, finder: NewFinder(msg)}
}

// Message returns the message the terser works on.
func (t *Terser) Message() *model.Message { return t.msg }

// Finder returns the finder used to resolve relative paths.
func (t *Terser) Finder() *Finder { return t.finder }

// Get returns the value at expr. Absent structures and values read as "";
// only a malformed path is an error. Get never changes the message.
func (t *Terser) Get(expr string) (string, error) {
	p, err := ParsePath(expr)
	if err != nil {
		return "", err
	}
	seg, err := t.resolve(p, false)
	if err != nil {
		return "", nil
	}
	return GetValue(seg, p.Field, p.FieldRep, p.Component, p.Subcomponent), nil
}

// Set stores value at expr, creating groups, segments and repetitions as
// needed.
func (t *Terser) Set(expr, value string) error {
	p, err := ParsePath(expr)
	if err != nil {
		return err
	}
	seg, err := t.resolve(p, true)
	if err != nil {
		return fmt.Errorf("terser set %s: %w", expr, err)
	}
	return SetValue(seg, p.Field, p.FieldRep, p.Component, p.Subcomponent, value)
}

// Segment returns the segment expr points to. Without create, a missing
// segment is ErrNotFound.
func (t *Terser) Segment(expr string, create bool) (*model.Segment, error) {
	p, err := ParseSegmentPath(expr)
	if err != nil {
		return nil, err
	}
	return t.resolve(p, create)
}

// resolve walks the segment path on a copy of the finder and commits the
// new position only on success.
func (t *Terser) resolve(p *Path, create bool) (*model.Segment, error) {
	f := *t.finder
	f.create = create
	if p.Absolute {
		f.Reset()
	}
	for i, step := range p.Steps {
		last := i == len(p.Steps)-1
		switch {
		case last && step.Search:
			seg, err := f.FindSegment(step.Name, step.Rep)
			if err != nil {
				return nil, err
			}
			t.commit(f)
			return seg, nil
		case last:
			seg, err := f.GetSegment(step.Name, step.Rep)
			if err != nil {
				return nil, err
			}
			t.commit(f)
			return seg, nil
		case step.Search:
			if _, err := f.FindGroup(step.Name, step.Rep); err != nil {
				return nil, err
			}
		default:
			if _, err := f.GetGroup(step.Name, step.Rep); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
}

func (t *Terser) commit(f Finder) {
	t.finder.group, t.finder.pos = f.group, f.pos
}

// GetValue reads field n, repetition rep, component comp, subcomponent sub
// of seg without allocating anything.
func GetValue(seg *model.Segment, n, rep, comp, sub int) string {
	v, ok := seg.ExistingRep(n, rep)
	if !ok {
		return ""
	}
	if v, ok = peek(v, comp); !ok {
		return ""
	}
	if v, ok = peek(v, sub); !ok {
		return ""
	}
	return firstValue(v)
}

// SetValue writes field n, repetition rep, component comp, subcomponent sub
// of seg. Missing repetitions before rep are created empty.
func SetValue(seg *model.Segment, n, rep, comp, sub int, value string) error {
	for r := seg.RepetitionsUsed(n); r < rep; r++ {
		if _, err := seg.FieldRep(n, r); err != nil {
			return err
		}
	}
	f, err := seg.FieldRep(n, rep)
	if err != nil {
		return err
	}
	model.PrimitiveAt(f, comp, sub).Set(value)
	return nil
}

// peek is the read-only form of model.ComponentAt.
func peek(t model.Type, n int) (model.Type, bool) {
	if v, ok := t.(*model.Varies); ok {
		t = v.Data()
	}
	switch tt := t.(type) {
	case *model.Composite:
		if n <= tt.Len() {
			return tt.Components()[n-1], true
		}
		i := n - 1 - tt.Len()
		if i < tt.Extra().Len() {
			return tt.Extra().All()[i], true
		}
		return nil, false
	default:
		if n == 1 {
			return t, true
		}
		if n-2 < t.Extra().Len() {
			return t.Extra().All()[n-2], true
		}
		return nil, false
	}
}

func firstValue(t model.Type) string {
	for {
		switch tt := t.(type) {
		case *model.Primitive:
			return tt.Value
		case *model.Varies:
			t = tt.Data()
		case *model.Composite:
			switch {
			case tt.Len() > 0:
				t = tt.Components()[0]
			case tt.Extra().Len() > 0:
				t = tt.Extra().All()[0]
			default:
				return ""
			}
		default:
			return ""
		}
	}
}
