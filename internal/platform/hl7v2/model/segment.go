package model

import "fmt"

// FieldDef describes one field of a segment definition.
type FieldDef struct {
	Name     string
	Type     string
	Required bool
	// MaxReps is the maximum number of repetitions; 0 means unbounded.
	MaxReps int
	Length  int
	Table   int
}

// Segment is one HL7 segment: an ordered list of repeating fields.
type Segment struct {
	name    string
	parent  *Group
	defs    []FieldDef
	fields  [][]Type
	factory Factory
}

// NewSegment creates an empty segment. defs may be nil for segments without a
// definition, in which case every field is a Varies.
func NewSegment(name string, parent *Group, defs []FieldDef, factory Factory) *Segment {
	if factory == nil {
		factory = GenericFactory{}
	}
	return &Segment{name: name, parent: parent, defs: defs, factory: factory}
}

func (s *Segment) Name() string    { return s.name }
func (s *Segment) Parent() *Group  { return s.parent }
func (s *Segment) IsSegment() bool { return true }

// Message returns the message the segment belongs to, or nil when detached.
func (s *Segment) Message() *Message {
	if s.parent == nil {
		return nil
	}
	return s.parent.Message()
}

// Definition returns the declared field definitions.
func (s *Segment) Definition() []FieldDef { return s.defs }

// FieldDef returns the definition of field n (one based).
func (s *Segment) FieldDef(n int) (FieldDef, bool) {
	if n < 1 || n > len(s.defs) {
		return FieldDef{}, false
	}
	return s.defs[n-1], true
}

// NumFields returns the larger of the declared field count and the highest
// field number holding data.
func (s *Segment) NumFields() int {
	if len(s.fields) > len(s.defs) {
		return len(s.fields)
	}
	return len(s.defs)
}

// Field returns all repetitions of field n (one based).
func (s *Segment) Field(n int) ([]Type, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %s-%d", ErrFieldOutOfRange, s.name, n)
	}
	if n > len(s.fields) {
		return nil, nil
	}
	return s.fields[n-1], nil
}

// RepetitionsUsed returns the number of repetitions present for field n.
func (s *Segment) RepetitionsUsed(n int) int {
	if n < 1 || n > len(s.fields) {
		return 0
	}
	return len(s.fields[n-1])
}

// FieldRep returns repetition rep (zero based) of field n, creating it when
// rep equals the number of repetitions in use.
func (s *Segment) FieldRep(n, rep int) (Type, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %s-%d", ErrFieldOutOfRange, s.name, n)
	}
	s.ensureFields(n)
	reps := s.fields[n-1]
	switch {
	case rep < 0 || rep > len(reps):
		return nil, fmt.Errorf("%w: %s-%d(%d), %d in use", ErrRepetitionOutOfRange, s.name, n, rep, len(reps))
	case rep < len(reps):
		return reps[rep], nil
	}
	if def, ok := s.FieldDef(n); ok && def.MaxReps > 0 && rep >= def.MaxReps {
		return nil, fmt.Errorf("%w: %s-%d allows %d repetition(s)", ErrRepetitionOutOfRange, s.name, n, def.MaxReps)
	}
	t := s.newFieldType(n)
	s.fields[n-1] = append(reps, t)
	return t, nil
}

// ExistingRep returns repetition rep of field n without creating anything.
func (s *Segment) ExistingRep(n, rep int) (Type, bool) {
	if n < 1 || n > len(s.fields) || rep < 0 || rep >= len(s.fields[n-1]) {
		return nil, false
	}
	return s.fields[n-1][rep], true
}

// AppendRep adds a new repetition to field n, ignoring the declared maximum.
// The parser uses it to keep data that exceeds the definition.
func (s *Segment) AppendRep(n int) (Type, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %s-%d", ErrFieldOutOfRange, s.name, n)
	}
	s.ensureFields(n)
	t := s.newFieldType(n)
	s.fields[n-1] = append(s.fields[n-1], t)
	return t, nil
}

// RemoveRepetition deletes repetition rep of field n.
func (s *Segment) RemoveRepetition(n, rep int) error {
	if n < 1 || n > len(s.fields) || rep < 0 || rep >= len(s.fields[n-1]) {
		return fmt.Errorf("%w: %s-%d(%d)", ErrRepetitionOutOfRange, s.name, n, rep)
	}
	reps := s.fields[n-1]
	s.fields[n-1] = append(reps[:rep], reps[rep+1:]...)
	return nil
}

// Clear removes all field data.
func (s *Segment) Clear() { s.fields = nil }

func (s *Segment) IsEmpty() bool {
	for _, reps := range s.fields {
		for _, t := range reps {
			if !t.IsEmpty() {
				return false
			}
		}
	}
	return true
}

func (s *Segment) ensureFields(n int) {
	for len(s.fields) < n {
		s.fields = append(s.fields, nil)
	}
}

func (s *Segment) newFieldType(n int) Type {
	if def, ok := s.FieldDef(n); ok && def.Type != "" {
		return s.factory.NewType(def.Type)
	}
	return NewVaries()
}
