package terser

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

var (
	ErrInvalidPath = errors.New("hl7v2: invalid terser path")
	ErrNotFound    = errors.New("hl7v2: structure not found")
)

// Step is one element of a segment path: a group or, for the last step, a
// segment.
type Step struct {
	Name string
	Rep  int
	// Search looks for Name anywhere after the current position instead of
	// taking a direct child. Name may then hold * and ? wildcards.
	Search bool
}

func (s Step) String() string {
	var b strings.Builder
	if s.Search {
		b.WriteByte('.')
	}
	b.WriteString(s.Name)
	if s.Rep > 0 {
		fmt.Fprintf(&b, "(%d)", s.Rep)
	}
	return b.String()
}

// Path addresses one primitive value: a segment path followed by field,
// field repetition, component and subcomponent.
type Path struct {
	Absolute     bool
	Steps        []Step
	Field        int
	FieldRep     int
	Component    int
	Subcomponent int
}

// Segment returns the last step, which names the segment.
func (p *Path) Segment() Step { return p.Steps[len(p.Steps)-1] }

// String renders the path in canonical form, omitting default indexes.
func (p *Path) String() string {
	var b strings.Builder
	if p.Absolute {
		b.WriteByte('/')
	}
	for i, s := range p.Steps {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(s.String())
	}
	if p.Field == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "-%d", p.Field)
	if p.FieldRep > 0 {
		fmt.Fprintf(&b, "(%d)", p.FieldRep)
	}
	if p.Component > 1 || p.Subcomponent > 1 {
		fmt.Fprintf(&b, "-%d", p.Component)
	}
	if p.Subcomponent > 1 {
		fmt.Fprintf(&b, "-%d", p.Subcomponent)
	}
	return b.String()
}

// ParsePath parses "/GROUP(rep)/SEG(rep)-field(rep)-component-subcomponent".
// Repetitions are zero based and default to 0; components and subcomponents
// are one based and default to 1.
func ParsePath(expr string) (*Path, error) {
	p, fields, err := parseSegmentPath(expr)
	if err != nil {
		return nil, err
	}
	if fields == "" {
		return nil, fmt.Errorf("%w: %q has no field number", ErrInvalidPath, expr)
	}
	parts := strings.Split(fields, "-")
	if len(parts) > 3 {
		return nil, fmt.Errorf("%w: %q has too many parts", ErrInvalidPath, expr)
	}
	name, rep, err := splitRep(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPath, expr, err)
	}
	if p.Field, err = positive(name); err != nil {
		return nil, fmt.Errorf("%w: %q: field %v", ErrInvalidPath, expr, err)
	}
	p.FieldRep = rep
	p.Component, p.Subcomponent = 1, 1
	if len(parts) > 1 {
		if p.Component, err = positive(parts[1]); err != nil {
			return nil, fmt.Errorf("%w: %q: component %v", ErrInvalidPath, expr, err)
		}
	}
	if len(parts) > 2 {
		if p.Subcomponent, err = positive(parts[2]); err != nil {
			return nil, fmt.Errorf("%w: %q: subcomponent %v", ErrInvalidPath, expr, err)
		}
	}
	return p, nil
}

// ParseSegmentPath parses a path that stops at the segment. A field part, if
// present, is ignored.
func ParseSegmentPath(expr string) (*Path, error) {
	p, _, err := parseSegmentPath(expr)
	return p, err
}

func parseSegmentPath(expr string) (*Path, string, error) {
	expr = strings.TrimSpace(expr)
	p := &Path{}
	if strings.HasPrefix(expr, "/") {
		p.Absolute = true
		expr = expr[1:]
	}
	fields := ""
	last := strings.LastIndexByte(expr, '/')
	if i := strings.IndexByte(expr[last+1:], '-'); i >= 0 {
		fields = expr[last+1+i+1:]
		expr = expr[:last+1+i]
	}
	if expr == "" {
		return nil, "", fmt.Errorf("%w: missing segment", ErrInvalidPath)
	}
	for _, elem := range strings.Split(expr, "/") {
		step := Step{}
		if strings.HasPrefix(elem, ".") {
			step.Search = true
			elem = elem[1:]
		}
		name, rep, err := splitRep(elem)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		if name == "" {
			return nil, "", fmt.Errorf("%w: empty element", ErrInvalidPath)
		}
		if !step.Search && strings.ContainsAny(name, "*?[") {
			return nil, "", fmt.Errorf("%w: wildcard %q needs a search step", ErrInvalidPath, name)
		}
		if _, err := path.Match(name, ""); err != nil {
			return nil, "", fmt.Errorf("%w: %q: %v", ErrInvalidPath, name, err)
		}
		step.Name, step.Rep = name, rep
		p.Steps = append(p.Steps, step)
	}
	return p, fields, nil
}

// splitRep splits "NAME(3)" into NAME and 3.
func splitRep(s string) (string, int, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, 0, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", 0, fmt.Errorf("unbalanced repetition in %q", s)
	}
	rep, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || rep < 0 {
		return "", 0, fmt.Errorf("bad repetition in %q", s)
	}
	return s[:open], rep, nil
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a positive number", s)
	}
	return n, nil
}
