// Package validation checks a parsed message against its structure and
// segment definitions.
package validation

import (
	"fmt"
	"strings"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Error condition codes from HL7 table 0357.
const (
	CodeSequenceError         = 100
	CodeRequiredFieldMissing  = 101
	CodeDataTypeError         = 102
	CodeTableValueNotFound    = 103
	CodeUnsupportedMessage    = 200
	CodeUnsupportedEvent      = 201
	CodeUnsupportedProcessing = 202
	CodeUnsupportedVersion    = 203
	CodeInternalError         = 207
)

// Issue is one problem found in a message. Location is a terser path.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     int      `json:"code"`
	Location string   `json:"location,omitempty"`
	Message  string   `json:"message"`
	// Segment, Sequence, Field and Component locate the issue for ERR-2.
	Segment   string `json:"segment,omitempty"`
	Sequence  int    `json:"sequence,omitempty"`
	Field     int    `json:"field,omitempty"`
	Component int    `json:"component,omitempty"`
}

// Report is the outcome of validating one message.
type Report struct {
	Valid     bool    `json:"valid"`
	Structure string  `json:"structure"`
	Version   string  `json:"version"`
	Issues    []Issue `json:"issues"`
}

// Errors returns the issues with error severity.
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Has reports whether any error issue carries code.
func (r *Report) Has(code int) bool {
	for _, i := range r.Errors() {
		if i.Code == code {
			return true
		}
	}
	return false
}

func (r *Report) add(i Issue) {
	if i.Severity == SeverityError {
		r.Valid = false
	}
	r.Issues = append(r.Issues, i)
}

// Options select the optional checks.
type Options struct {
	// SkipLength disables maximum length warnings.
	SkipLength bool
	// SkipFormats disables primitive format checks (NM, SI, DT, TM, DTM).
	SkipFormats bool
	// AllowGeneric accepts messages whose structure has no definition.
	AllowGeneric bool
}

// Validator checks messages. It is safe for concurrent use.
type Validator struct {
	opts Options
}

// New creates a validator.
func New(opts Options) *Validator {
	return &Validator{opts: opts}
}

// Validate checks msg and returns every issue found.
func (v *Validator) Validate(msg *model.Message) *Report {
	r := &Report{Valid: true, Structure: msg.Structure(), Version: msg.Version(), Issues: []Issue{}}
	v.header(msg, r)
	if msg.IsGeneric() && !v.opts.AllowGeneric {
		r.add(Issue{
			Severity: SeverityError,
			Code:     CodeUnsupportedMessage,
			Location: "/MSH-9",
			Message:  "message structure is not defined for version " + msg.Version(),
			Segment:  "MSH", Sequence: 1, Field: 9,
		})
	}
	v.group(msg.Group, "", msg.Delimiters(), r, map[string]int{})
	return r
}

func (v *Validator) header(msg *model.Message, r *Report) {
	mshS, ok := msg.Existing("MSH", 0)
	if !ok {
		r.add(Issue{Severity: SeverityError, Code: CodeSequenceError, Location: "/MSH", Message: "required segment MSH is missing", Segment: "MSH"})
		return
	}
	msh := mshS.(*model.Segment)
	checks := []struct {
		field int
		comp  int
		name  string
	}{
		{9, 1, "message code"},
		{9, 2, "trigger event"},
		{10, 1, "message control id"},
		{12, 1, "version id"},
	}
	for _, c := range checks {
		if value(msh, c.field, c.comp) != "" {
			continue
		}
		r.add(Issue{
			Severity: SeverityError,
			Code:     CodeRequiredFieldMissing,
			Location: fmt.Sprintf("/MSH-%d-%d", c.field, c.comp),
			Message:  "MSH is missing the " + c.name,
			Segment:  "MSH", Sequence: 1, Field: c.field, Component: c.comp,
		})
	}
	if ver := value(msh, 12, 1); ver != "" && ver != msg.Version() {
		r.add(Issue{
			Severity: SeverityWarning,
			Code:     CodeUnsupportedVersion,
			Location: "/MSH-12",
			Message:  fmt.Sprintf("version %s has no tables, validated against %s", ver, msg.Version()),
			Segment:  "MSH", Sequence: 1, Field: 12,
		})
	}
}

func value(seg *model.Segment, field, comp int) string {
	t, ok := seg.ExistingRep(field, 0)
	if !ok {
		return ""
	}
	return strings.TrimSpace(model.PrimitiveAt(t, comp, 1).Value)
}

// group checks the children of g. The message root is always checked; nested
// groups only when they hold data. seen counts segments by code for ERR-2
// sequence numbers.
func (v *Validator) group(g *model.Group, loc string, d encoding.Delimiters, r *Report, seen map[string]int) {
	for _, def := range g.Children() {
		n, _ := g.RepetitionsUsed(def.Name)
		present := 0
		for rep := 0; rep < n; rep++ {
			s, _ := g.Existing(def.Name, rep)
			if s.IsEmpty() {
				continue
			}
			present++
			childLoc := loc + "/" + def.Name
			if rep > 0 {
				childLoc += fmt.Sprintf("(%d)", rep)
			}
			switch st := s.(type) {
			case *model.Group:
				v.group(st, childLoc, d, r, seen)
			case *model.Segment:
				seen[st.Name()]++
				v.segment(st, childLoc, seen[st.Name()], d, r)
			}
		}
		if present == 0 && def.Required && !g.IsNonstandard(def.Name) {
			kind := "segment"
			if def.Group {
				kind = "group"
			}
			r.add(Issue{
				Severity: SeverityError,
				Code:     CodeSequenceError,
				Location: loc + "/" + def.Name,
				Message:  fmt.Sprintf("required %s %s is missing from %s", kind, def.Name, g.Name()),
				Segment:  def.Segment,
			})
		}
	}
}

func (v *Validator) segment(seg *model.Segment, loc string, seq int, d encoding.Delimiters, r *Report) {
	issue := func(sev Severity, code, field, comp int, format string, args ...any) {
		l := fmt.Sprintf("%s-%d", loc, field)
		if comp > 0 {
			l += fmt.Sprintf("-%d", comp)
		}
		r.add(Issue{
			Severity: sev, Code: code, Location: l,
			Message: fmt.Sprintf(format, args...),
			Segment: seg.Name(), Sequence: seq, Field: field, Component: comp,
		})
	}

	for i, def := range seg.Definition() {
		n := i + 1
		reps, _ := seg.Field(n)
		filled := 0
		for _, t := range reps {
			if !t.IsEmpty() {
				filled++
			}
		}
		if def.Required && filled == 0 {
			issue(SeverityError, CodeRequiredFieldMissing, n, 0, "required field %s-%d (%s) is empty", seg.Name(), n, def.Name)
			continue
		}
		if def.MaxReps > 0 && len(reps) > def.MaxReps {
			issue(SeverityError, CodeDataTypeError, n, 0, "%s-%d repeats %d times, at most %d allowed", seg.Name(), n, len(reps), def.MaxReps)
		}
		for _, t := range reps {
			if t.IsEmpty() {
				continue
			}
			if !v.opts.SkipLength && def.Length > 0 && n > 2 {
				if l := len(parser.EncodeType(t, d)); l > def.Length {
					issue(SeverityWarning, CodeDataTypeError, n, 0, "%s-%d is %d characters, maximum is %d", seg.Name(), n, l, def.Length)
				}
			}
			if !v.opts.SkipFormats {
				checkFormats(t, 0, func(comp int, typ, val string) {
					issue(SeverityError, CodeDataTypeError, n, comp, "%q is not a valid %s value", val, typ)
				})
			}
		}
	}
}

// checkFormats calls bad for every primitive under t whose value does not
// match its data type. comp is the one based component, 0 for the field.
func checkFormats(t model.Type, comp int, bad func(comp int, typ, val string)) {
	switch tt := t.(type) {
	case *model.Varies:
		checkFormats(tt.Data(), comp, bad)
	case *model.Primitive:
		if tt.Value != "" && !ValidFormat(tt.TypeName(), tt.Value) {
			bad(comp, tt.TypeName(), tt.Value)
		}
	case *model.Composite:
		for i, c := range tt.Components() {
			at := comp
			if at == 0 {
				at = i + 1
			}
			checkFormats(c, at, bad)
		}
	}
}
