// Package parser reads and writes the HL7 v2 pipe (ER7) encoding.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
)

var (
	ErrEmptyMessage       = errors.New("hl7v2: empty message")
	ErrNoMSH              = errors.New("hl7v2: message does not start with MSH")
	ErrInvalidHeader      = errors.New("hl7v2: invalid MSH segment")
	ErrInvalidSegmentName = errors.New("hl7v2: invalid segment name")
	ErrUnexpectedSegment  = errors.New("hl7v2: unexpected segment")
)

// UnexpectedSegments selects what happens to a segment that has no place in
// the message structure.
type UnexpectedSegments int

const (
	// AddInline keeps the segment as a nonstandard child of the innermost
	// group, right after the previous segment.
	AddInline UnexpectedSegments = iota
	// DropToRoot keeps the segment as a nonstandard child of the message.
	DropToRoot
	// Fail rejects the message.
	Fail
)

// ParseUnexpectedSegments maps a configuration value (inline, root, fail).
func ParseUnexpectedSegments(s string) (UnexpectedSegments, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inline", "add_inline":
		return AddInline, nil
	case "root", "drop_to_root":
		return DropToRoot, nil
	case "fail", "error":
		return Fail, nil
	}
	return AddInline, fmt.Errorf("hl7v2: unknown unexpected segment policy %q", s)
}

func (u UnexpectedSegments) String() string {
	switch u {
	case DropToRoot:
		return "root"
	case Fail:
		return "fail"
	default:
		return "inline"
	}
}

// Options configure a Parser.
type Options struct {
	// DefaultVersion is used when MSH-12 names a version without tables.
	DefaultVersion string
	// StrictVersion rejects such messages instead.
	StrictVersion      bool
	UnexpectedSegments UnexpectedSegments
	Logger             zerolog.Logger
}

// Parser converts between ER7 text and message trees.
type Parser struct {
	registry *schema.Registry
	opts     Options
	logger   zerolog.Logger
}

// New creates a parser backed by registry. A nil registry uses the built-in
// tables.
func New(registry *schema.Registry, opts Options) *Parser {
	if registry == nil {
		registry = schema.Default()
	}
	if opts.DefaultVersion == "" {
		opts.DefaultVersion = "2.5"
	}
	return &Parser{
		registry: registry,
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "hl7-parser").Logger(),
	}
}

// Registry returns the schema registry the parser resolves versions with.
func (p *Parser) Registry() *schema.Registry { return p.registry }

// Parse builds the message tree for raw.
func (p *Parser) Parse(raw string) (*model.Message, error) {
	lines := splitSegments(raw)
	if len(lines) == 0 {
		return nil, ErrEmptyMessage
	}
	hdr, err := ParseHeader(lines[0])
	if err != nil {
		return nil, err
	}

	v, err := p.version(hdr.Version)
	if err != nil {
		return nil, err
	}
	structure := v.ResolveStructure(hdr.MessageCode, hdr.TriggerEvent, hdr.Structure)
	msg := v.NewMessage(structure)
	msg.SetDelimiters(hdr.Delimiters)

	pl := newPlacer(msg, p.opts.UnexpectedSegments)
	for i, line := range lines {
		name, err := segmentName(line, hdr.Delimiters.Field)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		seg, inline, err := pl.place(name)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		if inline {
			p.logger.Debug().Str("segment", name).Str("structure", msg.Structure()).Int("position", i+1).Msg("nonstandard segment")
		}
		if err := parseSegment(seg, line, hdr.Delimiters); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
	}
	return msg, nil
}

// ParseBytes is Parse for byte input.
func (p *Parser) ParseBytes(raw []byte) (*model.Message, error) {
	return p.Parse(string(raw))
}

func (p *Parser) version(id string) (*schema.Version, error) {
	if id != "" {
		v, err := p.registry.Version(id)
		if err == nil {
			return v, nil
		}
		if p.opts.StrictVersion {
			return nil, err
		}
		p.logger.Warn().Str("version", id).Str("fallback", p.opts.DefaultVersion).Msg("unsupported HL7 version, using default tables")
	} else if p.opts.StrictVersion {
		return nil, fmt.Errorf("%w: MSH-12 is empty", schema.ErrUnsupportedVersion)
	}
	return p.registry.Version(p.opts.DefaultVersion)
}

// splitSegments accepts CR, LF and CRLF terminators and drops blank lines.
func splitSegments(raw string) []string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\r")
	raw = strings.ReplaceAll(raw, "\n", "\r")
	parts := strings.Split(raw, "\r")
	lines := parts[:0]
	for _, l := range parts {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func segmentName(line string, field byte) (string, error) {
	name := line
	if i := strings.IndexByte(line, field); i >= 0 {
		name = line[:i]
	}
	if !ValidSegmentName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSegmentName, name)
	}
	return name, nil
}

// ValidSegmentName reports whether name is three characters: an uppercase
// letter followed by uppercase letters or digits.
func ValidSegmentName(name string) bool {
	if len(name) != 3 {
		return false
	}
	if name[0] < 'A' || name[0] > 'Z' {
		return false
	}
	for i := 1; i < 3; i++ {
		c := name[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// ParseSegment replaces the content of seg with the fields in line.
func ParseSegment(seg *model.Segment, line string, d encoding.Delimiters) error {
	name, err := segmentName(line, d.Field)
	if err != nil {
		return err
	}
	if name != seg.Name() {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidSegmentName, seg.Name(), name)
	}
	seg.Clear()
	return parseSegment(seg, line, d)
}

func parseSegment(seg *model.Segment, line string, d encoding.Delimiters) error {
	fields := strings.Split(line, string(d.Field))
	first, offset := 1, 0
	if seg.Name() == "MSH" {
		if err := setPrimitive(seg, 1, string(d.Field)); err != nil {
			return err
		}
		if len(fields) > 1 {
			if err := setPrimitive(seg, 2, fields[1]); err != nil {
				return err
			}
		}
		// fields[2] holds MSH-3: MSH-1 is the separator itself.
		first, offset = 2, 1
	}

	valueType := ""
	if seg.Name() == "OBX" && len(fields) > 2 {
		valueType = strings.TrimSpace(d.Unescape(firstComponent(fields[2], d)))
	}

	var factory model.Factory = model.GenericFactory{}
	if msg := seg.Message(); msg != nil {
		factory = msg.Factory()
	}

	for i := first; i < len(fields); i++ {
		raw := fields[i]
		if raw == "" {
			continue
		}
		n := i + offset
		for _, rep := range strings.Split(raw, string(d.Repetition)) {
			t, err := seg.AppendRep(n)
			if err != nil {
				return fmt.Errorf("%s-%d: %w", seg.Name(), n, err)
			}
			if n == 5 && valueType != "" {
				if v, ok := t.(*model.Varies); ok {
					v.SetData(factory.NewType(valueType))
				}
			}
			ParseType(t, rep, d)
		}
	}
	return nil
}

func setPrimitive(seg *model.Segment, n int, value string) error {
	t, err := seg.AppendRep(n)
	if err != nil {
		return fmt.Errorf("%s-%d: %w", seg.Name(), n, err)
	}
	model.FirstPrimitive(t).Set(value)
	return nil
}

func firstComponent(field string, d encoding.Delimiters) string {
	if i := strings.IndexByte(field, d.Repetition); i >= 0 {
		field = field[:i]
	}
	if i := strings.IndexByte(field, d.Component); i >= 0 {
		field = field[:i]
	}
	if i := strings.IndexByte(field, d.Subcomponent); i >= 0 {
		field = field[:i]
	}
	return field
}

// ParseType fills t from one field repetition in ER7 form.
func ParseType(t model.Type, s string, d encoding.Delimiters) {
	comps := strings.Split(s, string(d.Component))
	if len(comps) > 1 || strings.IndexByte(s, d.Subcomponent) >= 0 {
		expand(t)
	}
	for i, comp := range comps {
		if comp == "" {
			continue
		}
		c := model.ComponentAt(t, i+1)
		subs := strings.Split(comp, string(d.Subcomponent))
		if len(subs) > 1 {
			expand(c)
		}
		for j, sub := range subs {
			if sub == "" {
				continue
			}
			model.FirstPrimitive(model.ComponentAt(c, j+1)).Set(d.Unescape(sub))
		}
	}
}

// expand lets a Varies holding a primitive take components.
func expand(t model.Type) {
	if v, ok := t.(*model.Varies); ok {
		v.Expand()
	}
}
