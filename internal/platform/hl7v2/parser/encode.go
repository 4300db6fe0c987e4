package parser

import (
	"strings"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
)

// Encode renders msg in ER7 form with segments separated by CR. The
// delimiters come from MSH-1 and MSH-2 when they are valid, otherwise from
// the message.
func (p *Parser) Encode(msg *model.Message) (string, error) {
	return Encode(msg)
}

// Encode is the package level form of Parser.Encode.
func Encode(msg *model.Message) (string, error) {
	mshS, ok := msg.Existing("MSH", 0)
	if !ok {
		return "", ErrNoMSH
	}
	d := delimitersOf(mshS.(*model.Segment), msg.Delimiters())

	var lines []string
	for _, seg := range msg.Segments() {
		if seg.Name() != "MSH" && seg.IsEmpty() {
			continue
		}
		lines = append(lines, EncodeSegment(seg, d))
	}
	return strings.Join(lines, "\r"), nil
}

func delimitersOf(msh *model.Segment, fallback encoding.Delimiters) encoding.Delimiters {
	f1, ok1 := msh.ExistingRep(1, 0)
	f2, ok2 := msh.ExistingRep(2, 0)
	if !ok1 || !ok2 {
		return fallback
	}
	sep := model.FirstPrimitive(f1).Value
	if len(sep) != 1 {
		return fallback
	}
	d, err := encoding.FromMSH(sep[0], model.FirstPrimitive(f2).Value)
	if err != nil {
		return fallback
	}
	return d
}

// EncodeSegment renders one segment. MSH-1 and MSH-2 are written from d.
func EncodeSegment(seg *model.Segment, d encoding.Delimiters) string {
	var fields []string
	first := 1
	if seg.Name() == "MSH" {
		fields = append(fields, d.EncodingCharacters())
		first = 3
	}
	for n := first; n <= seg.NumFields(); n++ {
		reps, _ := seg.Field(n)
		out := make([]string, len(reps))
		for i, t := range reps {
			out[i] = EncodeType(t, d)
		}
		fields = append(fields, strings.Join(trimTrailing(out), string(d.Repetition)))
	}
	if seg.Name() == "MSH" {
		// MSH-2 must survive trimming even when nothing follows it.
		rest := trimTrailing(fields[1:])
		fields = append(fields[:1], rest...)
	} else {
		fields = trimTrailing(fields)
	}

	var b strings.Builder
	b.WriteString(seg.Name())
	for _, f := range fields {
		b.WriteByte(d.Field)
		b.WriteString(f)
	}
	return b.String()
}

// EncodeType renders one field repetition.
func EncodeType(t model.Type, d encoding.Delimiters) string {
	return encodeAt(t, d, 0)
}

// encodeAt renders t at depth 0 (field: components joined by ^) or depth 1
// (component: subcomponents joined by &). Anything deeper collapses to its
// first primitive.
func encodeAt(t model.Type, d encoding.Delimiters, depth int) string {
	if depth >= 2 {
		return d.Escape(model.FirstPrimitive(t).Value)
	}
	sep := d.Component
	if depth == 1 {
		sep = d.Subcomponent
	}
	return strings.Join(trimTrailing(parts(t, d, depth)), string(sep))
}

func parts(t model.Type, d encoding.Delimiters, depth int) []string {
	var out []string
	switch tt := t.(type) {
	case *model.Varies:
		out = parts(tt.Data(), d, depth)
	case *model.Composite:
		for _, c := range tt.Components() {
			out = append(out, encodeAt(c, d, depth+1))
		}
	case *model.Primitive:
		out = []string{d.Escape(tt.Value)}
	default:
		out = []string{d.Escape(model.FirstPrimitive(t).Value)}
	}
	for _, e := range t.Extra().All() {
		out = append(out, encodeAt(e, d, depth+1))
	}
	return out
}

func trimTrailing(s []string) []string {
	n := len(s)
	for n > 0 && s[n-1] == "" {
		n--
	}
	return s[:n]
}
