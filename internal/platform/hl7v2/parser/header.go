package parser

import (
	"fmt"
	"strings"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
)

// Header is the MSH content needed to route or acknowledge a message. It is
// read without building the structure tree, so it is available even when the
// rest of the message cannot be parsed.
type Header struct {
	Delimiters encoding.Delimiters
	// Raw field text, still escaped, indexed by MSH field number.
	fields map[int]string

	SendingApplication   string
	SendingFacility      string
	ReceivingApplication string
	ReceivingFacility    string
	Timestamp            string
	MessageCode          string
	TriggerEvent         string
	Structure            string
	ControlID            string
	ProcessingID         string
	Version              string
	AcceptAckType        string
	AppAckType           string
}

// Field returns the raw text of MSH-n.
func (h *Header) Field(n int) string {
	switch n {
	case 1:
		return string(h.Delimiters.Field)
	case 2:
		return h.Delimiters.EncodingCharacters()
	}
	return h.fields[n]
}

// MessageType renders MSH-9 as code^trigger[^structure] for logging.
func (h *Header) MessageType() string {
	parts := []string{h.MessageCode}
	if h.TriggerEvent != "" || h.Structure != "" {
		parts = append(parts, h.TriggerEvent)
	}
	if h.Structure != "" {
		parts = append(parts, h.Structure)
	}
	return strings.Join(parts, "^")
}

// ParseHeader reads the delimiters and header fields of raw.
func ParseHeader(raw string) (*Header, error) {
	line := firstSegment(raw)
	if !strings.HasPrefix(line, "MSH") {
		return nil, ErrNoMSH
	}
	if len(line) < 8 {
		return nil, fmt.Errorf("%w: MSH segment too short", ErrInvalidHeader)
	}
	sep := line[3]
	fields := strings.Split(line, string(sep))
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: missing encoding characters", ErrInvalidHeader)
	}
	d, err := encoding.FromMSH(sep, fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	h := &Header{Delimiters: d, fields: make(map[int]string, len(fields))}
	// fields[0] is "MSH" and fields[1] is MSH-2, so MSH-n sits at n-1.
	for i := 2; i < len(fields); i++ {
		h.fields[i+1] = fields[i]
	}

	h.SendingApplication = h.fields[3]
	h.SendingFacility = h.fields[4]
	h.ReceivingApplication = h.fields[5]
	h.ReceivingFacility = h.fields[6]
	h.Timestamp = h.component(7, 1)
	h.MessageCode = h.component(9, 1)
	h.TriggerEvent = h.component(9, 2)
	h.Structure = h.component(9, 3)
	h.ControlID = h.component(10, 1)
	h.ProcessingID = h.component(11, 1)
	h.Version = h.component(12, 1)
	h.AcceptAckType = h.component(15, 1)
	h.AppAckType = h.component(16, 1)
	return h, nil
}

// component returns the unescaped component n of the first repetition of
// MSH-field.
func (h *Header) component(field, n int) string {
	raw := h.fields[field]
	if raw == "" {
		return ""
	}
	d := h.Delimiters
	if i := strings.IndexByte(raw, d.Repetition); i >= 0 {
		raw = raw[:i]
	}
	comps := strings.Split(raw, string(d.Component))
	if n < 1 || n > len(comps) {
		return ""
	}
	c := comps[n-1]
	if i := strings.IndexByte(c, d.Subcomponent); i >= 0 {
		c = c[:i]
	}
	return strings.TrimSpace(d.Unescape(c))
}

func firstSegment(raw string) string {
	raw = strings.TrimLeft(raw, " \t\r\n\ufeff")
	if i := strings.IndexAny(raw, "\r\n"); i >= 0 {
		return raw[:i]
	}
	return raw
}
