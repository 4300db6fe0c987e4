// Package hl7v2 is the application layer of the engine: acknowledgments,
// message processing, FHIR to v2 builders and the HTTP API.
package hl7v2

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/terser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/validation"
)

// AckCode is an MSA-1 acknowledgment code (HL7 table 0008).
type AckCode string

const (
	AckAccept    AckCode = "AA"
	AckError     AckCode = "AE"
	AckReject    AckCode = "AR"
	CommitAccept AckCode = "CA"
	CommitError  AckCode = "CE"
	CommitReject AckCode = "CR"
)

// Accepted reports whether the code acknowledges success.
func (c AckCode) Accepted() bool { return c == AckAccept || c == CommitAccept }

// Acknowledger builds ACK messages.
type Acknowledger struct {
	registry       *schema.Registry
	defaultVersion string
	// Application and Facility fill MSH-3/4 when the incoming message did
	// not name a receiver.
	Application string
	Facility    string
	now         func() time.Time
	newID       func() string
}

// NewAcknowledger creates an acknowledger. A nil registry uses the built-in
// tables.
func NewAcknowledger(registry *schema.Registry, defaultVersion string) *Acknowledger {
	if registry == nil {
		registry = schema.Default()
	}
	if defaultVersion == "" {
		defaultVersion = "2.5"
	}
	return &Acknowledger{
		registry:       registry,
		defaultVersion: defaultVersion,
		now:            time.Now,
		newID:          NewControlID,
	}
}

// NewControlID returns a random message control id that fits the 20
// character limit of MSH-10.
func NewControlID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:20])
}

var defaultAcknowledger = NewAcknowledger(nil, "")

// GenerateACK acknowledges a parsed message.
func GenerateACK(incoming *model.Message, code AckCode, text string, issues []validation.Issue) (string, error) {
	return defaultAcknowledger.ACK(incoming, code, text, issues)
}

// GenerateACKFromHeader acknowledges a message from its header alone. h may
// be nil when not even MSH could be read.
func GenerateACKFromHeader(h *parser.Header, code AckCode, text string, issues []validation.Issue) (string, error) {
	return defaultAcknowledger.ACKFromHeader(h, code, text, issues)
}

// ACK acknowledges a parsed message.
func (a *Acknowledger) ACK(incoming *model.Message, code AckCode, text string, issues []validation.Issue) (string, error) {
	msh, ok := incoming.Existing("MSH", 0)
	if !ok {
		return a.ACKFromHeader(nil, code, text, issues)
	}
	h, err := parser.ParseHeader(parser.EncodeSegment(msh.(*model.Segment), incoming.Delimiters()))
	if err != nil {
		return a.ACKFromHeader(nil, code, text, issues)
	}
	return a.ACKFromHeader(h, code, text, issues)
}

// ACKFromHeader acknowledges the message h was read from.
func (a *Acknowledger) ACKFromHeader(h *parser.Header, code AckCode, text string, issues []validation.Issue) (string, error) {
	msg, err := a.Build(h, code, text, issues)
	if err != nil {
		return "", err
	}
	return parser.Encode(msg)
}

// Build returns the ACK message tree. Sender and receiver are swapped, the
// processing id and version are copied, and each issue becomes an ERR
// repetition.
func (a *Acknowledger) Build(h *parser.Header, code AckCode, text string, issues []validation.Issue) (*model.Message, error) {
	if h == nil {
		h = &parser.Header{Delimiters: encoding.Default()}
	}
	v, err := a.registry.Version(h.Version)
	if err != nil {
		if v, err = a.registry.Version(a.defaultVersion); err != nil {
			return nil, fmt.Errorf("hl7v2: ack: %w", err)
		}
	}
	msg := v.NewMessage("ACK")
	t := terser.New(msg)
	d := h.Delimiters

	set := func(path, value string) {
		if err == nil && value != "" {
			err = t.Set(path, value)
		}
	}
	set("/MSH-7", a.now().Format("20060102150405"))
	set("/MSH-9-1", "ACK")
	set("/MSH-9-2", h.TriggerEvent)
	if h.TriggerEvent != "" && components(v, "MSH", 9) >= 3 {
		set("/MSH-9-3", "ACK")
	}
	set("/MSH-10", a.newID())
	if err != nil {
		return nil, fmt.Errorf("hl7v2: ack: %w", err)
	}
	mshSeg, err := msg.MSH()
	if err != nil {
		return nil, fmt.Errorf("hl7v2: ack: %w", err)
	}
	msg.SetDelimiters(d)

	// Raw header fields keep their components and escapes.
	copyRaw := func(to int, raw string) {
		if err != nil || raw == "" {
			return
		}
		var f model.Type
		if f, err = mshSeg.FieldRep(to, 0); err == nil {
			parser.ParseType(f, raw, d)
		}
	}
	copyRaw(3, firstNonEmpty(h.Field(5), a.Application))
	copyRaw(4, firstNonEmpty(h.Field(6), a.Facility))
	copyRaw(5, h.Field(3))
	copyRaw(6, h.Field(4))
	copyRaw(11, firstNonEmpty(h.Field(11), "P"))
	copyRaw(12, firstNonEmpty(h.Field(12), v.ID()))

	set("/MSA-1", string(code))
	set("/MSA-2", h.ControlID)
	set("/MSA-3", truncate(text, 80))
	if err != nil {
		return nil, fmt.Errorf("hl7v2: ack: %w", err)
	}
	if err := a.errors(t, v, issues); err != nil {
		return nil, fmt.Errorf("hl7v2: ack: %w", err)
	}
	return msg, nil
}

// errors writes issues as ERR segments. Versions whose ERR segment has an
// HL7 error code field (2.5 and later) get one ERR per issue; older versions
// get one ERR-1 repetition per issue in ELD form.
func (a *Acknowledger) errors(t *terser.Terser, v *schema.Version, issues []validation.Issue) error {
	defs, _ := v.SegmentDef("ERR")
	modern := len(defs) >= 4
	for i, is := range issues {
		code := strconv.Itoa(is.Code)
		var sets [][2]string
		if modern {
			seg := fmt.Sprintf("/ERR(%d)", i)
			sets = [][2]string{
				{seg + "-2-1", is.Segment},
				{seg + "-2-2", positiveString(is.Sequence)},
				{seg + "-2-3", positiveString(is.Field)},
				{seg + "-3-1", code},
				{seg + "-3-2", codeText(is.Code)},
				{seg + "-3-3", "HL70357"},
				{seg + "-4", severity(is.Severity)},
				{seg + "-7", is.Message},
			}
			if is.Field > 0 {
				sets = append(sets, [2]string{seg + "-2-4", "1"})
			}
			if is.Component > 0 {
				sets = append(sets, [2]string{seg + "-2-5", strconv.Itoa(is.Component)})
			}
		} else {
			f := fmt.Sprintf("/ERR-1(%d)", i)
			sets = [][2]string{
				{f + "-1", is.Segment},
				{f + "-2", positiveString(is.Sequence)},
				{f + "-3", positiveString(is.Field)},
				{f + "-4-1", code},
				{f + "-4-2", truncate(is.Message, 60)},
				{f + "-4-3", "HL70357"},
			}
		}
		for _, s := range sets {
			if s[1] == "" {
				continue
			}
			if err := t.Set(s[0], s[1]); err != nil {
				return err
			}
		}
	}
	return nil
}

var codeTexts = map[int]string{
	validation.CodeSequenceError:         "Segment sequence error",
	validation.CodeRequiredFieldMissing:  "Required field missing",
	validation.CodeDataTypeError:         "Data type error",
	validation.CodeTableValueNotFound:    "Table value not found",
	validation.CodeUnsupportedMessage:    "Unsupported message type",
	validation.CodeUnsupportedEvent:      "Unsupported event code",
	validation.CodeUnsupportedProcessing: "Unsupported processing id",
	validation.CodeUnsupportedVersion:    "Unsupported version id",
	validation.CodeInternalError:         "Application internal error",
}

// components returns the number of components declared for seg-field.
func components(v *schema.Version, seg string, field int) int {
	defs, ok := v.SegmentDef(seg)
	if !ok || field > len(defs) {
		return 0
	}
	comps, _ := v.DataType(defs[field-1].Type)
	return len(comps)
}

func codeText(code int) string { return codeTexts[code] }

func severity(s validation.Severity) string {
	if s == validation.SeverityWarning {
		return "W"
	}
	return "E"
}

func positiveString(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
