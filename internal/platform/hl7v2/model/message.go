package model

import (
	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
)

// GenericStructure names messages whose structure is not defined for their
// version. Such messages declare only MSH; everything else is nonstandard.
const GenericStructure = "GENERIC"

// Message is the root group of an HL7 v2 message.
type Message struct {
	*Group
	version   string
	structure string
	delims    encoding.Delimiters
	factory   Factory
}

// NewMessage creates an empty message. Children are registered on the
// embedded group by the caller, normally a schema version.
func NewMessage(structure, version string, factory Factory) *Message {
	if factory == nil {
		factory = GenericFactory{}
	}
	m := &Message{
		version:   version,
		structure: structure,
		delims:    encoding.Default(),
		factory:   factory,
	}
	m.Group = &Group{name: structure, index: make(map[string]int), msg: m}
	return m
}

// Version returns the HL7 version the message was built for, e.g. "2.5.1".
func (m *Message) Version() string { return m.version }

// Structure returns the message structure id, e.g. "ADT_A01".
func (m *Message) Structure() string { return m.structure }

// IsGeneric reports whether the message has no structure definition.
func (m *Message) IsGeneric() bool { return m.structure == GenericStructure }

// Factory returns the factory used to build segments and types.
func (m *Message) Factory() Factory { return m.factory }

// Delimiters returns the delimiters the message was parsed with or will be
// encoded with.
func (m *Message) Delimiters() encoding.Delimiters { return m.delims }

// SetDelimiters replaces the delimiters and keeps MSH-1 and MSH-2 in step.
func (m *Message) SetDelimiters(d encoding.Delimiters) {
	m.delims = d
	msh, ok := m.Existing("MSH", 0)
	if !ok {
		return
	}
	seg := msh.(*Segment)
	if f1, err := seg.FieldRep(1, 0); err == nil {
		FirstPrimitive(f1).Set(string(d.Field))
	}
	if f2, err := seg.FieldRep(2, 0); err == nil {
		FirstPrimitive(f2).Set(d.EncodingCharacters())
	}
}

// MSH returns the header segment, creating it if needed.
func (m *Message) MSH() (*Segment, error) {
	return m.GetSegment("MSH", 0)
}
