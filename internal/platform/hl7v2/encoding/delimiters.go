// Package encoding holds the HL7 v2 delimiter set of a message and the escape
// rules that keep delimiter characters out of field data.
package encoding

import (
	"errors"
	"fmt"
)

// ErrInvalidDelimiters is returned when MSH-1/MSH-2 do not describe a usable
// delimiter set.
var ErrInvalidDelimiters = errors.New("hl7v2: invalid encoding characters")

// Delimiters is the set of separator characters declared in MSH-1 and MSH-2.
type Delimiters struct {
	Field        byte
	Component    byte
	Repetition   byte
	EscapeChar   byte
	Subcomponent byte
	// Truncation is only present from v2.7 on; zero means absent.
	Truncation byte
}

// Default returns the recommended delimiters |^~\&.
func Default() Delimiters {
	return Delimiters{
		Field:        '|',
		Component:    '^',
		Repetition:   '~',
		EscapeChar:   '\\',
		Subcomponent: '&',
	}
}

// FromMSH builds the delimiter set from the field separator (MSH-1) and the
// encoding characters (MSH-2).
func FromMSH(field byte, encChars string) (Delimiters, error) {
	if len(encChars) != 4 && len(encChars) != 5 {
		return Delimiters{}, fmt.Errorf("%w: MSH-2 must be 4 or 5 characters, got %q", ErrInvalidDelimiters, encChars)
	}
	d := Delimiters{
		Field:        field,
		Component:    encChars[0],
		Repetition:   encChars[1],
		EscapeChar:   encChars[2],
		Subcomponent: encChars[3],
	}
	if len(encChars) == 5 {
		d.Truncation = encChars[4]
	}
	if err := d.Validate(); err != nil {
		return Delimiters{}, err
	}
	return d, nil
}

// Validate checks that every delimiter is printable, non-alphanumeric and
// distinct from the others.
func (d Delimiters) Validate() error {
	chars := []byte{d.Field, d.Component, d.Repetition, d.EscapeChar, d.Subcomponent}
	if d.Truncation != 0 {
		chars = append(chars, d.Truncation)
	}
	seen := make(map[byte]bool, len(chars))
	for _, c := range chars {
		if c <= ' ' || c > '~' || isAlnum(c) {
			return fmt.Errorf("%w: %q is not a valid delimiter", ErrInvalidDelimiters, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: %q is used twice", ErrInvalidDelimiters, c)
		}
		seen[c] = true
	}
	return nil
}

// EncodingCharacters renders the MSH-2 value.
func (d Delimiters) EncodingCharacters() string {
	b := []byte{d.Component, d.Repetition, d.EscapeChar, d.Subcomponent}
	if d.Truncation != 0 {
		b = append(b, d.Truncation)
	}
	return string(b)
}

// String renders MSH-1 followed by MSH-2, e.g. |^~\&.
func (d Delimiters) String() string {
	return string(d.Field) + d.EncodingCharacters()
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
