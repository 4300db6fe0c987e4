package encoding

import "strings"

// Escape replaces delimiter characters in s with HL7 escape sequences.
// Formatting sequences such as \.br\ or \H\ that are already present in s are
// copied through unless their body holds a delimiter.
func (d Delimiters) Escape(s string) string {
	if !strings.ContainsAny(s, d.special()) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == d.EscapeChar:
			if end := strings.IndexByte(s[i+1:], d.EscapeChar); end >= 0 {
				seq := s[i+1 : i+1+end]
				if isFormatting(seq) && !strings.ContainsAny(seq, d.special()) {
					b.WriteString(s[i : i+end+2])
					i += end + 1
					continue
				}
			}
			d.writeSeq(&b, 'E')
		case c == d.Field:
			d.writeSeq(&b, 'F')
		case c == d.Component:
			d.writeSeq(&b, 'S')
		case c == d.Subcomponent:
			d.writeSeq(&b, 'T')
		case c == d.Repetition:
			d.writeSeq(&b, 'R')
		case d.Truncation != 0 && c == d.Truncation:
			d.writeSeq(&b, 'P')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Unescape decodes delimiter escape sequences. Any other sequence, including
// formatting and hexadecimal sequences, is left verbatim.
func (d Delimiters) Unescape(s string) string {
	if strings.IndexByte(s, d.EscapeChar) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != d.EscapeChar {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(s[i+1:], d.EscapeChar)
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		seq := s[i+1 : i+1+end]
		switch {
		case seq == "F":
			b.WriteByte(d.Field)
		case seq == "S":
			b.WriteByte(d.Component)
		case seq == "T":
			b.WriteByte(d.Subcomponent)
		case seq == "R":
			b.WriteByte(d.Repetition)
		case seq == "E":
			b.WriteByte(d.EscapeChar)
		case seq == "P" && d.Truncation != 0:
			b.WriteByte(d.Truncation)
		default:
			b.WriteString(s[i : i+end+2])
		}
		i += end + 1
	}
	return b.String()
}

func (d Delimiters) special() string {
	chars := []byte{d.Field, d.Component, d.Repetition, d.EscapeChar, d.Subcomponent}
	if d.Truncation != 0 {
		chars = append(chars, d.Truncation)
	}
	return string(chars)
}

func (d Delimiters) writeSeq(b *strings.Builder, code byte) {
	b.WriteByte(d.EscapeChar)
	b.WriteByte(code)
	b.WriteByte(d.EscapeChar)
}

// isFormatting reports whether seq (the text between two escape characters)
// is a formatting, highlighting, character set or hexadecimal sequence.
func isFormatting(seq string) bool {
	if seq == "" {
		return false
	}
	switch seq[0] {
	case 'H', 'N':
		return len(seq) == 1
	case '.':
		return len(seq) > 1
	case 'X':
		return len(seq) > 1 && len(seq)%2 == 1 && isHex(seq[1:])
	case 'Z':
		return len(seq) > 1
	case 'C':
		return len(seq) == 5 && isHex(seq[1:])
	case 'M':
		return (len(seq) == 5 || len(seq) == 7) && isHex(seq[1:])
	}
	return false
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
