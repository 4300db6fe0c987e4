package parser

import "strings"

// Batch is the content of an HL7 batch file: optional FHS/BHS headers and
// BTS/FTS trailers around any number of messages.
type Batch struct {
	FileHeader   string
	BatchHeader  string
	Messages     []string
	BatchTrailer string
	FileTrailer  string
}

// SplitBatch splits raw into messages. Input without batch segments yields a
// single message. Each message is returned with CR segment separators.
func SplitBatch(raw string) (*Batch, error) {
	lines := splitSegments(raw)
	if len(lines) == 0 {
		return nil, ErrEmptyMessage
	}
	b := &Batch{}
	var current []string
	flush := func() {
		if len(current) > 0 {
			b.Messages = append(b.Messages, strings.Join(current, "\r"))
			current = nil
		}
	}
	for _, line := range lines {
		name := line
		if len(name) > 3 {
			name = name[:3]
		}
		switch name {
		case "FHS":
			b.FileHeader = line
		case "BHS":
			b.BatchHeader = line
		case "BTS":
			flush()
			b.BatchTrailer = line
		case "FTS":
			flush()
			b.FileTrailer = line
		case "MSH":
			flush()
			current = append(current, line)
		default:
			if len(current) == 0 {
				return nil, ErrNoMSH
			}
			current = append(current, line)
		}
	}
	flush()
	if len(b.Messages) == 0 {
		return nil, ErrNoMSH
	}
	return b, nil
}
