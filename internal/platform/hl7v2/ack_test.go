package hl7v2

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/validation"
)

func fixedAcknowledger() *Acknowledger {
	a := NewAcknowledger(nil, "2.5")
	a.now = func() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) }
	a.newID = func() string { return "ACK1" }
	return a
}

func TestACK_Accept(t *testing.T) {
	h, err := parser.ParseHeader(`MSH|^~\&|LAB|HOSP^1.2.3^ISO|EHR|CLINIC|20240101||ORU^R01|CTRL1|P|2.5|||AL|NE`)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	out, err := fixedAcknowledger().ACKFromHeader(h, AckAccept, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.Join([]string{
		`MSH|^~\&|EHR|CLINIC|LAB|HOSP^1.2.3^ISO|20240301103000||ACK^R01^ACK|ACK1|P|2.5`,
		`MSA|AA|CTRL1`,
	}, "\r")
	if out != want {
		t.Errorf("expected\n%q\ngot\n%q", want, out)
	}
}

func TestACK_ErrorsModern(t *testing.T) {
	h, _ := parser.ParseHeader(`MSH|^~\&|LAB|HOSP|EHR|CLINIC|20240101||ADT^A01|C9|P|2.5`)
	issues := []validation.Issue{
		{Severity: validation.SeverityError, Code: validation.CodeRequiredFieldMissing, Message: "PID-5 is empty", Segment: "PID", Sequence: 1, Field: 5},
		{Severity: validation.SeverityWarning, Code: validation.CodeDataTypeError, Message: "too long", Segment: "PID", Sequence: 1, Field: 7, Component: 1},
	}
	out, err := fixedAcknowledger().ACKFromHeader(h, AckError, "validation failed", issues)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(out, "\r")
	if len(lines) != 4 {
		t.Fatalf("expected MSH, MSA and two ERR segments, got %q", out)
	}
	if lines[1] != "MSA|AE|C9|validation failed" {
		t.Errorf("unexpected MSA %q", lines[1])
	}
	if want := "ERR||PID^1^5^1|101^Required field missing^HL70357|E|||PID-5 is empty"; lines[2] != want {
		t.Errorf("expected %q, got %q", want, lines[2])
	}
	if want := "ERR||PID^1^7^1^1|102^Data type error^HL70357|W|||too long"; lines[3] != want {
		t.Errorf("expected %q, got %q", want, lines[3])
	}
}

func TestACK_ErrorsLegacy(t *testing.T) {
	h, _ := parser.ParseHeader(`MSH|^~\&|LAB|HOSP|EHR|CLINIC|20240101||ADT^A01|C9|P|2.3`)
	issues := []validation.Issue{
		{Code: validation.CodeRequiredFieldMissing, Message: "missing", Segment: "PID", Sequence: 1, Field: 5},
		{Code: validation.CodeSequenceError, Message: "no PV1", Segment: "PV1"},
	}
	out, err := fixedAcknowledger().ACKFromHeader(h, AckError, "", issues)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(out, "\r")
	if lines[0] != `MSH|^~\&|EHR|CLINIC|LAB|HOSP|20240301103000||ACK^A01|ACK1|P|2.3` {
		t.Errorf("unexpected MSH %q", lines[0])
	}
	if want := "ERR|PID^1^5^101&missing&HL70357~PV1^^^100&no PV1&HL70357"; lines[len(lines)-1] != want {
		t.Errorf("expected %q, got %q", want, lines[len(lines)-1])
	}
}

func TestACK_WithoutHeader(t *testing.T) {
	out, err := fixedAcknowledger().ACKFromHeader(nil, AckReject, "not HL7", []validation.Issue{
		{Severity: validation.SeverityError, Code: validation.CodeInternalError, Message: "no MSH"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.Join([]string{
		`MSH|^~\&|||||20240301103000||ACK|ACK1|P|2.5`,
		`MSA|AR||not HL7`,
		`ERR|||207^Application internal error^HL70357|E|||no MSH`,
	}, "\r")
	if out != want {
		t.Errorf("expected\n%q\ngot\n%q", want, out)
	}
}

func TestACK_KeepsDelimitersAndEscapes(t *testing.T) {
	p := parser.New(nil, parser.Options{})
	msg, err := p.Parse("MSH#*~\\&#APP#FAC#ME#US#20240101##ADT*A04#X1#P#2.4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := GenerateACK(msg, AckAccept, "a#b", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "MSH#*~\\&#ME#US#APP#FAC#") {
		t.Errorf("expected swapped applications with the incoming delimiters, got %q", out)
	}
	if !strings.Contains(out, "MSA#AA#X1#a\\F\\b") {
		t.Errorf("expected escaped acknowledgment text, got %q", out)
	}
	if !strings.Contains(out, "#ACK*A04*ACK#") {
		t.Errorf("expected ACK message type, got %q", out)
	}
}

func TestACK_TruncatesOnRuneBoundary(t *testing.T) {
	h, _ := parser.ParseHeader(`MSH|^~\&|LAB|HOSP|EHR|CLINIC|20240101||ADT^A01|C9|P|2.5`)
	text := strings.Repeat("a", 79) + "é and more"
	out, err := fixedAcknowledger().ACKFromHeader(h, AckError, text, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(out) {
		t.Fatalf("acknowledgment is not valid UTF-8: %q", out)
	}
	lines := strings.Split(out, "\r")
	if want := "MSA|AE|C9|" + strings.Repeat("a", 79); lines[1] != want {
		t.Errorf("expected %q, got %q", want, lines[1])
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"aé", 2, "a"},
		{"aé", 3, "aé"},
		{"日本", 4, "日"},
		{"日本", 2, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestNewControlID(t *testing.T) {
	a, b := NewControlID(), NewControlID()
	if len(a) != 20 || a == b {
		t.Errorf("unexpected control ids %q %q", a, b)
	}
}
