package terser

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
)

var oru = strings.Join([]string{
	`MSH|^~\&|LAB|HOSP|EHR|HOSP|20240101||ORU^R01|CTRL1|P|2.5`,
	`PID|1||555^^^HOSP^MR||Roe^Jane`,
	`OBR|1|ORD1|FIL1|CBC^Complete Blood Count^L`,
	`OBX|1|NM|WBC^White cells^L||7.5|10*9/L|4.0-11.0|N|||F`,
	`OBX|2|CE|HGB^Hemoglobin^L||N^Normal^HL70078||||||F`,
	`OBR|2|ORD2|FIL2|BMP^Basic Panel^L`,
	`OBX|1|ST|NA^Sodium^L||140||||||F`,
	`ZPI|1|Fluffy`,
	`ZPI|2|Rex`,
}, "\r")

func parse(t *testing.T, raw string) *model.Message {
	t.Helper()
	p := parser.New(schema.Default(), parser.Options{Logger: zerolog.Nop()})
	msg, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return msg
}

func emptyMessage(t *testing.T, structure string) *model.Message {
	t.Helper()
	v, err := schema.Default().Version("2.5")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	return v.NewMessage(structure)
}

func TestTerser_Get(t *testing.T) {
	tr := New(parse(t, oru))
	tests := []struct {
		path string
		want string
	}{
		{"/MSH-9-2", "R01"},
		{"/MSH-1", "|"},
		{"/MSH-2", `^~\&`},
		{"/PATIENT_RESULT/PATIENT/PID-5", "Roe"},
		{"/PATIENT_RESULT/PATIENT/PID-5-1-1", "Roe"},
		{"/PATIENT_RESULT/PATIENT/PID-5-2", "Jane"},
		{"/PATIENT_RESULT/PATIENT/PID-3-4", "HOSP"},
		{"/PATIENT_RESULT/ORDER_OBSERVATION(1)/OBR-4-2", "Basic Panel"},
		{"/PATIENT_RESULT/ORDER_OBSERVATION/OBSERVATION(1)/OBX-5-2", "Normal"},
		{"/.OBX-3-1", "WBC"},
		{"/.OBR-2", "ORD1"},
		{"/.OB?-3", "FIL1"},
		{"/.ZPI-2", "Fluffy"},
		{"/.ZPI(1)-2", "Rex"},
		{"/.PV1-2", ""},
		{"/PATIENT_RESULT/PATIENT/PID-5-9", ""},
		{"/PATIENT_RESULT/PATIENT/PID-3(4)", ""},
		{"/NOPE-1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := tr.Get(tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTerser_GetDoesNotCreate(t *testing.T) {
	msg := emptyMessage(t, "ORU_R01")
	tr := New(msg)
	for _, p := range []string{"/PATIENT_RESULT/PATIENT/PID-3", "/.OBX(2)-5-2", "/MSH-9"} {
		if got, _ := tr.Get(p); got != "" {
			t.Errorf("%s: expected empty, got %q", p, got)
		}
	}
	if n, _ := msg.RepetitionsUsed("PATIENT_RESULT"); n != 0 {
		t.Errorf("Get created %d PATIENT_RESULT groups", n)
	}
	if n, _ := msg.RepetitionsUsed("MSH"); n != 0 {
		t.Error("Get created MSH")
	}
}

func TestTerser_RelativePaths(t *testing.T) {
	tr := New(parse(t, oru))
	f := tr.Finder()
	if _, err := f.FindGroup("ORDER_OBSERVATION", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := tr.Get("OBR-2"); got != "ORD2" {
		t.Errorf("expected ORD2, got %q", got)
	}
	if got, _ := tr.Get(".OBX-5"); got != "140" {
		t.Errorf("expected 140 from the second order, got %q", got)
	}
	if got, _ := tr.Get("/.OBX-5"); got != "7.5" {
		t.Errorf("absolute path should restart at the root, got %q", got)
	}
}

func TestTerser_SetCreatesStructures(t *testing.T) {
	msg := emptyMessage(t, "ORU_R01")
	tr := New(msg)
	sets := []struct{ path, value string }{
		{"/MSH-9-1", "ORU"},
		{"/MSH-9-2", "R01"},
		{"/PATIENT_RESULT/ORDER_OBSERVATION(1)/OBSERVATION(2)/OBX-5", "x"},
		{"/.PID-5-1", "Doe"},
		{"/.PID-3(1)-1", "MRN2"},
	}
	for _, s := range sets {
		if err := tr.Set(s.path, s.value); err != nil {
			t.Fatalf("set %s: %v", s.path, err)
		}
	}

	pr, _ := msg.GetGroup("PATIENT_RESULT", 0)
	if n, _ := pr.RepetitionsUsed("ORDER_OBSERVATION"); n != 2 {
		t.Errorf("expected 2 orders, got %d", n)
	}
	oo, _ := pr.GetGroup("ORDER_OBSERVATION", 1)
	if n, _ := oo.RepetitionsUsed("OBSERVATION"); n != 3 {
		t.Errorf("expected 3 observations, got %d", n)
	}
	patient, ok := pr.Existing("PATIENT", 0)
	if !ok {
		t.Fatal("expected search to create the PATIENT group")
	}
	pid, _ := patient.(*model.Group).GetSegment("PID", 0)
	if pid.RepetitionsUsed(3) != 2 {
		t.Errorf("expected 2 PID-3 repetitions, got %d", pid.RepetitionsUsed(3))
	}

	for _, s := range sets {
		if got, _ := tr.Get(s.path); got != s.value {
			t.Errorf("%s: expected %q, got %q", s.path, s.value, got)
		}
	}
}

func TestTerser_SetVariesComponents(t *testing.T) {
	msg := parse(t, oru)
	tr := New(msg)
	if err := tr.Set("/.ZPI-3-2-2", "deep"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := tr.Get("/.ZPI-3-2-2"); got != "deep" {
		t.Errorf("expected deep, got %q", got)
	}
	out, err := parser.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(out, "ZPI|1|Fluffy|^&deep") {
		t.Errorf("expected nested value in output, got %q", out)
	}
}

func TestTerser_Segment(t *testing.T) {
	msg := emptyMessage(t, "ADT_A01")
	tr := New(msg)
	if _, err := tr.Segment("/PV1", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	seg, err := tr.Segment("/PV1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.Name() != "PV1" {
		t.Errorf("expected PV1, got %s", seg.Name())
	}
	if _, err := tr.Segment("/PROCEDURE/PR1", true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := tr.Segment("/PID/PV1", true); !errors.Is(err, model.ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
}

func TestTerser_InvalidPaths(t *testing.T) {
	tr := New(emptyMessage(t, "ADT_A01"))
	for _, p := range []string{"", "PID", "PID-0", "PID-x", "PID(1-3", "PID-1-2-3-4", "*-1", "PID(-1)-1", "/.[-1"} {
		if _, err := tr.Get(p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("%q: expected ErrInvalidPath, got %v", p, err)
		}
	}
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("/PATIENT_RESULT/.OBX(2)-5(1)-3-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Absolute || len(p.Steps) != 2 {
		t.Fatalf("unexpected path %+v", p)
	}
	seg := p.Segment()
	if seg.Name != "OBX" || seg.Rep != 2 || !seg.Search {
		t.Errorf("unexpected segment step %+v", seg)
	}
	if p.Field != 5 || p.FieldRep != 1 || p.Component != 3 || p.Subcomponent != 2 {
		t.Errorf("unexpected field part %+v", p)
	}
	if got := p.String(); got != "/PATIENT_RESULT/.OBX(2)-5(1)-3-2" {
		t.Errorf("unexpected rendering %q", got)
	}

	p, _ = ParsePath("PID-3")
	if p.Absolute || p.Component != 1 || p.Subcomponent != 1 || p.String() != "PID-3" {
		t.Errorf("unexpected defaults %+v", p)
	}
}

func TestGetValue_SetValue(t *testing.T) {
	seg := model.GenericFactory{}.NewSegment("ZZZ", nil)
	if err := SetValue(seg, 3, 2, 2, 1, "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.RepetitionsUsed(3) != 3 {
		t.Errorf("expected repetitions 0..2, got %d", seg.RepetitionsUsed(3))
	}
	if got := GetValue(seg, 3, 2, 2, 1); got != "x" {
		t.Errorf("expected x, got %q", got)
	}
	if got := GetValue(seg, 3, 2, 1, 1); got != "" {
		t.Errorf("expected empty first component, got %q", got)
	}
	if got := GetValue(seg, 4, 0, 1, 1); got != "" {
		t.Errorf("expected empty field, got %q", got)
	}

	v, _ := schema.Default().Version("2.5")
	st := model.NewSegment("ZST", nil, []model.FieldDef{{Type: "ST"}}, v)
	if err := SetValue(st, 1, 0, 2, 1, "extra"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := GetValue(st, 1, 0, 2, 1); got != "extra" {
		t.Errorf("expected extra component on a primitive, got %q", got)
	}
}
