package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
)

func TestParseGrammar(t *testing.T) {
	node, err := ParseGrammar("TST_T01", "MSH [{NTE}] {ORDER: [ORC] OBR [{OBSERVATION: OBX [{NTE}]}]} [DSC]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(node.Children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(node.Children))
	}

	nte := node.Children[1]
	if nte.Required || !nte.Repeating || nte.IsGroup() {
		t.Errorf("expected optional repeating NTE segment, got %+v", nte)
	}

	order := node.Children[2]
	if !order.IsGroup() || order.Name != "ORDER" || !order.Required || !order.Repeating {
		t.Errorf("expected required repeating ORDER group, got %+v", order)
	}
	if strings.Join(order.First, ",") != "ORC,OBR" {
		t.Errorf("expected ORDER to start with ORC or OBR, got %v", order.First)
	}

	obs := order.Children[3]
	if obs.Name != "OBSERVATION" || obs.Required || !obs.Repeating {
		t.Errorf("expected optional repeating OBSERVATION group, got %+v", obs)
	}

	if got := node.String(); got != "MSH [{NTE}] {ORDER: [ORC] OBR [{OBSERVATION: OBX [{NTE}]}]} [DSC]" {
		t.Errorf("unexpected rendering %q", got)
	}
}

func TestParseGrammar_Errors(t *testing.T) {
	tests := []struct {
		name    string
		grammar string
	}{
		{"empty", ""},
		{"unclosed", "MSH [PID"},
		{"stray close", "MSH PID]"},
		{"unnamed group", "MSH [PID PV1]"},
		{"lowercase", "MSH pid"},
		{"empty group", "MSH [X: ]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGrammar("TST", tt.grammar); err == nil {
				t.Errorf("expected error for %q", tt.grammar)
			}
		})
	}
}

func TestRegistry_BuiltinVersions(t *testing.T) {
	r, err := NewRegistry(zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2.3", "2.3.1", "2.4", "2.5", "2.5.1", "2.6"}
	got := r.Versions()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if _, err := r.Version("9.9"); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestVersion_Inheritance(t *testing.T) {
	r := Default()
	v26, err := r.Version("2.6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v26.Extends() != "2.5.1" {
		t.Errorf("expected 2.6 to extend 2.5.1, got %q", v26.Extends())
	}
	if defs, _ := v26.SegmentDef("MSH"); len(defs) != 25 {
		t.Errorf("expected 25 MSH fields in 2.6, got %d", len(defs))
	}
	// PID comes from 2.5 through 2.5.1.
	if defs, _ := v26.SegmentDef("PID"); len(defs) != 39 {
		t.Errorf("expected 39 PID fields inherited from 2.5, got %d", len(defs))
	}
	v23, _ := r.Version("2.3")
	if defs, _ := v23.SegmentDef("PID"); len(defs) != 30 {
		t.Errorf("expected 30 PID fields in 2.3, got %d", len(defs))
	}
	if comps, _ := v23.DataType("CM_MSG"); len(comps) != 2 {
		t.Errorf("expected 2 component MSH-9 in 2.3, got %v", comps)
	}
	v231, _ := r.Version("2.3.1")
	if comps, _ := v231.DataType("CM_MSG"); len(comps) != 3 {
		t.Errorf("expected 3 component MSH-9 in 2.3.1, got %v", comps)
	}
}

func TestVersion_ResolveStructure(t *testing.T) {
	v, err := Default().Version("2.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		code, trigger, structure string
		want                     string
	}{
		{"ADT", "A01", "", "ADT_A01"},
		{"ADT", "A04", "", "ADT_A01"},
		{"ADT", "A04", "ADT_A05", "ADT_A05"},
		{"ADT", "A40", "", "ADT_A39"},
		{"ACK", "A01", "", "ACK"},
		{"ACK", "", "", "ACK"},
		{"ORU", "R01", "NOT_REAL", "ORU_R01"},
		{"ZZZ", "Z01", "", ""},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		got := v.ResolveStructure(tt.code, tt.trigger, tt.structure)
		if got != tt.want {
			t.Errorf("ResolveStructure(%q, %q, %q) = %q, want %q", tt.code, tt.trigger, tt.structure, got, tt.want)
		}
	}
}

func TestVersion_NewMessage(t *testing.T) {
	v, _ := Default().Version("2.5")
	m := v.NewMessage("ORU_R01")
	if m.Structure() != "ORU_R01" || m.Version() != "2.5" {
		t.Fatalf("unexpected message %s %s", m.Structure(), m.Version())
	}
	pr, err := m.GetGroup("PATIENT_RESULT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oo, err := pr.GetGroup("ORDER_OBSERVATION", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obx, err := oo.GetGroup("OBSERVATION", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seg, err := obx.GetSegment("OBX", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.Message() != m {
		t.Error("segment should belong to the message")
	}
	if def, _ := seg.FieldDef(5); def.Type != model.VariesTypeName {
		t.Errorf("expected OBX-5 to be varies, got %q", def.Type)
	}
	if !m.CanStart("PATIENT_RESULT", "PID") || !m.CanStart("PATIENT_RESULT", "OBR") {
		t.Error("PATIENT_RESULT should open on PID, ORC or OBR")
	}

	generic := v.NewMessage("NOPE_X01")
	if !generic.IsGeneric() {
		t.Error("unknown structure should produce a generic message")
	}
	if strings.Join(generic.Names(), ",") != "MSH" {
		t.Errorf("generic message should declare only MSH, got %v", generic.Names())
	}
}

func TestVersion_NewType(t *testing.T) {
	v, _ := Default().Version("2.5")

	cx, ok := v.NewType("CX").(*model.Composite)
	if !ok {
		t.Fatalf("expected CX composite, got %T", v.NewType("CX"))
	}
	if cx.Len() != 10 {
		t.Errorf("expected 10 CX components, got %d", cx.Len())
	}
	hd, ok := cx.Components()[3].(*model.Composite)
	if !ok || hd.TypeName() != "HD" {
		t.Fatalf("expected CX-4 to be HD, got %T", cx.Components()[3])
	}
	if _, ok := hd.Components()[0].(*model.Primitive); !ok {
		t.Error("HD components should be primitives")
	}

	// FN sits at component level, so it stays a composite.
	ppn := v.NewType("PPN").(*model.Composite)
	if _, ok := ppn.Components()[1].(*model.Composite); !ok {
		t.Error("PPN-2 FN should be a composite")
	}

	if _, ok := v.NewType("ST").(*model.Primitive); !ok {
		t.Error("ST should be a primitive")
	}
	if _, ok := v.NewType("varies").(*model.Varies); !ok {
		t.Error("varies should build a Varies")
	}
}

func TestRegistry_LoadCustomTables(t *testing.T) {
	r, err := NewRegistry(zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fsys := fstest.MapFS{
		"site.yaml": &fstest.MapFile{Data: []byte(`
version: "2.5"
events:
  ADT_Z99: ADT_Z99
segments:
  ZPI:
    - [SI, O, 1, 4, Set ID]
    - [ST, R, "*", 80, Pet Name]
messages:
  ADT_Z99: "MSH EVN PID [{ZPI}]"
`)},
		"local.yaml": &fstest.MapFile{Data: []byte(`
version: "2.5-local"
extends: "2.5"
`)},
	}
	if err := r.Load(fsys, "*.yaml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, _ := r.Version("2.5")
	if got := v.ResolveStructure("ADT", "Z99", ""); got != "ADT_Z99" {
		t.Errorf("expected custom structure, got %q", got)
	}
	if defs, ok := v.SegmentDef("ZPI"); !ok || !defs[1].Required || defs[1].MaxReps != 0 {
		t.Errorf("unexpected ZPI definition %+v", defs)
	}
	// the overlay keeps the built-in structures
	if got := v.ResolveStructure("ADT", "A04", ""); got != "ADT_A01" {
		t.Errorf("expected built-in mapping kept, got %q", got)
	}

	local, err := r.Version("2.5-local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := local.Structure("ADT_Z99"); !ok {
		t.Error("extending version should see the overlay")
	}
}

func TestRegistry_LoadRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing version", "segments: {}"},
		{"bad usage", "version: \"9\"\nsegments:\n  ZZZ:\n    - [ST, Q, 1, 1, X]\n"},
		{"short row", "version: \"9\"\nsegments:\n  ZZZ:\n    - [ST, R, 1]\n"},
		{"bad grammar", "version: \"9\"\nmessages:\n  X_Y: \"MSH [PID\"\n"},
		{"no msh", "version: \"9\"\nmessages:\n  X_Y: \"PID\"\n"},
		{"unknown event target", "version: \"9\"\nevents:\n  A_B: C_D\n"},
		{"unknown parent", "version: \"9\"\nextends: \"8\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(zerolog.Nop())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			fsys := fstest.MapFS{"bad.yaml": &fstest.MapFile{Data: []byte(tt.data)}}
			if err := r.Load(fsys, "*.yaml"); err == nil {
				t.Fatal("expected error")
			}
			// a failed load leaves the registry untouched
			if _, err := r.Version("2.5"); err != nil {
				t.Errorf("built-in tables lost after failed load: %v", err)
			}
		})
	}
}

func TestRegistry_ExtendsCycle(t *testing.T) {
	r, _ := NewRegistry(zerolog.Nop())
	fsys := fstest.MapFS{
		"a.yaml": &fstest.MapFile{Data: []byte("version: \"x\"\nextends: \"y\"\n")},
		"b.yaml": &fstest.MapFile{Data: []byte("version: \"y\"\nextends: \"x\"\n")},
	}
	err := r.Load(fsys, "*.yaml")
	if !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable, got %v", err)
	}
}

func TestRegistry_LoadDirReplacesLayer(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "z.yaml")
	write := func(grammar string) {
		t.Helper()
		data := "version: \"2.5\"\nmessages:\n  ZZZ_Z01: \"" + grammar + "\"\n"
		if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r, _ := NewRegistry(zerolog.Nop())
	write("MSH PID")
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	write("MSH PID PV1")
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := r.Version("2.5")
	g, ok := v.Grammar("ZZZ_Z01")
	if !ok || g != "MSH PID PV1" {
		t.Errorf("expected reloaded grammar, got %q", g)
	}
}
