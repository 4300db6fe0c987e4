package model

import (
	"errors"
	"testing"
)

func segmentChild(name string, required, repeating bool) ChildDef {
	return ChildDef{
		Name:      name,
		Required:  required,
		Repeating: repeating,
		New: func(parent *Group) Structure {
			return NewSegment(name, parent, nil, nil)
		},
	}
}

func newTestMessage() *Message {
	m := NewMessage("TST_T01", "2.5", nil)
	m.AddChild(segmentChild("MSH", true, false))
	m.AddChild(segmentChild("NTE", false, true))
	m.AddChild(ChildDef{
		Name:          "ORDER",
		Group:         true,
		Repeating:     true,
		FirstSegments: []string{"ORC", "OBR"},
		New: func(parent *Group) Structure {
			g := NewGroup("ORDER", parent)
			g.AddChild(segmentChild("ORC", false, false))
			g.AddChild(segmentChild("OBR", true, false))
			return g
		},
	})
	m.AddChild(segmentChild("NTE", false, true))
	return m
}

func TestGroup_DuplicateNamesGetSuffix(t *testing.T) {
	m := newTestMessage()
	names := m.Names()
	want := []string{"MSH", "NTE", "ORDER", "NTE2"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("name %d: expected %q, got %q", i, want[i], names[i])
		}
	}
	def, err := m.Def("NTE2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Segment != "NTE" {
		t.Errorf("expected NTE2 to hold NTE segments, got %q", def.Segment)
	}
}

func TestGroup_GetRep(t *testing.T) {
	m := newTestMessage()

	if _, err := m.GetRep("MSH", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.GetRep("MSH", 1); !errors.Is(err, ErrNotRepeating) {
		t.Errorf("expected ErrNotRepeating, got %v", err)
	}
	if _, err := m.GetRep("NTE", 2); !errors.Is(err, ErrRepetitionOutOfRange) {
		t.Errorf("expected ErrRepetitionOutOfRange, got %v", err)
	}
	if _, err := m.GetRep("ZZZ", 0); !errors.Is(err, ErrUnknownStructure) {
		t.Errorf("expected ErrUnknownStructure, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := m.GetRep("NTE", i); err != nil {
			t.Fatalf("rep %d: unexpected error: %v", i, err)
		}
	}
	if n, _ := m.RepetitionsUsed("NTE"); n != 3 {
		t.Errorf("expected 3 repetitions, got %d", n)
	}
}

func TestGroup_NestedGroupSharesMessage(t *testing.T) {
	m := newTestMessage()
	order, err := m.GetGroup("ORDER", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obr, err := order.GetSegment("OBR", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obr.Message() != m {
		t.Error("expected nested segment to resolve the root message")
	}
	if !m.CanStart("ORDER", "ORC") || !m.CanStart("ORDER", "OBR") {
		t.Error("expected ORDER to start with ORC or OBR")
	}
	if m.CanStart("ORDER", "NTE") {
		t.Error("ORDER should not start with NTE")
	}
	if _, err := m.GetSegment("ORDER", 0); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
}

func TestGroup_InsertAndRemove(t *testing.T) {
	m := newTestMessage()
	first, _ := m.Add("NTE")
	second, _ := m.Add("NTE")
	inserted, err := m.InsertRepetition("NTE", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := m.GetAll("NTE")
	if len(all) != 3 || all[0] != first || all[1] != inserted || all[2] != second {
		t.Fatalf("unexpected repetition order after insert")
	}

	if err := m.Remove("NTE", inserted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	removed, err := m.RemoveRepetition("NTE", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != first {
		t.Error("expected first repetition to be removed")
	}
	if n, _ := m.RepetitionsUsed("NTE"); n != 1 {
		t.Errorf("expected 1 repetition left, got %d", n)
	}
	if err := m.Remove("NTE", first); !errors.Is(err, ErrUnknownStructure) {
		t.Errorf("expected ErrUnknownStructure removing a detached structure, got %v", err)
	}
}

func TestGroup_GetAllCreatesRequired(t *testing.T) {
	m := newTestMessage()
	all, err := m.GetAll("MSH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected required MSH to be created, got %d", len(all))
	}
	notes, _ := m.GetAll("NTE")
	if len(notes) != 0 {
		t.Errorf("optional NTE should not be created, got %d", len(notes))
	}
}

func TestGroup_NonstandardSegment(t *testing.T) {
	m := newTestMessage()
	name := m.AddNonstandardSegment("ZPI", 1)
	if name != "ZPI" {
		t.Errorf("expected ZPI, got %q", name)
	}
	if idx := m.ChildIndex("ZPI"); idx != 1 {
		t.Errorf("expected ZPI at index 1, got %d", idx)
	}
	if idx := m.ChildIndex("NTE"); idx != 2 {
		t.Errorf("expected NTE shifted to index 2, got %d", idx)
	}
	if !m.IsNonstandard("ZPI") || !m.IsRepeating("ZPI") {
		t.Error("expected ZPI to be a repeating nonstandard child")
	}

	dup := m.AddNonstandardSegment("MSH", 2)
	if dup != "MSH2" {
		t.Errorf("expected MSH2, got %q", dup)
	}

	m.Clear()
	if m.ChildIndex("ZPI") != -1 {
		t.Error("Clear should drop nonstandard children")
	}
	if m.ChildIndex("NTE2") != 3 {
		t.Errorf("expected NTE2 back at index 3, got %d", m.ChildIndex("NTE2"))
	}
}

func TestGroup_WalkOrder(t *testing.T) {
	m := newTestMessage()
	m.Get("MSH")
	order, _ := m.GetGroup("ORDER", 0)
	order.Get("OBR")
	m.Add("NTE2")

	var names []string
	for _, seg := range m.Segments() {
		names = append(names, seg.Name())
	}
	want := []string{"MSH", "OBR", "NTE"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("segment %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}

func TestSegment_FieldRep(t *testing.T) {
	defs := []FieldDef{
		{Name: "Set ID", Type: "SI", MaxReps: 1},
		{Name: "Notes", Type: "ST", MaxReps: 0},
	}
	seg := NewSegment("NTE", nil, defs, nil)

	if _, err := seg.FieldRep(0, 0); !errors.Is(err, ErrFieldOutOfRange) {
		t.Errorf("expected ErrFieldOutOfRange, got %v", err)
	}
	if _, err := seg.FieldRep(1, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := seg.FieldRep(1, 1); !errors.Is(err, ErrRepetitionOutOfRange) {
		t.Errorf("expected max repetition error, got %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := seg.FieldRep(2, i); err != nil {
			t.Fatalf("unbounded field rep %d: %v", i, err)
		}
	}
	if seg.RepetitionsUsed(2) != 5 {
		t.Errorf("expected 5 reps, got %d", seg.RepetitionsUsed(2))
	}

	extra, err := seg.FieldRep(4, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extra.TypeName() != VariesTypeName {
		t.Errorf("fields past the definition should be Varies, got %s", extra.TypeName())
	}
	if seg.NumFields() != 4 {
		t.Errorf("expected 4 fields, got %d", seg.NumFields())
	}
	if !seg.IsEmpty() {
		t.Error("segment with empty fields should be empty")
	}

	if err := seg.RemoveRepetition(2, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.RepetitionsUsed(2) != 4 {
		t.Errorf("expected 4 reps after removal, got %d", seg.RepetitionsUsed(2))
	}
}

func TestComponentAt(t *testing.T) {
	hd := NewComposite("HD", NewPrimitive("IS"), NewPrimitive("ST"), NewPrimitive("ID"))
	cx := NewComposite("CX", NewPrimitive("ST"), NewPrimitive("ST"), NewPrimitive("ID"), hd)

	PrimitiveAt(cx, 1, 1).Set("MRN1")
	PrimitiveAt(cx, 4, 2).Set("1.2.3")
	PrimitiveAt(cx, 6, 1).Set("extra")

	if got := PrimitiveAt(cx, 1, 1).Value; got != "MRN1" {
		t.Errorf("expected MRN1, got %q", got)
	}
	if got := PrimitiveAt(hd, 2, 1).Value; got != "1.2.3" {
		t.Errorf("expected subcomponent stored in HD-2, got %q", got)
	}
	if cx.Extra().Len() != 2 {
		t.Errorf("expected two extra components (5 and 6), got %d", cx.Extra().Len())
	}

	p := NewPrimitive("ST")
	p.Set("value")
	if ComponentAt(p, 1) != p {
		t.Error("a primitive is its own first component")
	}
	PrimitiveAt(p, 3, 1).Set("x")
	if p.Extra().Len() != 2 {
		t.Errorf("expected extra components on primitive, got %d", p.Extra().Len())
	}
}

func TestComponentAt_VariesPromotion(t *testing.T) {
	v := NewVaries()
	FirstPrimitive(v).Set("first")
	PrimitiveAt(v, 2, 1).Set("second")

	gc, ok := v.Data().(*Composite)
	if !ok || !gc.Generic() {
		t.Fatalf("expected Varies to hold a generic composite, got %T", v.Data())
	}
	if got := PrimitiveAt(v, 1, 1).Value; got != "first" {
		t.Errorf("expected first component kept, got %q", got)
	}
	if got := PrimitiveAt(v, 2, 1).Value; got != "second" {
		t.Errorf("expected second, got %q", got)
	}
	v.Clear()
	if !v.IsEmpty() {
		t.Error("cleared Varies should be empty")
	}
}

func TestVaries_ExpandKeepsExtraComponents(t *testing.T) {
	v := NewVaries()
	p := FirstPrimitive(v)
	p.Set("a")
	p.Extra().Component(0).SetData(NewPrimitive("ST"))
	FirstPrimitive(p.Extra().Component(0)).Set("b")

	gc := v.Expand()
	if gc.Len() != 2 {
		t.Fatalf("expected 2 components after expand, got %d", gc.Len())
	}
	if got := PrimitiveAt(v, 2, 1).Value; got != "b" {
		t.Errorf("expected extra component to become component 2, got %q", got)
	}
	if p.Extra().Len() != 0 {
		t.Error("expected primitive extras to move into the composite")
	}
	if v.Expand() != gc {
		t.Error("expanding twice should return the same composite")
	}
}

func TestMessage_SetDelimiters(t *testing.T) {
	m := newTestMessage()
	m.Get("MSH")
	d := m.Delimiters()
	d.Component = '*'
	m.SetDelimiters(d)

	msh, _ := m.MSH()
	f2, _ := msh.ExistingRep(2, 0)
	if got := FirstPrimitive(f2).Value; got != `*~\&` {
		t.Errorf("expected MSH-2 to follow delimiters, got %q", got)
	}
}

func TestGroup_TypedHelpers(t *testing.T) {
	m := newTestMessage()
	if n := m.Count("NTE"); n != 0 {
		t.Errorf("expected 0 NTE, got %d", n)
	}
	if n := m.Count("ZZZ"); n != 0 {
		t.Errorf("expected 0 for unknown child, got %d", n)
	}
	a, err := m.AddSegment("NTE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := m.AddSegment("NTE")
	segs, err := m.SegmentReps("NTE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 2 || segs[0] != a || segs[1] != b {
		t.Fatalf("unexpected NTE repetitions %v", segs)
	}

	order, err := m.AddGroup("ORDER")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	groups, _ := m.GroupReps("ORDER")
	if len(groups) != 1 || groups[0] != order {
		t.Fatalf("unexpected ORDER repetitions %v", groups)
	}

	if _, err := m.SegmentReps("ORDER"); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
	if _, err := m.RemoveGroupAt("NTE", 0); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
	removed, err := m.RemoveSegmentAt("NTE", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != a || m.Count("NTE") != 1 {
		t.Error("expected first NTE removed")
	}
	if g, err := m.RemoveGroupAt("ORDER", 0); err != nil || g != order {
		t.Errorf("expected ORDER removed, got %v, %v", g, err)
	}
}
