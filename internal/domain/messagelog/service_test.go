package messagelog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/forward"
	"github.com/ehr/hl7engine/internal/platform/hl7v2"
)

var _ hl7v2.Journal = (*Service)(nil)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func event(app, control, msgType string, at time.Time) forward.Event {
	return forward.Event{
		ID:                 uuid.NewString(),
		ControlID:          control,
		SendingApplication: app,
		SendingFacility:    "HOSP",
		MessageType:        msgType,
		TriggerEvent:       "A01",
		Structure:          msgType + "_A01",
		Version:            "2.5",
		ReceivedAt:         at,
		Raw:                "MSH|^~\\&|" + app + "|HOSP|||20240301||" + msgType + "^A01|" + control + "|P|2.5",
	}
}

func newService() *Service {
	return NewService(NewMemoryRepo(0), zerolog.Nop())
}

func TestService_SeenOnlyAfterAccept(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	if seen, err := svc.Seen(ctx, "LAB", "C1"); err != nil || seen {
		t.Fatalf("expected unseen before record, got %v %v", seen, err)
	}
	if err := svc.Record(ctx, event("LAB", "C1", "ADT", t0), "AE"); err != nil {
		t.Fatal(err)
	}
	if seen, _ := svc.Seen(ctx, "LAB", "C1"); seen {
		t.Error("a rejected attempt must not count as seen")
	}
	if err := svc.Record(ctx, event("LAB", "C1", "ADT", t0.Add(time.Second)), "AA"); err != nil {
		t.Fatal(err)
	}
	if seen, _ := svc.Seen(ctx, "LAB", "C1"); !seen {
		t.Error("expected accepted message to be seen")
	}
	if seen, _ := svc.Seen(ctx, "OTHER", "C1"); seen {
		t.Error("control ids are scoped to the sending application")
	}
	if seen, _ := svc.Seen(ctx, "LAB", ""); seen {
		t.Error("an empty control id is never a duplicate")
	}
}

func TestService_RecordAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	e := event("LAB", "C7", "ORU", t0)

	if err := svc.Record(ctx, e, "CA"); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, uuid.MustParse(e.ID))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := &Record{
		ID:              uuid.MustParse(e.ID),
		ControlID:       "C7",
		SendingApp:      "LAB",
		SendingFacility: "HOSP",
		MessageType:     "ORU",
		TriggerEvent:    "A01",
		Structure:       "ORU_A01",
		Version:         "2.5",
		AckCode:         "CA",
		Raw:             e.Raw,
		ReceivedAt:      t0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if !got.Accepted() {
		t.Error("CA should count as accepted")
	}

	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Record(ctx, e, " "); err == nil {
		t.Error("expected error without ack code")
	}
}

func TestService_GetByControlIDReturnsLatest(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	svc.Record(ctx, event("LAB", "C1", "ADT", t0), "AE")
	svc.Record(ctx, event("LAB", "C1", "ADT", t0.Add(time.Minute)), "AA")

	got, err := svc.GetByControlID(ctx, "LAB", "C1")
	if err != nil {
		t.Fatal(err)
	}
	if got.AckCode != "AA" {
		t.Errorf("expected most recent attempt, got %s", got.AckCode)
	}
	if _, err := svc.GetByControlID(ctx, "LAB", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFromEvent_InvalidIDGetsNewUUID(t *testing.T) {
	e := event("LAB", "C1", "ADT", time.Time{})
	e.ID = "not-a-uuid"
	r := FromEvent(e, "AA")
	if r.ID == uuid.Nil {
		t.Error("expected a generated id")
	}
	if r.ReceivedAt.IsZero() {
		t.Error("expected receipt time to default to now")
	}
}

func TestMemoryRepo_ListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo(0)
	for i, e := range []forward.Event{
		event("LAB", "1", "ORU", t0),
		event("ADMIT", "2", "ADT", t0.Add(1*time.Minute)),
		event("LAB", "3", "ORU", t0.Add(2*time.Minute)),
		event("LAB", "4", "ORU", t0.Add(3*time.Minute)),
	} {
		code := "AA"
		if i == 2 {
			code = "AE"
		}
		if err := repo.Create(ctx, FromEvent(e, code)); err != nil {
			t.Fatal(err)
		}
	}

	controls := func(items []*Record) []string {
		var out []string
		for _, r := range items {
			out = append(out, r.ControlID)
		}
		return out
	}

	items, total, _ := repo.List(ctx, ListFilter{}, 2, 0)
	if total != 4 {
		t.Errorf("expected total 4, got %d", total)
	}
	if diff := cmp.Diff([]string{"4", "3"}, controls(items)); diff != "" {
		t.Errorf("newest first (-want +got):\n%s", diff)
	}
	items, _, _ = repo.List(ctx, ListFilter{}, 2, 2)
	if diff := cmp.Diff([]string{"2", "1"}, controls(items)); diff != "" {
		t.Errorf("second page (-want +got):\n%s", diff)
	}
	items, total, _ = repo.List(ctx, ListFilter{SendingApp: "LAB", AckCode: "AA"}, 10, 0)
	if total != 2 || cmp.Diff([]string{"4", "1"}, controls(items)) != "" {
		t.Errorf("filtered list: total=%d items=%v", total, controls(items))
	}
	if items, total, _ := repo.List(ctx, ListFilter{}, 10, 10); items != nil || total != 4 {
		t.Errorf("offset past end: items=%v total=%d", items, total)
	}
}

func TestMemoryRepo_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo(2)
	first := FromEvent(event("LAB", "1", "ADT", t0), "AA")
	repo.Create(ctx, first)
	repo.Create(ctx, FromEvent(event("LAB", "2", "ADT", t0), "AA"))
	repo.Create(ctx, FromEvent(event("LAB", "3", "ADT", t0), "AA"))

	if _, err := repo.GetByID(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected oldest record evicted, got %v", err)
	}
	if _, total, _ := repo.List(ctx, ListFilter{}, 10, 0); total != 2 {
		t.Errorf("expected 2 records kept, got %d", total)
	}
}

func TestListFilter_Where(t *testing.T) {
	where, args := ListFilter{}.where()
	if where != "" || args != nil {
		t.Errorf("empty filter should render nothing, got %q %v", where, args)
	}
	where, args = ListFilter{MessageType: "ADT", AckCode: "AA"}.where()
	if where != " WHERE message_type = $1 AND ack_code = $2" {
		t.Errorf("unexpected where clause %q", where)
	}
	if diff := cmp.Diff([]interface{}{"ADT", "AA"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrations_Embedded(t *testing.T) {
	migrations, err := NewMigrator(nil).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations failed: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Name != "001_messages.sql" {
		t.Fatalf("expected 001_messages.sql first, got %+v", migrations)
	}
}
