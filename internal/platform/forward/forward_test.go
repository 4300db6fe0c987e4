package forward

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
)

func testEvent(t *testing.T) Event {
	t.Helper()
	h, err := parser.ParseHeader(`MSH|^~\&|LAB|HOSP|EHR|CLINIC|20240101||ORU^R01^ORU_R01|CTRL1|P|2.5`)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	return NewEvent("evt-1", h, "ORU_R01", "MSH|...", at)
}

func TestNewEvent(t *testing.T) {
	e := testEvent(t)
	want := Event{
		ID:                   "evt-1",
		ControlID:            "CTRL1",
		SendingApplication:   "LAB",
		SendingFacility:      "HOSP",
		ReceivingApplication: "EHR",
		ReceivingFacility:    "CLINIC",
		MessageType:          "ORU",
		TriggerEvent:         "R01",
		Structure:            "ORU_R01",
		Version:              "2.5",
		ReceivedAt:           time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC),
		Raw:                  "MSH|...",
	}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
	if e.Key() != "LAB|CTRL1" {
		t.Errorf("unexpected key %q", e.Key())
	}

	body, err := e.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["control_id"] != "CTRL1" || fields["received_at"] != "2024-01-01T17:00:00Z" {
		t.Errorf("unexpected JSON %s", body)
	}
}

type recorder struct {
	events []Event
	err    error
	closed bool
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("down")}
	m := Multi{bad, ok, Nop{}}
	err := m.Publish(context.Background(), testEvent(t))
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.events) != 1 {
		t.Error("a failing publisher must not stop the others")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !ok.closed || !bad.closed {
		t.Error("expected all publishers closed")
	}
}

func TestKafkaRecord(t *testing.T) {
	e := testEvent(t)
	rec, err := kafkaRecord(context.Background(), "hl7.inbound", e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Topic != "hl7.inbound" || string(rec.Key) != "LAB|CTRL1" {
		t.Errorf("unexpected record %s %s", rec.Topic, rec.Key)
	}
	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["hl7-message-type"] != "ORU^R01" || headers["hl7-version"] != "2.5" {
		t.Errorf("unexpected headers %v", headers)
	}
	if _, ok := headers["traceparent"]; ok {
		t.Error("no traceparent without a span")
	}
}

func TestNewKafka_Config(t *testing.T) {
	if _, err := NewKafka(KafkaConfig{Topic: "t"}, zerolog.Nop()); err == nil {
		t.Error("expected error without brokers")
	}
}

type fakeChannel struct {
	published []amqp.Publishing
	confirms  chan amqp.Confirmation
	ack       bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, msg)
	f.confirms <- amqp.Confirmation{DeliveryTag: uint64(len(f.published)), Ack: f.ack}
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestAMQP_Confirms(t *testing.T) {
	ch := &fakeChannel{confirms: make(chan amqp.Confirmation, 1), ack: true}
	a := newAMQP(ch, ch.confirms, "hl7", zerolog.Nop())
	if err := a.Publish(context.Background(), testEvent(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := ch.published[0]
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" || msg.MessageId != "evt-1" {
		t.Errorf("unexpected publishing %+v", msg)
	}

	ch.ack = false
	if err := a.Publish(context.Background(), testEvent(t)); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("expected ErrNotConfirmed, got %v", err)
	}
}

func TestAMQP_ContextCancelled(t *testing.T) {
	confirms := make(chan amqp.Confirmation)
	ch := &silentChannel{}
	a := newAMQP(ch, confirms, "hl7", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Publish(ctx, testEvent(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type silentChannel struct{}

func (silentChannel) PublishWithContext(context.Context, string, string, bool, bool, amqp.Publishing) error {
	return nil
}
func (silentChannel) Close() error { return nil }
