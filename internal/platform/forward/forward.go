// Package forward publishes accepted HL7 messages to downstream systems.
package forward

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
)

// Event is the summary of one accepted message as sent downstream.
type Event struct {
	ID                   string    `json:"id"`
	ControlID            string    `json:"control_id"`
	SendingApplication   string    `json:"sending_application"`
	SendingFacility      string    `json:"sending_facility"`
	ReceivingApplication string    `json:"receiving_application"`
	ReceivingFacility    string    `json:"receiving_facility"`
	MessageType          string    `json:"message_type"`
	TriggerEvent         string    `json:"trigger_event"`
	Structure            string    `json:"structure"`
	Version              string    `json:"version"`
	ReceivedAt           time.Time `json:"received_at"`
	Raw                  string    `json:"raw"`
}

// NewEvent builds the event for a message from its header. structure is
// the structure the message was parsed as.
func NewEvent(id string, h *parser.Header, structure, raw string, at time.Time) Event {
	return Event{
		ID:                   id,
		ControlID:            h.ControlID,
		SendingApplication:   h.SendingApplication,
		SendingFacility:      h.SendingFacility,
		ReceivingApplication: h.ReceivingApplication,
		ReceivingFacility:    h.ReceivingFacility,
		MessageType:          h.MessageCode,
		TriggerEvent:         h.TriggerEvent,
		Structure:            structure,
		Version:              h.Version,
		ReceivedAt:           at.UTC(),
		Raw:                  raw,
	}
}

// Key identifies the message across retransmissions.
func (e Event) Key() string {
	return e.SendingApplication + "|" + e.ControlID
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Publish returns once the sink has accepted
// the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Multi publishes to every publisher in order and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
