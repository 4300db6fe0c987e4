// Package messagelog keeps a durable record of every HL7 message the engine
// received and how it was acknowledged. It backs duplicate detection and
// the /messages API.
package messagelog

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/hl7engine/internal/platform/forward"
)

// Record maps to the hl7_messages table.
type Record struct {
	ID                uuid.UUID `db:"id" json:"id"`
	ControlID         string    `db:"control_id" json:"control_id"`
	SendingApp        string    `db:"sending_app" json:"sending_app"`
	SendingFacility   string    `db:"sending_facility" json:"sending_facility,omitempty"`
	ReceivingApp      string    `db:"receiving_app" json:"receiving_app,omitempty"`
	ReceivingFacility string    `db:"receiving_facility" json:"receiving_facility,omitempty"`
	MessageType       string    `db:"message_type" json:"message_type"`
	TriggerEvent      string    `db:"trigger_event" json:"trigger_event,omitempty"`
	Structure         string    `db:"structure" json:"structure,omitempty"`
	Version           string    `db:"version" json:"version"`
	AckCode           string    `db:"ack_code" json:"ack_code"`
	Raw               string    `db:"raw" json:"-"`
	ReceivedAt        time.Time `db:"received_at" json:"received_at"`
}

// FromEvent builds the record for an acknowledged message. The event id
// becomes the record id when it is a UUID.
func FromEvent(e forward.Event, ackCode string) *Record {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		id = uuid.New()
	}
	at := e.ReceivedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &Record{
		ID:                id,
		ControlID:         e.ControlID,
		SendingApp:        e.SendingApplication,
		SendingFacility:   e.SendingFacility,
		ReceivingApp:      e.ReceivingApplication,
		ReceivingFacility: e.ReceivingFacility,
		MessageType:       e.MessageType,
		TriggerEvent:      e.TriggerEvent,
		Structure:         e.Structure,
		Version:           e.Version,
		AckCode:           ackCode,
		Raw:               e.Raw,
		ReceivedAt:        at,
	}
}

// Accepted reports whether the message was positively acknowledged.
func (r *Record) Accepted() bool {
	return r.AckCode == "AA" || r.AckCode == "CA"
}
