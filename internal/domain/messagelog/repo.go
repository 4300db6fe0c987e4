package messagelog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("messagelog: message not found")

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	MessageType string
	SendingApp  string
	AckCode     string
	ControlID   string
}

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// GetByControlID returns the most recent record for the pair.
	GetByControlID(ctx context.Context, sendingApp, controlID string) (*Record, error)
	// HasAccepted reports whether any record for the pair was accepted.
	HasAccepted(ctx context.Context, sendingApp, controlID string) (bool, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error)
}
