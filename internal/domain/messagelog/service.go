package messagelog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/forward"
)

// Service records processed messages and answers duplicate checks. It
// satisfies hl7v2.Journal.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "messagelog").Logger()}
}

// Seen reports whether a message from sendingApp with controlID was
// accepted before. Rejected attempts do not count, so a sender may
// retransmit after fixing a message.
func (s *Service) Seen(ctx context.Context, sendingApp, controlID string) (bool, error) {
	if controlID == "" {
		return false, nil
	}
	ok, err := s.repo.HasAccepted(ctx, sendingApp, controlID)
	if err != nil {
		return false, fmt.Errorf("messagelog: duplicate check: %w", err)
	}
	return ok, nil
}

// Record stores e with the acknowledgment code it received.
func (s *Service) Record(ctx context.Context, e forward.Event, ackCode string) error {
	if strings.TrimSpace(ackCode) == "" {
		return fmt.Errorf("messagelog: ack code is required")
	}
	r := FromEvent(e, ackCode)
	if err := s.repo.Create(ctx, r); err != nil {
		return fmt.Errorf("messagelog: store %s/%s: %w", r.SendingApp, r.ControlID, err)
	}
	s.logger.Debug().Str("id", r.ID.String()).Str("control_id", r.ControlID).Str("ack", ackCode).Msg("message recorded")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByControlID(ctx context.Context, sendingApp, controlID string) (*Record, error) {
	return s.repo.GetByControlID(ctx, sendingApp, controlID)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}
