package messagelog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// memoryRepo keeps records in process. It is used when no database is
// configured; records do not survive a restart.
type memoryRepo struct {
	mu      sync.RWMutex
	records []*Record
	byID    map[uuid.UUID]*Record
	// max bounds the number of records kept; the oldest are evicted.
	max int
}

// NewMemoryRepo returns an in-process repository holding at most max
// records. max <= 0 means 10000.
func NewMemoryRepo(max int) Repository {
	if max <= 0 {
		max = 10000
	}
	return &memoryRepo{byID: make(map[uuid.UUID]*Record), max: max}
}

func (r *memoryRepo) Create(_ context.Context, m *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	r.records = append(r.records, &cp)
	r.byID[cp.ID] = &cp
	if len(r.records) > r.max {
		delete(r.byID, r.records[0].ID)
		r.records = r.records[1:]
	}
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memoryRepo) GetByControlID(_ context.Context, sendingApp, controlID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *Record
	for _, m := range r.records {
		if m.SendingApp == sendingApp && m.ControlID == controlID {
			if latest == nil || !m.ReceivedAt.Before(latest.ReceivedAt) {
				latest = m
			}
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *memoryRepo) HasAccepted(_ context.Context, sendingApp, controlID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.records {
		if m.SendingApp == sendingApp && m.ControlID == controlID && m.Accepted() {
			return true, nil
		}
	}
	return false, nil
}

func (f ListFilter) matches(m *Record) bool {
	return (f.MessageType == "" || f.MessageType == m.MessageType) &&
		(f.SendingApp == "" || f.SendingApp == m.SendingApp) &&
		(f.AckCode == "" || f.AckCode == m.AckCode) &&
		(f.ControlID == "" || f.ControlID == m.ControlID)
}

func (r *memoryRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	r.mu.RLock()
	var matched []*Record
	for _, m := range r.records {
		if f.matches(m) {
			cp := *m
			matched = append(matched, &cp)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
