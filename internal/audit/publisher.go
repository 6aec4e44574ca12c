package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	id "gymgate/pkg/domain"
)

// Publisher accepts attendance events. Implementations must be safe for
// concurrent use; emission failures are the publisher's concern and never
// fail the attendance operation that produced the event.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store is an append-only event sink with per-org reads, used by tests and
// as the in-process fallback when Kafka is not configured.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]Event, error)
}

// StorePublisher adapts a Store into a Publisher, stamping the timestamp
// when the producer left it zero.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

// ChannelPublisher hands events to a worker inbox without blocking the
// request path. Events are dropped when the inbox is full; the ledger, not
// the event stream, is the system of record.
type ChannelPublisher struct {
	inbox chan<- Event
}

func NewChannelPublisher(inbox chan<- Event) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox}
}

func (p *ChannelPublisher) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return errors.New("audit inbox full, event dropped")
	}
}

// MemoryStore keeps events in memory for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByOrg(_ context.Context, orgID id.OrgID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, event := range s.events {
		if event.OrgID == orgID {
			out = append(out, event)
		}
	}
	return out, nil
}
