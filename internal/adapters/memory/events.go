// Package memory contiene adaptadores en memoria para tests y -dry-run.
// Son seguros para uso concurrente dentro de un proceso.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// EventStore implementa ports.EventStore sobre un map protegido por mutex.
type EventStore struct {
	mu      sync.Mutex
	streams map[string][]domain.DomainEvent
}

// NewEventStore crea un event store vacío.
func NewEventStore() *EventStore {
	return &EventStore{streams: make(map[string][]domain.DomainEvent)}
}

// Append añade el lote si la longitud del stream coincide con expectedVersion.
func (s *EventStore) Append(_ context.Context, aggregateID string, events []domain.DomainEvent, expectedVersion int) error {
	if err := domain.ValidateBatch(aggregateID, events, expectedVersion); err != nil {
		return fmt.Errorf("memory.Append: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := len(s.streams[aggregateID])
	if current != expectedVersion {
		return &domain.ConflictError{AggregateID: aggregateID, Expected: expectedVersion, Actual: current}
	}
	s.streams[aggregateID] = append(s.streams[aggregateID], events...)
	return nil
}

// Events devuelve una copia del stream.
func (s *EventStore) Events(_ context.Context, aggregateID string) ([]domain.DomainEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[aggregateID]
	out := make([]domain.DomainEvent, len(stream))
	copy(out, stream)
	return out, nil
}

