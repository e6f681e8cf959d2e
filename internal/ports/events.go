package ports

import (
	"context"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// EventStore persiste streams de eventos append-only con control de
// concurrencia optimista.
type EventStore interface {
	// Append añade events al stream aggregateID solo si su longitud actual es
	// expectedVersion. Si no, devuelve *domain.ConflictError y no escribe nada.
	// Los eventos deben llevar versiones consecutivas desde expectedVersion.
	Append(ctx context.Context, aggregateID string, events []domain.DomainEvent, expectedVersion int) error

	// Events devuelve el stream ordenado por versión ascendente.
	// Un stream inexistente devuelve una lista vacía, no un error.
	Events(ctx context.Context, aggregateID string) ([]domain.DomainEvent, error)
}

// EventPublisher notifica eventos ya persistidos a suscriptores externos.
// Es best-effort: un fallo no deshace el append.
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.DomainEvent) error
}
