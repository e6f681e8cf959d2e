// Package firestore implementa el event store sobre Cloud Firestore.
//
// Cada stream es un documento streams/{id} con su longitud en el campo
// "version"; los eventos viven en la subcolección streams/{id}/events con
// la versión como ID de documento.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/alejandrodnm/stocksense/internal/domain"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const streamsCollection = "streams"

type streamDoc struct {
	Version   int       `firestore:"version"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type eventDoc struct {
	EventID     string    `firestore:"event_id"`
	AggregateID string    `firestore:"aggregate_id"`
	Version     int       `firestore:"version"`
	Type        string    `firestore:"type"`
	OccurredAt  time.Time `firestore:"occurred_at"`
	StoredAt    time.Time `firestore:"stored_at"`
	Payload     string    `firestore:"payload"`
}

// EventStore implementa ports.EventStore.
type EventStore struct {
	client *gfs.Client
	now    func() time.Time
}

// NewEventStore abre un cliente para el proyecto. Con FIRESTORE_EMULATOR_HOST
// definido, el SDK conecta con el emulador.
func NewEventStore(ctx context.Context, projectID string) (*EventStore, error) {
	client, err := gfs.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewEventStore: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return &EventStore{client: client, now: time.Now}, nil
}

func (s *EventStore) Close() error {
	return s.client.Close()
}

func (s *EventStore) stream(aggregateID string) *gfs.DocumentRef {
	return s.client.Collection(streamsCollection).Doc(aggregateID)
}

func eventDocID(version int) string {
	return fmt.Sprintf("%010d", version)
}

// Append comprueba la longitud del stream y escribe el lote dentro de una
// transacción. Firestore reintenta la transacción si otro writer toca el
// documento del stream; en el reintento la lectura ve la nueva versión y
// el append termina en ConflictError.
func (s *EventStore) Append(ctx context.Context, aggregateID string, events []domain.DomainEvent, expectedVersion int) error {
	if err := domain.ValidateBatch(aggregateID, events, expectedVersion); err != nil {
		return fmt.Errorf("firestore.Append: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	docs := make([]eventDoc, len(events))
	storedAt := s.now().UTC()
	for i, e := range events {
		typ, payload, err := domain.EncodePayload(e.Payload)
		if err != nil {
			return fmt.Errorf("firestore.Append: %w", err)
		}
		docs[i] = eventDoc{
			EventID:     e.ID,
			AggregateID: e.AggregateID,
			Version:     e.Version,
			Type:        string(typ),
			OccurredAt:  e.OccurredAt.UTC(),
			StoredAt:    storedAt,
			Payload:     string(payload),
		}
	}

	ref := s.stream(aggregateID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		current := 0
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			var sd streamDoc
			if err := snap.DataTo(&sd); err != nil {
				return fmt.Errorf("%w: stream %s: %v", domain.ErrCorruptStream, aggregateID, err)
			}
			current = sd.Version
		}
		if current != expectedVersion {
			return &domain.ConflictError{AggregateID: aggregateID, Expected: expectedVersion, Actual: current}
		}

		for _, d := range docs {
			if err := tx.Create(ref.Collection("events").Doc(eventDocID(d.Version)), d); err != nil {
				return err
			}
		}
		return tx.Set(ref, streamDoc{Version: expectedVersion + len(docs), UpdatedAt: storedAt})
	})
	if err == nil {
		return nil
	}

	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		return conflict
	case errors.Is(err, domain.ErrCorruptStream):
		return fmt.Errorf("firestore.Append: %w", err)
	case status.Code(err) == codes.AlreadyExists:
		return &domain.ConflictError{AggregateID: aggregateID, Expected: expectedVersion, Actual: expectedVersion + 1}
	default:
		return fmt.Errorf("firestore.Append: %s: %w: %w", aggregateID, domain.ErrStorageUnavailable, err)
	}
}

// Events lee la subcolección ordenada por versión.
func (s *EventStore) Events(ctx context.Context, aggregateID string) ([]domain.DomainEvent, error) {
	if aggregateID == "" {
		return nil, fmt.Errorf("firestore.Events: %w: empty aggregate id", domain.ErrInvalidInput)
	}

	iter := s.stream(aggregateID).Collection("events").OrderBy("version", gfs.Asc).Documents(ctx)
	defer iter.Stop()

	out := []domain.DomainEvent{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore.Events: %s: %w: %w", aggregateID, domain.ErrStorageUnavailable, err)
		}
		var d eventDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("firestore.Events: %w: %s: %v", domain.ErrCorruptStream, snap.Ref.ID, err)
		}
		if d.Version != len(out) {
			return nil, fmt.Errorf("firestore.Events: %w: %s has gap at version %d", domain.ErrCorruptStream, aggregateID, len(out))
		}
		payload, err := domain.DecodePayload(domain.EventType(d.Type), []byte(d.Payload))
		if err != nil {
			return nil, fmt.Errorf("firestore.Events: %w", err)
		}
		out = append(out, domain.DomainEvent{
			ID:          d.EventID,
			AggregateID: d.AggregateID,
			Version:     d.Version,
			OccurredAt:  d.OccurredAt.UTC(),
			Payload:     payload,
		})
	}
	return out, nil
}
