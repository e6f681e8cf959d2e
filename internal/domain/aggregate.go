package domain

import (
	"fmt"
	"time"
)

// PredictionAggregate es el write-model event-sourced de una noticia.
//
// Cada stream corresponde a un news id: una noticia recibe como máximo una
// detección de sentimiento. La vista "última noticia por ticker" vive solo
// en el read model.
type PredictionAggregate struct {
	id      string
	state   PredictionState
	version int // eventos aplicados, committed + pending
	pending []DomainEvent
}

// NewPredictionAggregate crea un agregado vacío para el stream id.
func NewPredictionAggregate(id string) *PredictionAggregate {
	return &PredictionAggregate{id: id}
}

// RehydratePrediction pliega un stream histórico en orden.
// Cualquier hueco de versión, evento ajeno o transición ilegal aborta con
// ErrCorruptStream.
func RehydratePrediction(id string, stream []DomainEvent) (*PredictionAggregate, error) {
	a := NewPredictionAggregate(id)
	for _, e := range stream {
		if e.AggregateID != id {
			return nil, fmt.Errorf("domain.RehydratePrediction: %w: event %s belongs to %q, not %q",
				ErrCorruptStream, e.ID, e.AggregateID, id)
		}
		if e.Version != a.version {
			return nil, fmt.Errorf("domain.RehydratePrediction: %w: %q expected version %d, got %d",
				ErrCorruptStream, id, a.version, e.Version)
		}
		if err := a.when(e); err != nil {
			return nil, fmt.Errorf("domain.RehydratePrediction: %w", err)
		}
		a.version++
	}
	return a, nil
}

// ID devuelve el aggregate id (news id).
func (a *PredictionAggregate) ID() string { return a.id }

// State devuelve una copia del estado actual.
func (a *PredictionAggregate) State() PredictionState { return a.state }

// Version devuelve el número de eventos aplicados; es también la versión
// que tendrá el próximo evento.
func (a *PredictionAggregate) Version() int { return a.version }

// ExpectedVersion devuelve la versión del stream persistido, es decir, la
// que hay que pasar a EventStore.Append para los eventos pendientes.
func (a *PredictionAggregate) ExpectedVersion() int {
	return a.version - len(a.pending)
}

// PendingEvents devuelve los eventos aplicados desde el último commit.
func (a *PredictionAggregate) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(a.pending))
	copy(out, a.pending)
	return out
}

// MarkCommitted vacía el buffer de pendientes tras persistir y publicar.
func (a *PredictionAggregate) MarkCommitted() {
	a.pending = nil
}

// RegisterObservation registra el sentimiento de una noticia.
// Si el stream ya tiene una detección la llamada es un no-op: el sentimiento
// de un artículo se escribe una sola vez.
func (a *PredictionAggregate) RegisterObservation(news News, score RawScore, occurredAt time.Time) error {
	if news.ID != a.id {
		return fmt.Errorf("domain.RegisterObservation: %w: news %q does not belong to stream %q",
			ErrInvalidInput, news.ID, a.id)
	}
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("domain.RegisterObservation: %w: %d", ErrInvalidScore, score)
	}
	if a.state.HasDetection() {
		return nil
	}

	e := NewEvent(a.id, a.version, occurredAt, AssetFeelingDetected{
		Ticker: news.Ticker,
		NewsID: news.ID,
		URL:    news.URL,
		Title:  news.Title,
		Date:   news.Date.UTC(),
		Score:  score.Int(),
	})
	return a.apply(e)
}

// apply aplica un evento nuevo y lo deja pendiente de persistir.
func (a *PredictionAggregate) apply(e DomainEvent) error {
	if err := a.when(e); err != nil {
		return err
	}
	a.version++
	a.pending = append(a.pending, e)
	return nil
}

// when es la función de transición. El type switch cubre todas las
// variantes de Payload; el default solo se alcanza con un payload nil.
func (a *PredictionAggregate) when(e DomainEvent) error {
	switch p := e.Payload.(type) {
	case FirstTickerPrediction:
		if !a.state.IsEmpty() {
			return fmt.Errorf("%w: %s on non-empty stream %q", ErrCorruptStream, p.Type(), a.id)
		}
		a.state = PredictionState{Ticker: p.Ticker}
	case AssetFeelingDetected:
		if p.Score < MinScore || p.Score > MaxScore {
			return fmt.Errorf("%w: score %d out of range in event %s", ErrCorruptStream, p.Score, e.ID)
		}
		if !a.state.IsEmpty() && a.state.Ticker != p.Ticker {
			return fmt.Errorf("%w: ticker %q does not match stream ticker %q", ErrCorruptStream, p.Ticker, a.state.Ticker)
		}
		a.state = a.state.withFeeling(p)
	default:
		return fmt.Errorf("%w: unsupported payload %T in event %s", ErrCorruptStream, e.Payload, e.ID)
	}
	return nil
}
