package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType es la etiqueta persistida de cada variante de evento.
type EventType string

const (
	EventFirstTickerPrediction EventType = "FIRST_TICKER_PREDICTION"
	EventAssetFeelingDetected  EventType = "ASSET_FEELING_DETECTED"
)

// Payload es el conjunto cerrado de variantes de evento.
// El método no exportado impide implementaciones fuera del paquete.
type Payload interface {
	Type() EventType
	isPayload()
}

// FirstTickerPrediction abre un stream para un ticker sin noticia asociada.
type FirstTickerPrediction struct {
	Ticker string `json:"ticker"`
}

// AssetFeelingDetected registra el sentimiento detectado para una noticia.
type AssetFeelingDetected struct {
	Ticker string    `json:"ticker"`
	NewsID string    `json:"news_id"`
	URL    string    `json:"url"`
	Title  string    `json:"title"`
	Date   time.Time `json:"date"`
	Score  int       `json:"score"`
}

func (FirstTickerPrediction) Type() EventType { return EventFirstTickerPrediction }
func (AssetFeelingDetected) Type() EventType  { return EventAssetFeelingDetected }

func (FirstTickerPrediction) isPayload() {}
func (AssetFeelingDetected) isPayload()  {}

// DomainEvent es un hecho inmutable de un stream.
type DomainEvent struct {
	ID          string
	AggregateID string
	Version     int
	OccurredAt  time.Time
	Payload     Payload
}

// Type devuelve la etiqueta de la variante.
func (e DomainEvent) Type() EventType {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Type()
}

// NewEvent crea un evento con ID nuevo y timestamp en UTC.
func NewEvent(aggregateID string, version int, occurredAt time.Time, p Payload) DomainEvent {
	return DomainEvent{
		ID:          uuid.NewString(),
		AggregateID: aggregateID,
		Version:     version,
		OccurredAt:  occurredAt.UTC(),
		Payload:     p,
	}
}

// EncodePayload serializa el payload a JSON junto con su etiqueta.
func EncodePayload(p Payload) (EventType, []byte, error) {
	if p == nil {
		return "", nil, fmt.Errorf("domain.EncodePayload: %w: nil payload", ErrInvalidInput)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("domain.EncodePayload: %w", err)
	}
	return p.Type(), data, nil
}

// DecodePayload reconstruye la variante a partir de la etiqueta persistida.
// Una etiqueta desconocida indica un stream corrupto.
func DecodePayload(t EventType, data []byte) (Payload, error) {
	switch t {
	case EventFirstTickerPrediction:
		var p FirstTickerPrediction
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("domain.DecodePayload: %w: %s: %v", ErrCorruptStream, t, err)
		}
		return p, nil
	case EventAssetFeelingDetected:
		var p AssetFeelingDetected
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("domain.DecodePayload: %w: %s: %v", ErrCorruptStream, t, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("domain.DecodePayload: %w: unknown event type %q", ErrCorruptStream, t)
	}
}

// ValidateBatch comprueba que un lote a persistir pertenece al stream y
// que sus versiones son consecutivas desde expectedVersion.
func ValidateBatch(aggregateID string, events []DomainEvent, expectedVersion int) error {
	if aggregateID == "" {
		return fmt.Errorf("%w: empty aggregate id", ErrInvalidInput)
	}
	if expectedVersion < 0 {
		return fmt.Errorf("%w: negative expected version %d", ErrInvalidInput, expectedVersion)
	}
	for i, e := range events {
		if e.AggregateID != aggregateID {
			return fmt.Errorf("%w: event %s belongs to %q, not %q", ErrInvalidInput, e.ID, e.AggregateID, aggregateID)
		}
		if e.Version != expectedVersion+i {
			return fmt.Errorf("%w: event %s has version %d, want %d", ErrInvalidInput, e.ID, e.Version, expectedVersion+i)
		}
		if e.Payload == nil {
			return fmt.Errorf("%w: event %s has no payload", ErrInvalidInput, e.ID)
		}
	}
	return nil
}
