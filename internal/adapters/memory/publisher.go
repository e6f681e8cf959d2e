package memory

import (
	"context"
	"sync"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// Publisher guarda los eventos publicados. Si Err no es nil, Publish lo
// devuelve sin registrar nada.
type Publisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
	Err    error
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(_ context.Context, events []domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, events...)
	return nil
}

// Published devuelve una copia de los eventos publicados.
func (p *Publisher) Published() []domain.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}
