package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: ticker, compañía o noticia inexistente. No se reintenta.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput: petición mal formada.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidScore: el modelo devolvió un score no numérico o no finito.
	ErrInvalidScore = errors.New("invalid score")
	// ErrConcurrencyConflict: otro writer avanzó el stream antes que nosotros.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrStorageUnavailable: fallo del event store o del read model.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrUpstream: fallo de un servicio externo (noticias, precios, modelo).
	ErrUpstream = errors.New("upstream unavailable")
	// ErrCorruptStream: el stream no se puede plegar. Nunca se ignora.
	ErrCorruptStream = errors.New("corrupt event stream")
)

// ConflictError describe un append rechazado por versión esperada incorrecta.
type ConflictError struct {
	AggregateID string
	Expected    int
	Actual      int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict on %q: expected version %d, stream is at %d",
		e.AggregateID, e.Expected, e.Actual)
}

// Is permite errors.Is(err, ErrConcurrencyConflict).
func (e *ConflictError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}
