package ports

import (
	"context"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// Notifier presenta el resultado de un ciclo de refresco al usuario.
type Notifier interface {
	// Notify muestra el sentimiento más reciente de cada ticker refrescado.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, results []domain.RefreshResult) error
}
