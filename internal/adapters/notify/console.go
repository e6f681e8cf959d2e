package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el resultado de un ciclo de refresco en el modo configurado.
func (c *Console) Notify(_ context.Context, results []domain.RefreshResult) error {
	if len(results) == 0 {
		fmt.Fprintf(c.out, "[%s] no tickers refreshed\n", time.Now().Format("15:04:05"))
		return nil
	}
	if c.table {
		c.printFull(results)
	} else {
		c.printCompact(results)
	}
	return nil
}

// printCompact imprime una línea por ciclo con los primeros tickers.
func (c *Console) printCompact(results []domain.RefreshResult) {
	now := time.Now().Format("15:04:05")
	ok, failed := countByStatus(results)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d tickers → ok:%d failed:%d", now, len(results), ok, failed)

	shown := 0
	for _, r := range results {
		if shown >= 4 {
			break
		}
		if !r.OK() {
			continue
		}
		fmt.Fprintf(&sb, " | %s %d %s", r.Ticker, r.News.Prediction.Score, compactName(r.News.Title, 25))
		shown++
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla con la última noticia y su predicción por ticker.
func (c *Console) printFull(results []domain.RefreshResult) {
	now := time.Now().Format("15:04:05")
	ok, failed := countByStatus(results)
	fmt.Fprintf(c.out, "\n[%s] %d tickers refreshed (ok:%d failed:%d)\n", now, len(results), ok, failed)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Ticker", "Score", "Interpretation", "Range", "Published", "Title", "Status")

	for i, r := range results {
		if !r.OK() {
			table.Append(
				fmt.Sprintf("%d", i+1),
				r.Ticker,
				"-", "-", "-", "-", "-",
				statusLabel(r.Err),
			)
			continue
		}
		p := r.News.Prediction
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.Ticker,
			fmt.Sprintf("%d", p.Score),
			p.Interpretation,
			p.PercentageRange,
			dateLabel(r.News.Date),
			truncate(r.News.Title, 40),
			"OK",
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Score 0-10: 0 = very sharp drop, 5 = no significant change, 10 = very sharp rise")
}

// --- helpers ---

func countByStatus(results []domain.RefreshResult) (ok, failed int) {
	for _, r := range results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return
}

func statusLabel(err error) string {
	return truncate(err.Error(), 40)
}

func dateLabel(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
