// Package telegram envía a un chat de Telegram los sentimientos detectados.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender es el subconjunto de *tgbotapi.BotAPI que usa el publisher.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Publisher implementa ports.EventPublisher enviando un mensaje MarkdownV2
// por cada ASSET_FEELING_DETECTED. El resto de eventos se ignora.
type Publisher struct {
	bot        Sender
	chatID     int64
	maxRetries int
	retryDelay time.Duration
}

// Config configura el Publisher. Los campos a cero toman valores por defecto.
type Config struct {
	BotToken   string
	ChatID     string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration // por petición a la Bot API
	Endpoint   string        // formato de tgbotapi.APIEndpoint; vacío usa el oficial
}

const defaultTimeout = 10 * time.Second

// NewPublisher conecta con la Bot API y valida el chat de destino.
func NewPublisher(cfg Config) (*Publisher, error) {
	id, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram.NewPublisher: invalid chat id: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, cfg.Endpoint, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram.NewPublisher: create bot: %w", err)
	}
	return NewPublisherWith(bot, id, cfg.MaxRetries, cfg.RetryDelay), nil
}

// NewPublisherWith usa un Sender ya construido.
func NewPublisherWith(bot Sender, chatID int64, maxRetries int, retryDelay time.Duration) *Publisher {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Publisher{bot: bot, chatID: chatID, maxRetries: maxRetries, retryDelay: retryDelay}
}

func (p *Publisher) Publish(ctx context.Context, events []domain.DomainEvent) error {
	for _, e := range events {
		feeling, ok := e.Payload.(domain.AssetFeelingDetected)
		if !ok {
			continue
		}
		if err := p.send(ctx, formatFeeling(feeling)); err != nil {
			return fmt.Errorf("telegram.Publish: event %s: %w", e.ID, err)
		}
	}
	return nil
}

// send reintenta con espera lineal: retryDelay, 2*retryDelay, ...
// Respeta el deadline de ctx aunque la Bot API no conteste.
func (p *Publisher) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(p.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < p.maxRetries; i++ {
		err := p.sendOnce(ctx, msg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		if i == p.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.retryDelay * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", p.maxRetries, lastErr)
}

// sendOnce deja de esperar cuando ctx vence. La petición en curso termina
// como mucho con el timeout del cliente HTTP.
func (p *Publisher) sendOnce(ctx context.Context, msg tgbotapi.MessageConfig) error {
	done := make(chan error, 1)
	go func() {
		_, err := p.bot.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func formatFeeling(f domain.AssetFeelingDetected) string {
	pred := domain.Project(f.Score)
	emoji := "➖"
	switch {
	case f.Score > 5:
		emoji = "📈"
	case f.Score < 5:
		emoji = "📉"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* score %d/10\n", emoji, escapeMarkdownV2(f.Ticker), f.Score)
	fmt.Fprintf(&b, "%s \\(%s\\)\n\n", escapeMarkdownV2(pred.Interpretation), escapeMarkdownV2(pred.PercentageRange))
	if f.URL != "" {
		fmt.Fprintf(&b, "[%s](%s)\n", escapeMarkdownV2(f.Title), escapeLinkURL(f.URL))
	} else {
		b.WriteString(escapeMarkdownV2(f.Title) + "\n")
	}
	if !f.Date.IsZero() {
		fmt.Fprintf(&b, "🗓 %s", escapeMarkdownV2(f.Date.UTC().Format("2006-01-02 15:04 UTC")))
	}
	return b.String()
}

// escapeMarkdownV2 escapa los caracteres reservados de MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Dentro de (...) solo hay que escapar ')' y '\'.
func escapeLinkURL(u string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(u)
}
