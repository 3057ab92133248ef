package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// ErrTelegramNotConfigured se devuelve si faltan token o chat id.
var ErrTelegramNotConfigured = errors.New("telegram bot token or chat id missing")

// TelegramOptions controla cuándo se envía el resumen.
type TelegramOptions struct {
	APIServer    string // vacío = api.telegram.org
	OnChangeOnly bool   // no enviar si no hubo cambios ni errores
	NotifyDryRun bool   // en dry-run no se envía nada salvo que esté activo
}

// Telegram implementa ports.Notifier sobre un bot de Telegram.
type Telegram struct {
	bot    *telego.Bot
	chatID int64
	opts   TelegramOptions
}

// NewTelegram crea el notificador. Valida el formato del token.
func NewTelegram(token string, chatID int64, opts TelegramOptions) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, ErrTelegramNotConfigured
	}
	botOpts := []telego.BotOption{telego.WithDiscardLogger()}
	if opts.APIServer != "" {
		botOpts = append(botOpts, telego.WithAPIServer(opts.APIServer))
	}
	bot, err := telego.NewBot(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, opts: opts}, nil
}

// Notify envía el resumen del run según la política configurada.
func (t *Telegram) Notify(ctx context.Context, r *domain.RunReport) error {
	if r.DryRun && !t.opts.NotifyDryRun {
		slog.Debug("telegram: dry-run summary suppressed")
		return nil
	}
	if t.opts.OnChangeOnly && !r.HasChanges() && len(r.Errors()) == 0 {
		slog.Debug("telegram: no changes, summary suppressed")
		return nil
	}
	return t.send(ctx, FormatSummary(r))
}

// Alert envía un aviso crítico. Se envía siempre, también en dry-run.
func (t *Telegram) Alert(ctx context.Context, msg string) error {
	return t.send(ctx, "🚨 "+msg)
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if _, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(t.chatID), text)); err != nil {
		return fmt.Errorf("telegram.send: %w", err)
	}
	return nil
}
