package alert

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const telegramMessageLimit = 4096

// TelegramProvider sends alerts through the Bot API sendMessage method.
type TelegramProvider struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram builds a provider without calling getMe, so startup does not
// depend on Telegram being reachable.
func NewTelegram(token string, chatID int64, endpoint string, client *http.Client) (*TelegramProvider, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: client,
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)
	return &TelegramProvider{bot: bot, chatID: chatID}, nil
}

func (p *TelegramProvider) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(text) > telegramMessageLimit {
		text = text[:telegramMessageLimit]
	}
	msg := tgbotapi.NewMessage(p.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := p.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// NewFromConfig returns the Telegram provider when configured and a no-op
// provider otherwise.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	log = log.Named("providers.alert")
	tg := cfg.Telegram
	if tg.BotToken == "" || tg.ChatID == 0 {
		log.Info("telegram alerts disabled")
		return &NoOpProvider{}
	}
	client := tracing.WrapHTTPClient(&http.Client{Timeout: 10 * time.Second})
	provider, err := NewTelegram(tg.BotToken, tg.ChatID, tg.APIEndpoint, client)
	if err != nil {
		log.Warn("telegram alerts disabled", zap.Error(err))
		return &NoOpProvider{}
	}
	return provider
}

var Module = fx.Module("providers.alert",
	fx.Provide(NewFromConfig),
)
