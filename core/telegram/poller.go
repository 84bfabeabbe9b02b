package telegram

import (
	"net"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// BuildPoller picks the update source from telegram.run_mode: a webhook
// server in webhook mode, long polling otherwise.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if !strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeWebhook) {
		return &tele.LongPoller{Timeout: longPollTimeout(cfg)}
	}
	return &tele.Webhook{
		Listen:   net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
		Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
	}
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.LongPollTimeoutSeconds <= 0 {
		return defaultLongPollTimeout
	}
	return time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
}
