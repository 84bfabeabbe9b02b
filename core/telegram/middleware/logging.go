package middleware

import (
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware creates the update's log context and exposes its rid
// under the "rid" key. A sampled debug line records what arrived.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		c.Set("rid", logger.RIDFrom(ctx))
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "update.received", describeUpdate(c)...)
		}
		return next(c)
	}
}

// describeUpdate lists who sent the update and a truncated payload.
func describeUpdate(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}
	var payload string
	if cb := c.Callback(); cb != nil {
		var key string
		key, payload = callbacks.ParseCallbackData(cb)
		attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
	} else {
		payload = c.Text()
	}
	if payload != "" {
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
	}
	return attrs
}
