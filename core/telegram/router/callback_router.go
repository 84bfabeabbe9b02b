package router

import (
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute sends every inline-button tap to handler. The handler is
// responsible for answering the callback query.
func CallbackRoute(handler tele.HandlerFunc) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			if c.Callback() == nil {
				return nil
			}
			key := callbacks.CallbackKey(c)
			return summarize(c, "callback."+handlerName(key), handler,
				slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			)
		},
	}
}
