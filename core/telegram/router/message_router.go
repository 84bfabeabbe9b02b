package router

import (
	tg "github.com/m3rciful/shopbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextRoutes routes plain text. Text naming a registered command or alias
// runs that command; anything else goes to fallback.
func TextRoutes(reg *tg.Registry, fallback tele.HandlerFunc) []tg.Route {
	handler := func(c tele.Context) error {
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return summarize(c, "command."+handlerName(key), cmd.Handler)
			}
		}
		if fallback == nil {
			return nil
		}
		return summarize(c, "text", fallback)
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
