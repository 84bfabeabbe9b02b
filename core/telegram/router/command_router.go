package router

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes returns one route per registered command, sorted by name.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	slices.Sort(names)
	routes := make([]tg.Route, 0, len(names))
	for _, name := range names {
		handler, label := cmds[name].Handler, "command."+handlerName(name)
		routes = append(routes, tg.Route{
			Endpoint: name,
			Handler:  func(c tele.Context) error { return summarize(c, label, handler) },
		})
	}
	logger.Info(context.Background(), "tg.wire", "commands",
		slog.Int("commands", len(routes)),
		slog.String("names", strings.Join(names, ",")),
	)
	return routes
}
