// Package bot connects the shop dialog to Telegram.
package bot

import (
	"context"
	"errors"
	"log/slog"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/metrics"
	coretelegram "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/router"
	"github.com/m3rciful/shopbot/shop/dialog"

	tele "gopkg.in/telebot.v4"
)

const msgSlowDown = "Too many requests, slow down a little"

// Handler is the part of the dialog engine the bot drives.
type Handler interface {
	Handle(ctx context.Context, ev dialog.Event, tr dialog.Transport) error
}

// App is the shop bot: routes, middlewares and the optional metrics endpoint.
type App struct {
	cfg    *coreconfig.Config
	dialog Handler
	server *metrics.Server
}

// New wires the dialog into a Telegram app. rec may be nil.
func New(cfg *coreconfig.Config, h Handler, rec *metrics.Recorder) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bot: nil config")
	}
	if h == nil {
		return nil, errors.New("bot: nil dialog handler")
	}
	a := &App{cfg: cfg, dialog: h}
	if cfg.Metrics.Listen != "" && rec != nil {
		a.server = metrics.NewServer(cfg.Metrics.Listen, rec)
	}
	return a, nil
}

// TelegramRunOptions describes the bot for the core runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	err := reg.RegisterCommand(dialog.CommandStart, commands.Command{
		Handler:     a.onStart,
		Description: "Open the shop",
	})
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(reg, a.onText)...)
	routes = append(routes, router.CallbackRoute(a.onCallback))

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, a.onLimited),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) onStart(c tele.Context) error {
	return a.dispatch(c, dialog.KindCommand)
}

func (a *App) onText(c tele.Context) error {
	return a.dispatch(c, dialog.KindText)
}

func (a *App) onCallback(c tele.Context) error {
	return a.dispatch(c, dialog.KindAction)
}

// dispatch runs the dialog for one update. A returned error has already been
// reported to the user; it only marks the update as failed in the logs.
func (a *App) dispatch(c tele.Context, kind dialog.Kind) error {
	tr := newTransport(c)
	ctx := tghelpers.BuildContext(c)
	err := a.dialog.Handle(ctx, eventFrom(c, kind), tr)
	if ferr := tr.finish(); ferr != nil {
		logger.Warn(ctx, "tg", "callback.respond_failed", logger.Err(ferr))
	}
	return err
}

func (a *App) onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgSlowDown})
	}
	return nil
}

func (a *App) start(ctx context.Context, rt coretelegram.Runtime) error {
	if a.server != nil {
		a.server.Start(ctx)
	}
	logger.Info(ctx, "app", "bot.started",
		slog.String("username", botUsername(rt.Bot)),
		slog.Bool("metrics", a.server != nil),
	)
	return nil
}

func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func botUsername(b *tele.Bot) string {
	if b == nil || b.Me == nil {
		return ""
	}
	return b.Me.Username
}
