package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the pool used by DeleteAsync; nil runs calls inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// DeleteAsync removes the message the update refers to (the tapped message
// for callbacks) without waiting for the Bot API.
func DeleteAsync(c tele.Context) error {
	return background(c, "delete", c.Delete)
}

// background hands call to the dispatcher. A saturated or closed queue
// degrades to an inline call.
func background(c tele.Context, action string, call func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return call()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, call)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback", slog.String("action", action), logger.Err(err))
		return call()
	}
	return err
}

func markdown(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup}
}

// SendMD sends what as Markdown. It is synchronous so replies stay ordered.
func SendMD(c tele.Context, what any, markup *tele.ReplyMarkup) error {
	return c.Send(what, markdown(markup))
}

// EditMD replaces the callback's message with what, rendered as Markdown.
func EditMD(c tele.Context, what any, markup *tele.ReplyMarkup) error {
	return c.Edit(what, markdown(markup))
}
