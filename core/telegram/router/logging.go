// Package router binds Telegram endpoints to handlers and writes one
// summary log line per handled update.
package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summarize runs fn under name and logs "handler.handled" with the outcome,
// the reply counters and the dialog state the handler recorded.
func summarize(c tele.Context, name string, fn tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	tghelpers.WithHandler(c, name)
	err := fn(c)

	// Re-read the context: the handler may have tagged it with a state.
	ctx := tghelpers.BuildContext(c)
	sent, withKeyboard := middleware.GetCounters(c)
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	attrs := make([]slog.Attr, 0, 8+len(extras))
	attrs = append(attrs,
		slog.String("status", outcome),
		slog.String("outcome", outcome),
		slog.Int("messages", sent),
		slog.Bool("kb", withKeyboard),
		slog.Duration("duration", logger.Took(start)),
	)
	if err != nil {
		attrs = append(attrs, logger.Err(err), slog.String("err_code", errorCode(err)))
	}
	logger.Info(ctx, "tg", "handler.handled", append(attrs, extras...)...)
	return err
}

// handlerName turns a command or callback key into a log-friendly suffix.
func handlerName(key string) string {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "unknown"
	}
	return strings.ToLower(strings.Join(strings.Fields(key), "_"))
}

// errorCode prefers an explicit Code() anywhere in the chain, then the type
// name of the innermost error.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(err) {
		err = inner
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
