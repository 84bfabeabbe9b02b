package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds ("message", "callback", "inline_query",
	// "other") that bypass the limit.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// userGate remembers when each user was last let through.
type userGate struct {
	mu       sync.Mutex
	interval time.Duration
	passed   map[int64]time.Time
}

func (g *userGate) allow(userID int64, at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, seen := g.passed[userID]; seen && at.Sub(last) < g.interval {
		return false
	}
	g.passed[userID] = at
	return true
}

// RateLimitMiddleware drops an update that arrives within Interval of the
// same user's previously accepted one. Dropped updates never reach the
// handler; OnLimited may answer them.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	gate := &userGate{interval: opts.Interval, passed: make(map[int64]time.Time)}
	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, bypass := opts.Exclude[updateKind(c.Update())]; bypass {
				return next(c)
			}
			if gate.allow(u.ID, clock()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limit",
				slog.String("outcome", "rate_limited"),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

func updateKind(upd tele.Update) string {
	if upd.Callback != nil {
		return "callback"
	}
	if upd.Message != nil {
		return "message"
	}
	if upd.Query != nil {
		return "inline_query"
	}
	return "other"
}
