// Package dialog is the shop conversation: one state per user, a handler per
// state, and the checkout protocol against the commerce backend.
package dialog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/metrics"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/commerce"
	"github.com/m3rciful/shopbot/shop/notify"
)

const component = "dialog"

// Deps are the collaborators the engine is built with.
type Deps struct {
	Commerce commerce.Client
	Sessions state.Store
	// Notifier is optional; nil disables confirmation e-mails.
	Notifier notify.Notifier
	// Metrics is optional.
	Metrics *metrics.Recorder
}

// Option tunes an Engine.
type Option func(*Engine)

// WithSerializedUsers runs events of the same user one at a time.
// Without it concurrent events race and the last state write wins.
func WithSerializedUsers() Option {
	return func(e *Engine) {
		e.locks = newUserLocks()
	}
}

// Engine resolves the user's state, runs the bound handler and stores the
// state it returns.
type Engine struct {
	shop     commerce.Client
	sessions state.Store
	notifier notify.Notifier
	metrics  *metrics.Recorder
	locks    *userLocks
	handlers map[State]handlerFunc
}

type handlerFunc func(ctx context.Context, ev Event, tr Transport) (State, error)

// New builds an Engine. Commerce and Sessions are required.
func New(deps Deps, opts ...Option) (*Engine, error) {
	if deps.Commerce == nil {
		return nil, errors.New("dialog: commerce client is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("dialog: session store is required")
	}
	e := &Engine{
		shop:     deps.Commerce,
		sessions: deps.Sessions,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = map[State]handlerFunc{
		Start:        e.handleStart,
		Menu:         e.handleMenu,
		Description:  e.handleDescription,
		Cart:         e.handleCart,
		WaitingEmail: e.handleWaitingEmail,
	}
	return e, nil
}

// Handle processes one event. Handler failures are reported to the user and
// leave the stored state untouched; the returned error is for the caller's log.
func (e *Engine) Handle(ctx context.Context, ev Event, tr Transport) error {
	if e.locks != nil {
		unlock := e.locks.lock(ev.UserID)
		defer unlock()
	}

	current := e.resolve(ctx, ev)
	ctx = logger.WithState(ctx, current.String())
	if sa, ok := tr.(StateAware); ok {
		sa.HandlingState(current)
	}

	handler, ok := e.handlers[current]
	if !ok {
		handler = e.handleStart
	}
	if ev.Tapped(ActBackToMenu) {
		handler = e.backToMenu
	}

	start := time.Now()
	next, err := handler(ctx, ev, tr)
	took := logger.Took(start)
	if err != nil {
		e.metrics.DialogEvent(current.String(), metrics.OutcomeFail, took)
		logger.Error(ctx, component, "handler.failed",
			slog.String("next_state", next.String()),
			slog.Duration("took", took),
			logger.Err(err),
		)
		e.reportFailure(ctx, tr)
		return err
	}
	e.metrics.DialogEvent(current.String(), metrics.OutcomeOK, took)

	if err := e.sessions.Set(ctx, ev.UserID, next.Label()); err != nil {
		e.metrics.SessionError("set")
		logger.Error(ctx, component, "session.set_failed",
			slog.String("next_state", next.String()),
			logger.Err(err),
		)
		return nil
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "state.stored",
			slog.String("next_state", next.String()),
			slog.Duration("took", took),
		)
	}
	return nil
}

// resolve picks the state the event is handled in. Store errors and unknown
// labels fall back to Start.
func (e *Engine) resolve(ctx context.Context, ev Event) State {
	if ev.IsReset() {
		return Start
	}
	label, found, err := e.sessions.Get(ctx, ev.UserID)
	if err != nil {
		e.metrics.SessionError("get")
		logger.Warn(ctx, component, "session.get_failed", logger.Err(err))
		return Start
	}
	if !found {
		return Start
	}
	st, ok := ParseState(label)
	if !ok {
		logger.Warn(ctx, component, "session.unknown_state",
			slog.String("label", logger.SanitizeLimit(string(label), 64)),
		)
	}
	return st
}

func (e *Engine) backToMenu(ctx context.Context, _ Event, tr Transport) (State, error) {
	e.deletePrevious(ctx, tr)
	return e.toCatalogue(ctx, tr)
}

func (e *Engine) deletePrevious(ctx context.Context, tr Transport) {
	if err := tr.DeletePrevious(); err != nil {
		logger.Warn(ctx, component, "message.delete_failed", logger.Err(err))
	}
}

func (e *Engine) reportFailure(ctx context.Context, tr Transport) {
	err := tr.Send(Reply{
		Text:     msgFailure,
		Keyboard: [][]Button{row(btn(labelBackToMenu, ActBackToMenu, ""))},
	})
	if err != nil {
		logger.Warn(ctx, component, "failure.reply_failed", logger.Err(err))
	}
}
