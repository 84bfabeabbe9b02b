package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const countersKey = "reply_counters"

// replyCounters tracks what a handler sent back for the handler summary line.
type replyCounters struct {
	messages int
	keyboard bool
	deleted  int
}

// countingContext wraps tele.Context to count outgoing messages.
type countingContext struct {
	tele.Context
	n *replyCounters
}

func (m countingContext) track(err error, opts []any) error {
	if err != nil {
		return err
	}
	m.n.messages++
	if hasKeyboard(opts) {
		m.n.keyboard = true
	}
	return nil
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating counters.
func (m countingContext) Send(what any, opts ...any) error {
	return m.track(m.Context.Send(what, opts...), opts)
}

// Reply proxies tele.Context.Reply while updating counters.
func (m countingContext) Reply(what any, opts ...any) error {
	return m.track(m.Context.Reply(what, opts...), opts)
}

// Edit proxies tele.Context.Edit; edits count as replies.
func (m countingContext) Edit(what any, opts ...any) error {
	return m.track(m.Context.Edit(what, opts...), opts)
}

// Delete proxies tele.Context.Delete while updating counters.
func (m countingContext) Delete() error {
	err := m.Context.Delete()
	if err == nil {
		m.n.deleted++
	}
	return err
}

// MessageMetricsMiddleware instruments the context so the handler summary
// can report how many messages were sent and whether a keyboard was attached.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &replyCounters{}
		c.Set(countersKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

// GetCounters reads message count and keyboard presence from context.
func GetCounters(c tele.Context) (messages int, keyboard bool) {
	if n, ok := c.Get(countersKey).(*replyCounters); ok && n != nil {
		return n.messages, n.keyboard
	}
	return 0, false
}
