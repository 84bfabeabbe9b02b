package middleware

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

// fakeContext is the subset of tele.Context the middlewares touch.
type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]any
	sent   int
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update { return f.update }
func (f *fakeContext) Get(k string) any    { return f.store[k] }
func (f *fakeContext) Set(k string, v any) { f.store[k] = v }
func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}
func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.update.Callback != nil:
		return f.update.Callback.Sender
	case f.update.Message != nil:
		return f.update.Message.Sender
	}
	return nil
}
func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Message != nil {
		return f.update.Message.Chat
	}
	return nil
}
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Send(any, ...any) error   { f.sent++; return nil }

func messageUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Text:   text,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID},
	}}
}

func TestRateLimitDropsBurstsPerUser(t *testing.T) {
	clock := time.Unix(0, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Now:       func() time.Time { return clock },
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })

	_ = h(newFakeContext(messageUpdate(1, 7, "a")))
	_ = h(newFakeContext(messageUpdate(2, 7, "b")))
	_ = h(newFakeContext(messageUpdate(3, 8, "c")))
	clock = clock.Add(2 * time.Second)
	_ = h(newFakeContext(messageUpdate(4, 7, "d")))

	if handled != 3 || limited != 1 {
		t.Fatalf("handled=%d limited=%d", handled, limited)
	}
}

func TestRateLimitHonoursExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"callback": {}},
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })
	cb := tele.Update{ID: 1, Callback: &tele.Callback{Sender: &tele.User{ID: 1}}}
	_ = h(newFakeContext(cb))
	_ = h(newFakeContext(cb))
	if handled != 2 {
		t.Fatalf("handled=%d, want 2", handled)
	}
}

func TestRecoverMiddlewareConvertsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(newFakeContext(messageUpdate(1, 1, "x"))); err == nil {
		t.Fatal("expected error from recovered panic")
	}
}

func TestMessageMetricsCountsSends(t *testing.T) {
	fc := newFakeContext(messageUpdate(1, 1, "x"))
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("one")
		return c.Send("two", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	if err := h(fc); err != nil {
		t.Fatal(err)
	}
	msgs, kb := GetCounters(fc)
	if msgs != 2 || !kb || fc.sent != 2 {
		t.Fatalf("messages=%d kb=%v sent=%d", msgs, kb, fc.sent)
	}
}

func TestLoggerMiddlewareStoresRID(t *testing.T) {
	fc := newFakeContext(messageUpdate(5, 9, "hi"))
	h := LoggerMiddleware(func(tele.Context) error { return nil })
	if err := h(fc); err != nil {
		t.Fatal(err)
	}
	if rid, _ := fc.Get("rid").(string); rid == "" {
		t.Fatal("rid not stored")
	}
}
