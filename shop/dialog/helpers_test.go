package dialog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/commerce"
)

const userID int64 = 42

type note struct {
	text  string
	alert bool
}

type fakeTransport struct {
	mu        sync.Mutex
	sent      []Reply
	edited    []Reply
	notes     []note
	deletes   int
	deleteErr error
}

func (f *fakeTransport) Send(r Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
	return nil
}

func (f *fakeTransport) Edit(r Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, r)
	return nil
}

func (f *fakeTransport) Notify(text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note{text: text, alert: alert})
	return nil
}

func (f *fakeTransport) DeletePrevious() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return f.deleteErr
}

func (f *fakeTransport) lastSent(t *testing.T) Reply {
	t.Helper()
	require.NotEmpty(t, f.sent, "nothing was sent")
	return f.sent[len(f.sent)-1]
}

type fakeNotifier struct {
	receipts []commerce.Receipt
	err      error
}

func (n *fakeNotifier) OrderPlaced(_ context.Context, r commerce.Receipt) error {
	n.receipts = append(n.receipts, r)
	return n.err
}

type failingSetStore struct {
	state.Store
}

func (failingSetStore) Set(context.Context, int64, state.State) error {
	return errors.New("redis: connection refused")
}

type fixture struct {
	engine   *Engine
	shop     *commerce.MemoryClient
	sessions state.Store
	notifier *fakeNotifier
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	shop := commerce.NewMemoryClient(
		commerce.Product{ID: "p1", Title: "Smoked eel", Price: 10, Description: "Fresh"},
		commerce.Product{ID: "p2", Title: "Sprats", Price: 5},
	)
	shop.SetImage("p1", []byte{0xff, 0xd8, 0xff})
	f := &fixture{
		shop:     shop,
		sessions: state.NewMemoryStore(),
		notifier: &fakeNotifier{},
	}
	engine, err := New(Deps{Commerce: f.shop, Sessions: f.sessions, Notifier: f.notifier}, opts...)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) setState(t *testing.T, st State) {
	t.Helper()
	require.NoError(t, f.sessions.Set(context.Background(), userID, st.Label()))
}

func (f *fixture) state(t *testing.T) State {
	t.Helper()
	label, found, err := f.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, found, "no state stored")
	st, ok := ParseState(label)
	require.True(t, ok, "stored label %q is not a state", label)
	return st
}

func (f *fixture) handle(t *testing.T, ev Event) *fakeTransport {
	t.Helper()
	tr := &fakeTransport{}
	ev.UserID = userID
	require.NoError(t, f.engine.Handle(context.Background(), ev, tr))
	return tr
}

func (f *fixture) cart(t *testing.T) commerce.CartDetails {
	t.Helper()
	ctx := context.Background()
	cartID, err := f.shop.GetOrCreateCart(ctx, userID)
	require.NoError(t, err)
	details, err := f.shop.GetCartDetails(ctx, cartID)
	require.NoError(t, err)
	return details
}

func tap(name, arg string) Event {
	return Event{Kind: KindAction, Action: Action{Name: name, Arg: arg}}
}

func text(s string) Event {
	return Event{Kind: KindText, Text: s}
}

func reset() Event {
	return Event{Kind: KindCommand, Text: CommandStart}
}

func actions(r Reply) []Action {
	var out []Action
	for _, row := range r.Keyboard {
		for _, b := range row {
			out = append(out, b.Action)
		}
	}
	return out
}
