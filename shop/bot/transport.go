package bot

import (
	"bytes"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/shop/dialog"

	tele "gopkg.in/telebot.v4"
)

// eventFrom strips the update down to what the dialog needs. The chat id
// identifies the user, as carts and sessions are per chat.
func eventFrom(c tele.Context, kind dialog.Kind) dialog.Event {
	ev := dialog.Event{Kind: kind, Text: strings.TrimSpace(c.Text())}
	if chat := c.Chat(); chat != nil {
		ev.UserID = chat.ID
	} else if user := c.Sender(); user != nil {
		ev.UserID = user.ID
	}
	if kind == dialog.KindAction {
		name, arg := callbacks.ParseCallbackData(c.Callback())
		ev.Action = dialog.Action{Name: name, Arg: arg}
		ev.Text = ""
	}
	return ev
}

// transport renders dialog replies through telebot for a single update.
type transport struct {
	c        tele.Context
	answered bool
}

func newTransport(c tele.Context) *transport {
	return &transport{c: c}
}

func (t *transport) Send(r dialog.Reply) error {
	what, opts := t.render(r)
	if r.Markdown {
		return tghelpers.SendMD(t.c, what, opts.ReplyMarkup)
	}
	return t.c.Send(what, opts)
}

func (t *transport) Edit(r dialog.Reply) error {
	what, opts := t.render(r)
	if r.Markdown {
		return tghelpers.EditMD(t.c, what, opts.ReplyMarkup)
	}
	return t.c.Edit(what, opts)
}

func (t *transport) Notify(text string, alert bool) error {
	if t.c.Callback() == nil || t.answered {
		return nil
	}
	t.answered = true
	return t.c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}

func (t *transport) DeletePrevious() error {
	if t.c.Callback() == nil {
		return nil
	}
	return tghelpers.DeleteAsync(t.c)
}

func (t *transport) HandlingState(st dialog.State) {
	tghelpers.WithState(t.c, st.String())
}

// finish stops the client-side spinner when the dialog did not answer the
// callback itself.
func (t *transport) finish() error {
	if t.c.Callback() == nil || t.answered {
		return nil
	}
	t.answered = true
	return t.c.Respond()
}

func (t *transport) render(r dialog.Reply) (any, *tele.SendOptions) {
	opts := &tele.SendOptions{ReplyMarkup: markup(r.Keyboard)}
	if len(r.Photo) > 0 {
		return &tele.Photo{File: tele.FromReader(bytes.NewReader(r.Photo)), Caption: r.Text}, opts
	}
	return r.Text, opts
}

func markup(rows [][]dialog.Button) *tele.ReplyMarkup {
	out := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Label, Unique: b.Action.Name, Data: b.Action.Arg})
		}
		out = append(out, r)
	}
	return keyboard.InlineButtonsRows(out...)
}
