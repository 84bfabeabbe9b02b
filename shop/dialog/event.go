package dialog

import "strings"

// Kind tells what the user did.
type Kind int

const (
	KindText Kind = iota
	KindCommand
	KindAction
)

// CommandStart resets the conversation.
const CommandStart = "/start"

// Button action names. The argument travels next to the name.
const (
	ActProduct    = "product"
	ActViewCart   = "view_cart"
	ActBuy        = "buy"
	ActRemove     = "remove"
	ActClearCart  = "clear_cart"
	ActPay        = "pay"
	ActBackToMenu = "back_to_menu"
	ActCancel     = "cancel_order"
)

// Action is a tapped button: a name plus an opaque argument.
type Action struct {
	Name string
	Arg  string
}

// Event is one inbound update, already stripped of transport details.
type Event struct {
	UserID int64
	Kind   Kind
	Text   string
	Action Action
}

// IsReset reports whether the event is the /start command.
func (e Event) IsReset() bool {
	if e.Kind != KindCommand {
		return false
	}
	cmd, _, _ := strings.Cut(strings.TrimSpace(e.Text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == CommandStart
}

// Tapped reports whether the event is a tap on the named button.
func (e Event) Tapped(name string) bool {
	return e.Kind == KindAction && e.Action.Name == name
}

// Button is one inline keyboard entry.
type Button struct {
	Label  string
	Action Action
}

// Reply is an outbound message. Photo, when set, is sent with Text as caption.
type Reply struct {
	Text     string
	Photo    []byte
	Markdown bool
	Keyboard [][]Button
}

// Transport delivers replies for the user the current event came from.
type Transport interface {
	Send(r Reply) error
	// Edit replaces the message the tapped button belongs to.
	Edit(r Reply) error
	// Notify answers a button tap with a toast or an alert. No-op for text.
	Notify(text string, alert bool) error
	// DeletePrevious removes the message the tapped button belongs to.
	DeletePrevious() error
}

// StateAware transports are told which state an event is handled in.
type StateAware interface {
	HandlingState(st State)
}

func btn(label, name, arg string) Button {
	return Button{Label: label, Action: Action{Name: name, Arg: arg}}
}

func row(buttons ...Button) []Button {
	return buttons
}
