package dialog

import "github.com/m3rciful/shopbot/core/telegram/state"

// State is the closed set of conversation states.
type State int

const (
	Start State = iota
	Menu
	Description
	Cart
	WaitingEmail
)

// Labels written to the session store. They match what earlier deployments
// stored so existing sessions keep decoding.
var stateLabels = [...]string{
	Start:        "START",
	Menu:         "HANDLE_MENU",
	Description:  "HANDLE_DESCRIPTION",
	Cart:         "HANDLE_CART",
	WaitingEmail: "WAITING_EMAIL",
}

// String returns the stored label.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateLabels) {
		return stateLabels[Start]
	}
	return stateLabels[s]
}

// Label converts s to its session store form.
func (s State) Label() state.State {
	return state.State(s.String())
}

// ParseState decodes a stored label. Unknown labels report ok=false.
func ParseState(label state.State) (State, bool) {
	for i, l := range stateLabels {
		if string(label) == l {
			return State(i), true
		}
	}
	return Start, false
}
