package state

import (
	"context"
	"unicode/utf8"
)

// State is a stored conversation label.
type State string

// Store keeps the current label per user. A missing key is reported with
// found=false and no error.
type Store interface {
	Get(ctx context.Context, userID int64) (st State, found bool, err error)
	Set(ctx context.Context, userID int64, st State) error
}

// decode turns raw stored bytes into a label. Values that are not valid
// UTF-8 are treated as absent.
func decode(raw []byte) (State, bool) {
	if len(raw) == 0 || !utf8.Valid(raw) {
		return "", false
	}
	return State(raw), true
}
