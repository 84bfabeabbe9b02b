// Package keyboard builds inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one callback button. Unique names the action and Data
// carries its argument; telebot joins them as "\f<unique>|<data>".
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// InlineButtonsRows lays the buttons out row by row. Empty rows are dropped
// and a keyboard without buttons is nil.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	var grid [][]tele.InlineButton
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, tele.InlineButton{Text: b.Text, Unique: b.Unique, Data: b.Data})
		}
		grid = append(grid, line)
	}
	if grid == nil {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: grid}
}
