// Package keyboard renders inline keyboards whose button data is sent back
// verbatim, so presses arrive on tele.OnCallback under their literal payload.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one inline button; Data is the callback payload.
type InlineBtn struct {
	Text string
	Data string
}

// InlineButtonsRows builds an inline keyboard from rows of buttons. Empty
// rows are skipped.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{InlineKeyboard: make([][]tele.InlineButton, 0, len(rows))}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, tele.InlineButton{Text: b.Text, Data: b.Data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, line)
	}
	return markup
}
