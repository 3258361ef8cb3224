package compliance

import (
	"context"
	"strconv"
	"strings"
	"time"

	tg "github.com/m3rciful/reportbot/core/telegram"
	"github.com/m3rciful/reportbot/core/telegram/callbacks"
	"github.com/m3rciful/reportbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// TelegramReplier renders workflow replies through the Bot API gateway.
type TelegramReplier struct {
	gw *tg.Gateway
}

// NewTelegramReplier wraps gw.
func NewTelegramReplier(gw *tg.Gateway) *TelegramReplier {
	return &TelegramReplier{gw: gw}
}

func (r *TelegramReplier) Send(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error) {
	msg, err := r.gw.SendText(ctx, tele.ChatID(chatID), text, markup(kb))
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}

func (r *TelegramReplier) Edit(ctx context.Context, ref MessageRef, text string, kb Keyboard) error {
	return r.gw.EditText(ctx, tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}, text, markup(kb))
}

func (r *TelegramReplier) Answer(ctx context.Context, callbackID, text string) error {
	return r.gw.Answer(ctx, callbackID, text)
}

func markup(kb Keyboard) *tele.ReplyMarkup {
	if kb == nil {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, len(kb))
	for i, row := range kb {
		rows[i] = make([]keyboard.InlineBtn, len(row))
		for j, b := range row {
			rows[i][j] = keyboard.InlineBtn{Text: b.Label, Data: b.Data}
		}
	}
	return keyboard.InlineButtonsRows(rows...)
}

// ChannelNotifier posts finished reports to the destination chat by
// re-sending the user's photo with the report caption.
type ChannelNotifier struct {
	gw   *tg.Gateway
	dest tele.Recipient
}

// NewChannelNotifier resolves destination (numeric ID or @channel).
func NewChannelNotifier(gw *tg.Gateway, destination string) (*ChannelNotifier, error) {
	to, err := tg.ParseRecipient(destination)
	if err != nil {
		return nil, err
	}
	return &ChannelNotifier{gw: gw, dest: to}, nil
}

func (n *ChannelNotifier) Deliver(ctx context.Context, photoRef, caption string) error {
	return n.gw.SendPhoto(ctx, n.dest, photoRef, caption)
}

// PhotoFromMessage normalizes a photo message. The largest size is the one
// telebot exposes as Message.Photo.
func PhotoFromMessage(m *tele.Message) (PhotoMessage, bool) {
	if m == nil || m.Photo == nil || m.Sender == nil || m.Chat == nil {
		return PhotoMessage{}, false
	}
	var at time.Time
	if m.Unixtime > 0 {
		at = m.Time()
	}
	return PhotoMessage{
		UserID:      m.Sender.ID,
		ChatID:      m.Chat.ID,
		DisplayName: DisplayName(m.Sender),
		PhotoRef:    m.Photo.FileID,
		Caption:     m.Caption,
		At:          at,
	}, true
}

// PressFromCallback normalizes an inline button press.
func PressFromCallback(cb *tele.Callback) (CallbackPress, bool) {
	if cb == nil || cb.Sender == nil {
		return CallbackPress{}, false
	}
	p := CallbackPress{
		UserID:     cb.Sender.ID,
		CallbackID: cb.ID,
		Data:       callbacks.Key(cb),
	}
	if cb.Message != nil && cb.Message.Chat != nil {
		p.Message = MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.ID}
	}
	return p, true
}

// DisplayName renders "first last", falling back to @username and then id<N>.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName)); name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "id" + strconv.FormatInt(u.ID, 10)
}
