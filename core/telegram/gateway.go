package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/m3rciful/reportbot/core/telegram/middleware"
	"github.com/m3rciful/reportbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// API is the subset of *tele.Bot the gateway calls.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Gateway performs outbound Bot API calls through the retrying sender.
// Sends go through DoOnce so a slow answer never produces a duplicate
// message; edits and callback answers are idempotent and use Do.
type Gateway struct {
	api    API
	sender *sender.Sender
}

// NewGateway binds api to s. A nil sender calls the API once.
func NewGateway(api API, s *sender.Sender) *Gateway {
	if s == nil {
		s = sender.New(sender.Options{})
	}
	return &Gateway{api: api, sender: s}
}

// SendText sends text with optional markup and returns the sent message.
func (g *Gateway) SendText(ctx context.Context, to tele.Recipient, text string, markup *tele.ReplyMarkup) (*tele.Message, error) {
	var msg *tele.Message
	err := g.sender.DoOnce(ctx, "sendMessage", func(context.Context) error {
		var err error
		if markup != nil {
			msg, err = g.api.Send(to, text, markup)
		} else {
			msg, err = g.api.Send(to, text)
		}
		return err
	})
	if err == nil {
		middleware.CountersFrom(ctx).Record(middleware.CallSend, markup != nil)
	}
	return msg, err
}

// EditText replaces the text of a sent message. A nil markup drops any
// inline keyboard. Edits that change nothing are not an error.
func (g *Gateway) EditText(ctx context.Context, msg tele.Editable, text string, markup *tele.ReplyMarkup) error {
	err := g.sender.Do(ctx, "editMessageText", func(context.Context) error {
		var err error
		if markup != nil {
			_, err = g.api.Edit(msg, text, markup)
		} else {
			_, err = g.api.Edit(msg, text)
		}
		return err
	})
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	if err == nil {
		middleware.CountersFrom(ctx).Record(middleware.CallEdit, markup != nil)
	}
	return err
}

// SendPhoto re-sends an already uploaded photo by file ID.
func (g *Gateway) SendPhoto(ctx context.Context, to tele.Recipient, fileID, caption string) error {
	photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	err := g.sender.DoOnce(ctx, "sendPhoto", func(context.Context) error {
		_, err := g.api.Send(to, photo)
		return err
	})
	if err == nil {
		middleware.CountersFrom(ctx).Record(middleware.CallPhoto, false)
	}
	return err
}

// Answer acknowledges a callback query by ID.
func (g *Gateway) Answer(ctx context.Context, callbackID, text string) error {
	cb := &tele.Callback{ID: callbackID}
	err := g.sender.Do(ctx, "answerCallbackQuery", func(context.Context) error {
		if text == "" {
			return g.api.Respond(cb)
		}
		return g.api.Respond(cb, &tele.CallbackResponse{Text: text})
	})
	if err == nil {
		middleware.CountersFrom(ctx).Record(middleware.CallAnswer, false)
	}
	return err
}

// channelName addresses a public chat by @username.
type channelName string

func (c channelName) Recipient() string { return string(c) }

// ParseRecipient accepts a numeric chat ID or an @channel username.
func ParseRecipient(s string) (tele.Recipient, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "@") && len(s) > 1 {
		return channelName(s), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.New("telegram: recipient must be a chat id or @channel")
	}
	return tele.ChatID(id), nil
}
