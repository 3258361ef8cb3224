package compliance

import (
	"context"
	"testing"
	"time"

	tg "github.com/m3rciful/reportbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

type apiCall struct {
	to     tele.Recipient
	what   interface{}
	markup *tele.ReplyMarkup
	edit   tele.Editable
}

type fakeAPI struct {
	calls    []apiCall
	answered []*tele.CallbackResponse
}

func markupOf(opts []interface{}) *tele.ReplyMarkup {
	for _, o := range opts {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			return m
		}
	}
	return nil
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.calls = append(f.calls, apiCall{to: to, what: what, markup: markupOf(opts)})
	return &tele.Message{ID: 77, Chat: &tele.Chat{ID: 500}}, nil
}

func (f *fakeAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.calls = append(f.calls, apiCall{edit: msg, what: what, markup: markupOf(opts)})
	return &tele.Message{}, nil
}

func (f *fakeAPI) Respond(_ *tele.Callback, resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		f.answered = append(f.answered, resp[0])
	} else {
		f.answered = append(f.answered, nil)
	}
	return nil
}

func TestTelegramReplierSendRendersKeyboard(t *testing.T) {
	api := &fakeAPI{}
	r := NewTelegramReplier(tg.NewGateway(api, nil))

	rep := PendingReport{Selected: []Reason{ReasonLate}}
	ref, err := r.Send(context.Background(), 500, PromptText, ReasonKeyboard(rep))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ref != (MessageRef{ChatID: 500, MessageID: 77}) {
		t.Fatalf("ref = %+v", ref)
	}
	m := api.calls[0].markup
	if m == nil || len(m.InlineKeyboard) != len(Reasons)+1 {
		t.Fatalf("markup = %+v", m)
	}
	for i, reason := range Reasons {
		btn := m.InlineKeyboard[i][0]
		if btn.Data != string(reason) {
			t.Fatalf("row %d data = %q", i, btn.Data)
		}
		if reason == ReasonLate && btn.Text != string(reason)+" ✅" {
			t.Fatalf("selected label = %q", btn.Text)
		}
	}
	if last := m.InlineKeyboard[len(Reasons)][0]; last.Data != SubmitPayload {
		t.Fatalf("last row = %+v", last)
	}
}

func TestTelegramReplierEditAndAnswer(t *testing.T) {
	api := &fakeAPI{}
	r := NewTelegramReplier(tg.NewGateway(api, nil))

	if err := r.Edit(context.Background(), MessageRef{ChatID: 500, MessageID: 9}, ConfirmationText, nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	msgID, chatID := api.calls[0].edit.MessageSig()
	if msgID != "9" || chatID != 500 {
		t.Fatalf("edit target = %s/%d", msgID, chatID)
	}
	if api.calls[0].markup != nil {
		t.Fatal("keyboard kept on final edit")
	}

	if err := r.Answer(context.Background(), "cb1", StaleNotice); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(api.answered) != 1 || api.answered[0] == nil || api.answered[0].Text != StaleNotice {
		t.Fatalf("answered = %+v", api.answered)
	}
}

func TestChannelNotifierSendsPhotoByReference(t *testing.T) {
	api := &fakeAPI{}
	n, err := NewChannelNotifier(tg.NewGateway(api, nil), "@compliance")
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	if err := n.Deliver(context.Background(), "file-1", "caption"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	call := api.calls[0]
	if call.to.Recipient() != "@compliance" {
		t.Fatalf("recipient = %q", call.to.Recipient())
	}
	photo, ok := call.what.(*tele.Photo)
	if !ok || photo.FileID != "file-1" || photo.Caption != "caption" {
		t.Fatalf("sent %#v", call.what)
	}

	if _, err := NewChannelNotifier(tg.NewGateway(api, nil), "compliance"); err == nil {
		t.Fatal("expected error for malformed destination")
	}
}

func TestPhotoFromMessage(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := &tele.Message{
		Sender:   &tele.User{ID: 7, FirstName: "Ann", LastName: "Lee"},
		Chat:     &tele.Chat{ID: 70},
		Photo:    &tele.Photo{File: tele.File{FileID: "big"}},
		Caption:  "shelf 3",
		Unixtime: at.Unix(),
	}
	p, ok := PhotoFromMessage(m)
	if !ok {
		t.Fatal("photo not recognized")
	}
	if p.UserID != 7 || p.ChatID != 70 || p.PhotoRef != "big" || p.Caption != "shelf 3" || p.DisplayName != "Ann Lee" {
		t.Fatalf("photo = %+v", p)
	}
	if !p.At.Equal(at) {
		t.Fatalf("at = %v", p.At)
	}

	if _, ok := PhotoFromMessage(&tele.Message{Sender: m.Sender, Chat: m.Chat, Text: "hi"}); ok {
		t.Fatal("text message treated as photo")
	}
}

func TestPressFromCallback(t *testing.T) {
	cb := &tele.Callback{
		ID:      "q1",
		Sender:  &tele.User{ID: 7},
		Message: &tele.Message{ID: 12, Chat: &tele.Chat{ID: 70}},
		Data:    string(ReasonLate),
	}
	p, ok := PressFromCallback(cb)
	if !ok {
		t.Fatal("press not recognized")
	}
	want := CallbackPress{UserID: 7, CallbackID: "q1", Message: MessageRef{ChatID: 70, MessageID: 12}, Data: string(ReasonLate)}
	if p != want {
		t.Fatalf("press = %+v", p)
	}
	if _, ok := PressFromCallback(&tele.Callback{ID: "q2"}); ok {
		t.Fatal("press without sender accepted")
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		user *tele.User
		want string
	}{
		{&tele.User{ID: 1, FirstName: " Ann ", LastName: "Lee"}, "Ann Lee"},
		{&tele.User{ID: 1, FirstName: "Ann"}, "Ann"},
		{&tele.User{ID: 1, Username: "ann_l"}, "@ann_l"},
		{&tele.User{ID: 42}, "id42"},
		{nil, ""},
	}
	for _, c := range cases {
		if got := DisplayName(c.user); got != c.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", c.user, got, c.want)
		}
	}
}
