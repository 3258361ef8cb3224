package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m3rciful/reportbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

func TestSendTextNotRepeatedAfterTimeout(t *testing.T) {
	var sends atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			sends.Add(1)
		}
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":1}}}`))
	}))
	defer srv.Close()

	bot, err := tele.NewBot(tele.Settings{
		URL:     srv.URL,
		Token:   "123:abc",
		Offline: true,
		Client:  &http.Client{Timeout: 100 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	SetSender(sender.New(sender.Options{MaxRetries: 2, RetryBackoff: time.Millisecond}))
	t.Cleanup(func() { SetSender(nil) })

	c := bot.NewContext(tele.Update{Message: &tele.Message{ID: 5, Chat: &tele.Chat{ID: 1}, Sender: &tele.User{ID: 1}}})
	if err := SendText(c, "hello"); err == nil {
		t.Fatal("expected timeout error")
	}
	if n := sends.Load(); n != 1 {
		t.Fatalf("sendMessage reached the server %d times, want 1", n)
	}
}
