package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		data, key, payload string
	}{
		{"Late arrival", "Late arrival", ""},
		{"submit", "submit", ""},
		{"\fmenu|open", "menu", "open"},
		{"\fmenu", "menu", ""},
	}
	for _, tc := range cases {
		key, payload := ParseCallbackData(&tele.Callback{Data: tc.data})
		if key != tc.key || payload != tc.payload {
			t.Errorf("ParseCallbackData(%q) = %q, %q", tc.data, key, payload)
		}
	}
	if Key(&tele.Callback{Unique: "u", Data: "x"}) != "u" {
		t.Fatal("resolved unique ignored")
	}
	if Key(nil) != "" {
		t.Fatal("nil callback")
	}
}
