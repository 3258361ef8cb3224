package telegram

import (
	"errors"
	"testing"

	"github.com/m3rciful/reportbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func nopHandler(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: nopHandler, Description: "Start", Aliases: []string{"begin"}})
	reg.RegisterCommand("/debug", commands.Command{Handler: nopHandler, Description: "Debug", Hidden: true})
	reg.RegisterCommand("nope", commands.Command{Handler: nopHandler, Description: "no slash"})
	reg.RegisterCommand("/empty", commands.Command{Description: "no handler"})

	if n := len(reg.Commands()); n != 2 {
		t.Fatalf("commands = %d, want 2", n)
	}
	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "start" {
		t.Fatalf("visible = %+v", visible)
	}
	if all := reg.ListCommands(false); len(all) != 2 || all[0].Text != "debug" {
		t.Fatalf("all = %+v", all)
	}

	for _, text := range []string{"/start", "start", "/start@reportbot", "/start now", "/begin", "begin"} {
		name, _, ok := reg.LookupCommand(text)
		if !ok || name != "/start" {
			t.Errorf("LookupCommand(%q) = %q, %v", text, name, ok)
		}
	}
	if _, _, ok := reg.LookupCommand("hello there"); ok {
		t.Fatal("plain text resolved to a command")
	}
	if _, _, ok := reg.LookupCommand("  "); ok {
		t.Fatal("blank text resolved to a command")
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("submit", nopHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCallback("submit", nopHandler); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate err = %v", err)
	}
	if err := reg.RegisterCallback("", nopHandler); err == nil {
		t.Fatal("empty key accepted")
	}
	if _, ok := reg.GetCallback("submit"); !ok {
		t.Fatal("callback not found")
	}
	if keys := reg.ListCallbacks(); len(keys) != 1 || keys[0] != "submit" {
		t.Fatalf("keys = %v", keys)
	}

	if reg.CallbackNotFound() == nil {
		t.Fatal("default fallback missing")
	}
	reg.SetCallbackNotFound(nil)
	if reg.CallbackNotFound() == nil {
		t.Fatal("nil fallback replaced the default")
	}
}
