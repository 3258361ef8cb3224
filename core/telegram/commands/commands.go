// Package commands defines the slash-command entries kept by the registry.
package commands

import tele "gopkg.in/telebot.v4"

// Command is a slash command. Hidden commands still run but are left out of
// the menu published with setMyCommands. Aliases resolve with or without
// the leading slash.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Hidden      bool
	Aliases     []string
}
