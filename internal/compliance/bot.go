package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	tg "github.com/m3rciful/reportbot/core/telegram"
	"github.com/m3rciful/reportbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/reportbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Command replies.
const (
	HelpText = "📸 Send a photo of the issue to start a compliance report.\n" +
		"Pick one or more reasons on the keyboard, then press Submit.\n" +
		"/cancel discards the report you are composing."
	TextFallbackText = "Send a photo to start a report."
	NothingToCancel  = "There is no report to cancel."
	NoHistoryText    = "No reports recorded yet."

	historyLimit = 5
)

// History lists a user's recent journal entries.
type History interface {
	Recent(ctx context.Context, userID int64, limit int) ([]Entry, error)
}

// Register binds the workflow to reg: photo and callback handlers, the
// text fallback and the user commands. history may be nil, in which case
// /history is not offered.
func Register(reg *tg.Registry, wf *Workflow, history History) error {
	reg.SetPhotoHandler(func(c tele.Context) error {
		m, ok := PhotoFromMessage(c.Message())
		if !ok {
			return nil
		}
		return wf.Dispatch(tghelpers.BuildContext(c), m)
	})

	press := func(c tele.Context) error {
		p, ok := PressFromCallback(c.Callback())
		if !ok {
			return tghelpers.Answer(c, "")
		}
		return wf.Dispatch(tghelpers.BuildContext(c), p)
	}
	for _, key := range Payloads() {
		if err := reg.RegisterCallback(key, press); err != nil {
			return fmt.Errorf("compliance: %w", err)
		}
	}
	reg.SetCallbackNotFound(press)

	reg.SetTextFallback(func(c tele.Context) error {
		return tghelpers.SendText(c, TextFallbackText)
	})

	help := func(c tele.Context) error { return tghelpers.SendText(c, HelpText) }
	reg.RegisterCommand("/start", commands.Command{Handler: help, Description: "Start the bot"})
	reg.RegisterCommand("/help", commands.Command{Handler: help, Description: "How to file a report"})
	reg.RegisterCommand("/cancel", commands.Command{
		Description: "Discard the report in progress",
		Handler: func(c tele.Context) error {
			found, err := wf.Cancel(tghelpers.BuildContext(c), tghelpers.SenderID(c))
			if err != nil {
				return err
			}
			if !found {
				return tghelpers.SendText(c, NothingToCancel)
			}
			return nil
		},
	})
	if history != nil {
		reg.RegisterCommand("/history", commands.Command{
			Description: "Your recent reports",
			Handler: func(c tele.Context) error {
				entries, err := history.Recent(tghelpers.BuildContext(c), tghelpers.SenderID(c), historyLimit)
				if err != nil {
					return err
				}
				return tghelpers.SendText(c, FormatHistory(entries, wf.loc))
			},
		})
	}
	return nil
}

// FormatHistory renders journal entries one per line, newest first.
func FormatHistory(entries []Entry, loc *time.Location) string {
	if len(entries) == 0 {
		return NoHistoryText
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := "✅"
		if e.Outcome != OutcomeDelivered {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s %s · %s", mark, e.At.In(loc).Format(timestampLayout), strings.Join(e.Reasons, ", "))
	}
	return b.String()
}
