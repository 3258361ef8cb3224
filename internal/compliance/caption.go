package compliance

import "strings"

const (
	labelTime      = "📅 Time: "
	labelSubmitter = "👤 Submitted by: "
	labelRemarks   = "📝 Remarks: "
	labelReasons   = "⚠️ Reasons: "

	// MaxCaptionRunes is Telegram's limit for photo captions.
	MaxCaptionRunes = 1024
	ellipsis        = "…"
)

// Caption renders the channel caption. Only the remarks are shortened when
// the result would exceed MaxCaptionRunes.
func Caption(p PendingReport) string {
	head := labelTime + p.Timestamp + "\n" + labelSubmitter + p.Submitter + "\n" + labelRemarks
	tail := "\n" + labelReasons + strings.Join(p.ReasonStrings(), ", ")

	remarks := []rune(p.Remarks)
	budget := MaxCaptionRunes - runeLen(head) - runeLen(tail)
	if len(remarks) > budget {
		if budget > 1 {
			remarks = append(remarks[:budget-1], []rune(ellipsis)...)
		} else {
			remarks = nil
		}
	}
	return head + string(remarks) + tail
}

func runeLen(s string) int { return len([]rune(s)) }
