package telegram

import (
	"fmt"
	"strings"

	"focusflow/internal/notifier"
	"focusflow/internal/schedule"
	"focusflow/internal/state"
)

const textLimit = 4000

var mdEscaper = strings.NewReplacer(`_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`)

// escape quotes the legacy Markdown control characters.
func escape(s string) string { return mdEscaper.Replace(s) }

// FormatNotification renders a notification as legacy Markdown.
func FormatNotification(n notifier.Notification) string {
	var sb strings.Builder
	sb.WriteString("*" + escape(n.Title) + "*")
	if n.Message != "" {
		sb.WriteString("\n" + escape(n.Message))
	}
	if n.Context != "" {
		sb.WriteString("\n_" + escape(n.Context) + "_")
	}
	return sb.String()
}

// FormatNow describes the current and next task.
func FormatNow(r schedule.Resolution, clock string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", escape(clock))
	if r.Current == nil {
		sb.WriteString("Nothing scheduled right now.")
	} else {
		c := r.Current
		fmt.Fprintf(&sb, "Now: %s (%s - %s)\n%d%% done, %s",
			escape(c.Task), c.StartTime, c.EndTime, r.Progress, r.Remaining)
	}
	if r.Next != nil {
		fmt.Fprintf(&sb, "\nNext: %s at %s", escape(r.Next.Task), r.Next.StartTime)
	}
	return sb.String()
}

// FormatToday lists the whole schedule with status marks.
func FormatToday(blocks []schedule.TimeBlock) string {
	if len(blocks) == 0 {
		return "No schedule loaded."
	}
	var sb strings.Builder
	sb.WriteString("*Today*")
	for _, b := range blocks {
		fmt.Fprintf(&sb, "\n%s %s - %s %s", statusMark(b.Status), b.StartTime, b.EndTime, escape(b.Task))
	}
	return sb.String()
}

func statusMark(s schedule.Status) string {
	switch s {
	case schedule.StatusCompleted:
		return "✅"
	case schedule.StatusSkipped:
		return "⏭"
	default:
		return "•"
	}
}

func formatSettings(s state.Settings) string {
	if s.Notifications {
		return "Notifications are on."
	}
	return "Notifications are off."
}

// splitText cuts s into chunks Telegram accepts, preferring newline
// boundaries.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid tiny chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
