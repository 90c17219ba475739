package reminder

import (
	"fmt"

	"focusflow/internal/notifier"
	"focusflow/internal/schedule"
)

// Lead is how far ahead upcoming and ending-soon reminders fire, in minutes.
const Lead = 5

// Plan is what one tick should do.
type Plan struct {
	Now           int                     `json:"now"`
	Notifications []notifier.Notification `json:"notifications,omitempty"`

	// Current is the block the badge shows; nil clears the badge.
	Current    *schedule.TimeBlock `json:"current,omitempty"`
	BadgeText  string              `json:"badge_text"`
	BadgeColor schedule.RGBA       `json:"badge_color"`

	// Invalid lists ids of blocks skipped because their times did not convert.
	Invalid []string `json:"invalid,omitempty"`
}

// Evaluate applies the reminder rules to blocks at minute now. A block with
// unreadable times is skipped without affecting the others.
func Evaluate(blocks []schedule.TimeBlock, now int) Plan {
	p := Plan{Now: now}
	upcomingSeen := false
	for i := range blocks {
		b := blocks[i]
		if !b.Pending() {
			continue
		}
		start, end, err := b.Span()
		if err != nil {
			p.Invalid = append(p.Invalid, b.ID)
			continue
		}

		if start <= now && now < end {
			if p.Current == nil {
				cur := b
				p.Current = &cur
			}
			if now-start <= 1 {
				p.Notifications = append(p.Notifications, taskStarted(b))
			}
			if left := end - now; left <= Lead && left > Lead-1 {
				p.Notifications = append(p.Notifications, taskEnding(b))
			}
		}

		if ahead := start - now; ahead > 0 && ahead <= Lead && !upcomingSeen {
			upcomingSeen = true
			if ahead > Lead-1 {
				p.Notifications = append(p.Notifications, upcoming(b))
			}
		}
	}

	if p.Current != nil {
		p.BadgeText = schedule.Initials(p.Current.Task)
		p.BadgeColor = schedule.Color(p.Current.Category)
	}
	return p
}

func taskStarted(b schedule.TimeBlock) notifier.Notification {
	return notifier.Notification{
		Kind:     notifier.KindTaskStart,
		Title:    "Task Started",
		Message:  b.Task,
		Context:  fmt.Sprintf("From %s to %s", b.StartTime, b.EndTime),
		BlockID:  b.ID,
		Priority: 1,
	}
}

func taskEnding(b schedule.TimeBlock) notifier.Notification {
	return notifier.Notification{
		Kind:     notifier.KindTaskEnding,
		Title:    "Task Ending Soon",
		Message:  fmt.Sprintf("%s will end in %d minutes", b.Task, Lead),
		Context:  fmt.Sprintf("Current task ends at %s", b.EndTime),
		BlockID:  b.ID,
		Priority: 1,
	}
}

func upcoming(b schedule.TimeBlock) notifier.Notification {
	return notifier.Notification{
		Kind:     notifier.KindUpcoming,
		Title:    "Upcoming Task",
		Message:  fmt.Sprintf("%s will start in %d minutes", b.Task, Lead),
		Context:  fmt.Sprintf("From %s to %s", b.StartTime, b.EndTime),
		BlockID:  b.ID,
		Priority: 1,
	}
}
