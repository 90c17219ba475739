package schedule

import "fmt"

// Resolution is the state of the day at one minute.
type Resolution struct {
	Now       int        `json:"now"`
	Current   *TimeBlock `json:"current,omitempty"`
	Next      *TimeBlock `json:"next,omitempty"`
	Progress  int        `json:"progress"`            // percent of Current elapsed
	Remaining string     `json:"remaining,omitempty"` // countdown text for Current
	// Invalid counts entries skipped because their times did not convert.
	Invalid int `json:"invalid,omitempty"`
}

// Resolve finds the current and next pending blocks at minute now.
//
// The first pending block with start <= now < end is current, and the next
// pending block after it in list order is next. Without a current block, next
// is the first pending block that starts after now. blocks must be in schedule
// order.
func Resolve(blocks []TimeBlock, now int) Resolution {
	res := Resolution{Now: now}
	for i := range blocks {
		b := blocks[i]
		if !b.Pending() {
			continue
		}
		start, end, err := b.Span()
		if err != nil {
			res.Invalid++
			continue
		}
		if start <= now && now < end {
			res.Current = &b
			res.Progress = Progress(start, end, now)
			res.Remaining = RemainingText(end - now)
			for j := i + 1; j < len(blocks); j++ {
				if blocks[j].Pending() {
					next := blocks[j]
					res.Next = &next
					break
				}
			}
			return res
		}
		if start > now && res.Next == nil {
			res.Next = &b
		}
	}
	return res
}

// Progress is the elapsed share of [start,end) at now, floored and clamped to
// 0..100.
func Progress(start, end, now int) int {
	total := end - start
	if total <= 0 {
		return 0
	}
	return min(max((now-start)*100/total, 0), 100)
}

// RemainingText renders a countdown: "1h 5m remaining" or "45 minutes remaining".
func RemainingText(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm remaining", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%d minutes remaining", minutes)
}
