package schedule

import (
	"strings"

	"github.com/google/uuid"
)

// Status is the lifecycle marker of a block. Completed and skipped are set only
// by explicit user action.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
)

// ParseStatus resolves a status label case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusSkipped:
		return StatusSkipped, true
	}
	return "", false
}

// TimeBlock is one scheduled interval. Start and end are canonical clock strings
// ("H:MM AM|PM").
type TimeBlock struct {
	ID        string   `json:"id"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Task      string   `json:"task"`
	Category  Category `json:"category"`
	Status    Status   `json:"status"`
}

// Span returns the block's start and end as minutes of day.
func (b TimeBlock) Span() (start, end int, err error) {
	if start, err = Minutes(b.StartTime); err != nil {
		return 0, 0, err
	}
	if end, err = Minutes(b.EndTime); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Pending reports whether the block still takes part in resolution.
func (b TimeBlock) Pending() bool { return b.Status == StatusPending }

// Validate checks the block invariants that do not depend on its neighbours.
func (b TimeBlock) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return invalid("id", "", "must not be empty")
	}
	if strings.TrimSpace(b.Task) == "" {
		return invalid("task", "", "must not be empty")
	}
	if _, ok := ParseStatus(string(b.Status)); !ok {
		return invalid("status", string(b.Status), "must be pending, completed or skipped")
	}
	start, end, err := b.Span()
	if err != nil {
		return err
	}
	if end <= start {
		return invalid("endTime", b.EndTime, "must be after start time %s", b.StartTime)
	}
	return nil
}

// NewID returns a fresh opaque block id.
func NewID() string { return uuid.NewString() }

// Clone returns a copy of blocks that shares no backing array with the input.
func Clone(blocks []TimeBlock) []TimeBlock {
	if blocks == nil {
		return nil
	}
	return append([]TimeBlock(nil), blocks...)
}

// IndexOf returns the position of the block with the given id, or -1.
func IndexOf(blocks []TimeBlock, id string) int {
	for i := range blocks {
		if blocks[i].ID == id {
			return i
		}
	}
	return -1
}
