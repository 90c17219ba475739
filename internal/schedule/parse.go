package schedule

import (
	"fmt"
	"sort"
	"strings"
)

// Format selects an input dialect.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat resolves a dialect name; empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", invalid("format", s, "must be text or json")
}

// ParseOptions tunes parsing.
type ParseOptions struct {
	// Strict makes unrecognized text lines an error instead of dropping them.
	Strict bool
}

// SkippedLine is a text line that did not describe a block.
type SkippedLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Result is the outcome of a successful parse. Blocks are in schedule order.
type Result struct {
	Blocks  []TimeBlock   `json:"blocks"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
}

// Parse reads input in the given dialect and returns sorted blocks.
//
// Zero blocks is not an error here; callers decide whether to surface
// ErrEmptyResult.
func Parse(format Format, input []byte, opts ParseOptions) (Result, error) {
	var (
		res Result
		err error
	)
	switch format {
	case FormatText, "":
		res, err = ParseText(string(input), opts)
	case FormatJSON:
		res, err = ParseJSON(input)
	default:
		return Result{}, invalid("format", string(format), "must be text or json")
	}
	if err != nil {
		return Result{}, err
	}
	if err := Sort(res.Blocks); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Sort orders blocks by ascending start minute. Equal starts keep their input
// order.
func Sort(blocks []TimeBlock) error {
	starts := make(map[string]int, len(blocks))
	for _, b := range blocks {
		m, err := Minutes(b.StartTime)
		if err != nil {
			return fmt.Errorf("block %s: %w", b.ID, err)
		}
		starts[b.ID] = m
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return starts[blocks[i].ID] < starts[blocks[j].ID]
	})
	return nil
}

// newBlock builds a pending block from raw parts, standardizing both times.
func newBlock(rawStart, rawEnd, task string) (TimeBlock, error) {
	start, err := Standardize(rawStart)
	if err != nil {
		return TimeBlock{}, err
	}
	end, err := Standardize(rawEnd)
	if err != nil {
		return TimeBlock{}, err
	}
	if end.Minutes() <= start.Minutes() {
		return TimeBlock{}, invalid("endTime", end.String(), "must be after start time %s (overnight blocks are not supported)", start)
	}
	return TimeBlock{
		ID:        NewID(),
		StartTime: start.String(),
		EndTime:   end.String(),
		Task:      task,
		Category:  Categorize(task),
		Status:    StatusPending,
	}, nil
}
