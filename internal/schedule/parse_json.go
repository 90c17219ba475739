package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON reads the JSON dialect: one block object or an array of them.
//
// Every entry must carry startTime, endTime and task. A single bad entry rejects
// the whole input.
func ParseJSON(input []byte) (Result, error) {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		return Result{}, invalid("", "", "empty JSON input")
	}

	var entries []map[string]json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return Result{}, invalid("", "", "invalid JSON: %v", err)
		}
	case '{':
		var one map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return Result{}, invalid("", "", "invalid JSON: %v", err)
		}
		entries = append(entries, one)
	default:
		return Result{}, invalid("", "", "invalid JSON structure, expected array or object")
	}

	res := Result{Blocks: make([]TimeBlock, 0, len(entries))}
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		b, err := blockFromJSON(e)
		if err != nil {
			return Result{}, atEntry(i, err)
		}
		if j, dup := seen[b.ID]; dup {
			return Result{}, invalid(fmt.Sprintf("entry %d", i), b.ID, "duplicate id (also used by entry %d)", j)
		}
		seen[b.ID] = i
		res.Blocks = append(res.Blocks, b)
	}
	return res, nil
}

func blockFromJSON(e map[string]json.RawMessage) (TimeBlock, error) {
	if e == nil {
		return TimeBlock{}, invalid("", "", "each block must be an object")
	}
	var fields [6]string
	for i, name := range []string{"startTime", "endTime", "task", "id", "category", "status"} {
		v, err := stringField(e, name)
		if err != nil {
			return TimeBlock{}, err
		}
		fields[i] = v
	}
	start, end, task, id, category, status := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	if start == "" || end == "" || task == "" {
		return TimeBlock{}, invalid("", "", "each block must have startTime, endTime, and task properties")
	}

	b, err := newBlock(start, end, task)
	if err != nil {
		return TimeBlock{}, err
	}
	if id != "" {
		b.ID = id
	}
	if category != "" {
		c, ok := ParseCategory(category)
		if !ok {
			c = CategoryOther
		}
		b.Category = c
	}
	if status != "" {
		st, ok := ParseStatus(status)
		if !ok {
			return TimeBlock{}, invalid("status", status, "must be pending, completed or skipped")
		}
		b.Status = st
	}
	return b, nil
}

// stringField returns a trimmed string property; absent and null read as "".
func stringField(e map[string]json.RawMessage, name string) (string, error) {
	raw, ok := e[name]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalid(name, strings.TrimSpace(string(raw)), "must be a string")
	}
	return strings.TrimSpace(s), nil
}

func atEntry(i int, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		cp := *ve
		if cp.Field == "" {
			cp.Field = fmt.Sprintf("entry %d", i)
		} else {
			cp.Field = fmt.Sprintf("entry %d: %s", i, cp.Field)
		}
		return &cp
	}
	return fmt.Errorf("entry %d: %w", i, err)
}
