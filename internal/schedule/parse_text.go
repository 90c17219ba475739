package schedule

import (
	"fmt"
	"regexp"
	"strings"
)

// A block line: "<time> <dash> <time> : <task>". The dash may be a hyphen, an
// en dash or an em dash.
var reTextLine = regexp.MustCompile(`(?i)(\d{1,2}[:.]\d{2}\s*(?:AM|PM)?)\s*[-–—]\s*(\d{1,2}[:.]\d{2}\s*(?:AM|PM)?)\s*:\s*(.*)`)

// ParseText reads the free-text dialect, one block per line.
//
// Lines that do not look like a block are skipped and listed in Result.Skipped;
// they only fail the parse in strict mode. A line that does look like a block but
// carries an invalid time fails the whole parse.
func ParseText(input string, opts ParseOptions) (Result, error) {
	var res Result
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := reTextLine.FindStringSubmatch(line)
		task := ""
		if m != nil {
			task = strings.TrimSpace(m[3])
		}
		if m == nil || task == "" {
			res.Skipped = append(res.Skipped, SkippedLine{Line: i + 1, Text: strings.TrimSpace(line)})
			continue
		}
		b, err := newBlock(m[1], m[2], task)
		if err != nil {
			return Result{}, atLine(i+1, err)
		}
		res.Blocks = append(res.Blocks, b)
	}
	if opts.Strict && len(res.Skipped) > 0 {
		s := res.Skipped[0]
		return Result{}, invalid(fmt.Sprintf("line %d", s.Line), s.Text, "not a schedule line (%d unrecognized)", len(res.Skipped))
	}
	return res, nil
}

func atLine(n int, err error) error {
	if ve, ok := err.(*ValidationError); ok && ve.Field == "" {
		cp := *ve
		cp.Field = fmt.Sprintf("line %d", n)
		return &cp
	}
	return fmt.Errorf("line %d: %w", n, err)
}
