package schedule

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RGBA is a badge background colour.
type RGBA [4]uint8

func (c RGBA) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]) }

var categoryColors = map[Category]RGBA{
	CategoryWork:     {79, 70, 229, 255},
	CategoryStudy:    {249, 115, 22, 255},
	CategoryExercise: {34, 197, 94, 255},
	CategoryMeal:     {6, 182, 212, 255},
	CategoryRest:     {139, 92, 246, 255},
	CategoryLeisure:  {234, 179, 8, 255},
	CategoryOther:    {100, 116, 139, 255},
}

// Color returns the badge colour for c; unknown categories use Other's.
func Color(c Category) RGBA {
	if rgba, ok := categoryColors[c]; ok {
		return rgba
	}
	return categoryColors[CategoryOther]
}

// Initials abbreviates a task for a badge: the first letter of each of the first
// two words, or the first two characters of a single word, upper-cased.
func Initials(task string) string {
	words := strings.Fields(task)
	switch len(words) {
	case 0:
		return ""
	case 1:
		w := words[0]
		n := 0
		for i := range w {
			if n == 2 {
				w = w[:i]
				break
			}
			n++
		}
		return strings.ToUpper(w)
	default:
		return strings.ToUpper(firstRune(words[0]) + firstRune(words[1]))
	}
}

func firstRune(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[:size]
}
