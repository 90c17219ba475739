package schedule

import "strings"

// Category is the fixed label set a task is filed under.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryStudy    Category = "Study"
	CategoryExercise Category = "Exercise"
	CategoryMeal     Category = "Meal"
	CategoryRest     Category = "Rest"
	CategoryLeisure  Category = "Leisure"
	CategoryOther    Category = "Other"
)

// Categories lists every label in categorizer priority order, Other last.
var Categories = []Category{
	CategoryWork, CategoryStudy, CategoryExercise, CategoryMeal,
	CategoryRest, CategoryLeisure, CategoryOther,
}

// Order matters: the first rule with a matching keyword wins, so "workout"
// lands in Work because of "work".
var categoryRules = []struct {
	category Category
	keywords []string
}{
	{CategoryWork, []string{"work", "office", "meeting"}},
	{CategoryStudy, []string{"study", "practice", "research", "dsa"}},
	{CategoryExercise, []string{"exercise", "gym", "workout"}},
	{CategoryMeal, []string{"meal", "breakfast", "lunch", "dinner"}},
	{CategoryRest, []string{"sleep", "rest", "nap", "wake"}},
	{CategoryLeisure, []string{"hobby", "guitar", "read", "watch"}},
}

// Categorize maps a free-text task description to a category by keyword.
func Categorize(task string) Category {
	lower := strings.ToLower(task)
	for _, r := range categoryRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.category
			}
		}
	}
	return CategoryOther
}

// ParseCategory resolves a category label case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}
