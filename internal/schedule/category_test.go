package schedule

import "testing"

func TestCategorize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		task string
		want Category
	}{
		{"Office Work", CategoryWork},
		{"Team meeting", CategoryWork},
		{"DSA Practice", CategoryStudy},
		{"Research paper", CategoryStudy},
		{"Gym", CategoryExercise},
		{"Morning workout", CategoryWork}, // "work" wins by priority
		{"Breakfast", CategoryMeal},
		{"Wake Up", CategoryRest},
		{"Power nap", CategoryRest},
		{"Guitar Practice", CategoryStudy}, // "practice" outranks "guitar"
		{"Watch a movie", CategoryLeisure},
		{"Placement Book / AWS", CategoryOther},
		{"xyz", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		if got := Categorize(tt.task); got != tt.want {
			t.Fatalf("Categorize(%q) = %s, want %s", tt.task, got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()
	if c, ok := ParseCategory(" leisure "); !ok || c != CategoryLeisure {
		t.Fatalf("ParseCategory(leisure) = %v, %v", c, ok)
	}
	if _, ok := ParseCategory("Fun"); ok {
		t.Fatal("expected unknown category")
	}
}
