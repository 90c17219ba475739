package schedule

import "testing"

func TestInitials(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Office Work":         "OW",
		"DSA Practice":        "DP",
		"Return Home Refresh": "RH",
		"breakfast":           "BR",
		"x":                   "X",
		"":                    "",
		"  gym  time ":        "GT",
		"élan vital":          "ÉV",
	}
	for in, want := range tests {
		if got := Initials(in); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestColor(t *testing.T) {
	t.Parallel()
	if got := Color(CategoryWork); got != (RGBA{79, 70, 229, 255}) {
		t.Fatalf("Work colour = %v", got)
	}
	if got := Color("Unknown"); got != Color(CategoryOther) {
		t.Fatalf("fallback colour = %v", got)
	}
	if got := Color(CategoryMeal).Hex(); got != "#06b6d4" {
		t.Fatalf("Meal hex = %s", got)
	}
}
