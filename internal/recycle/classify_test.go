package recycle

import "testing"

func TestClassifyExactMatch(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"iphone", "Phones"},
		{"ipad", "Tablets"},
		{"TV", "TVs & Monitors"},
		{"aa", "Batteries"},
		{"xbox", "Gaming"},
		{"hdmi", "Cables & Accessories"},
	}
	for _, tt := range tests {
		got := Classify(tt.input)
		if got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClassifyKeywordMatch(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"old dell laptop", "Computers"},
		{"broken phone charger", "Cables & Accessories"},
		{"samsung smartphone", "Phones"},
		{"27 inch monitor", "TVs & Monitors"},
		{"laptop battery pack", "Batteries"},
		{"bluetooth speaker", "Audio"},
		{"game console with controller", "Gaming"},
		{"countertop microwave", "Appliances"},
	}
	for _, tt := range tests {
		got := Classify(tt.input)
		if got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClassifyFallback(t *testing.T) {
	for _, input := range []string{"", "   ", "garden hose", "sofa"} {
		if got := Classify(input); got != CategoryOther {
			t.Errorf("Classify(%q) = %q, want %q", input, got, CategoryOther)
		}
	}
}
