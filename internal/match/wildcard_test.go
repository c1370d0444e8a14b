package match

import "testing"

func TestCompileMatchCaseSensitive(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{pattern: "Samsung Room A/C", value: "Samsung Room A/C", want: true},
		{pattern: "Samsung*", value: "Samsung Room A/C", want: true},
		{pattern: "*A/C", value: "Samsung Room A/C", want: true},
		{pattern: "*Room*", value: "Samsung Room A/C", want: true},
		{pattern: "S*g*C", value: "Samsung Room A/C", want: true},
		{pattern: "*", value: "", want: true},
		{pattern: "**", value: "anything", want: true},
		{pattern: "ab*ba", value: "aba", want: false},
		{pattern: "samsung*", value: "Samsung Room A/C", want: false},
		{pattern: "", value: "", want: false},
	}

	for _, tt := range tests {
		pattern, ok := compile(tt.pattern, false)
		if got := ok && pattern.Match(tt.value); got != tt.want {
			t.Fatalf("compile(%q).Match(%q)=%v want=%v", tt.pattern, tt.value, got, tt.want)
		}
	}
}

func TestCompileWildcardFold(t *testing.T) {
	pattern, ok := CompileWildcardFold("samsung ROOM*")
	if !ok {
		t.Fatalf("expected pattern to compile")
	}
	if !pattern.Match("Samsung Room A/C") {
		t.Fatalf("expected case-insensitive match")
	}
	if pattern.Match("LG Room A/C") {
		t.Fatalf("unexpected match")
	}

	if _, ok := CompileWildcardFold("   "); ok {
		t.Fatalf("expected blank pattern to be rejected")
	}
}
