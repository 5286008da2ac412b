package util

import "testing"

func TestTruncateString(t *testing.T) {
	if got := TruncateString("마법사 앨리스", 3); got != "마법사..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := TruncateString("short", 10); got != "short" {
		t.Fatalf("expected untouched string, got %q", got)
	}
}

func TestFirstRune(t *testing.T) {
	tests := map[string]string{
		"Alice":  "A",
		"éclair": "é",
		"":       "",
	}
	for in, want := range tests {
		if got := FirstRune(in); got != want {
			t.Fatalf("FirstRune(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-1, 0, 10) != 0 || Clamp(11, 0, 10) != 10 || Clamp(4, 0, 10) != 4 {
		t.Fatalf("clamp out of range")
	}
}
