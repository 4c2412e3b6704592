package textutil_test

import (
	"strings"
	"testing"

	"capstan/internal/textutil"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"runs", "hello   world\t again", "hello world again"},
		{"edges", "  hello world \n", "hello world"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.Normalize(tc.input); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeComposesUnicode(t *testing.T) {
	// "e" + combining acute accent should compose to a single code point.
	decomposed := "café"
	got := textutil.Normalize(decomposed)
	if got != "café" {
		t.Fatalf("Normalize(%q) = %q, want %q", decomposed, got, "café")
	}
}

func TestWordsRoundTrip(t *testing.T) {
	text := "the quick, brown fox."
	words := textutil.Words(text)
	if len(words) != 4 {
		t.Fatalf("expected 4 words, got %d: %v", len(words), words)
	}
	if rejoined := strings.Join(words, " "); rejoined != text {
		t.Fatalf("join(words) = %q, want %q", rejoined, text)
	}
}

func TestWordCount(t *testing.T) {
	if got := textutil.WordCount(""); got != 0 {
		t.Fatalf("WordCount(empty) = %d", got)
	}
	if got := textutil.WordCount("one two  three"); got != 3 {
		t.Fatalf("WordCount = %d, want 3", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := textutil.SanitizeFileName("a/b:c*d?e"); got != "a-b-c-de" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}
