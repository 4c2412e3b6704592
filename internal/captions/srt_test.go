package captions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatSRTTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.042, "00:01:01,042"},
		{3599.999, "00:59:59,999"},
		{3600, "01:00:00,000"},
		{7261.25, "02:01:01,250"},
		{-3, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := formatSRTTimestamp(tt.seconds); got != tt.want {
			t.Errorf("formatSRTTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatSRT(t *testing.T) {
	blocks := []Block{
		{Start: 0.5, End: 2.25, Text: "first caption block"},
		{Start: 2.25, End: 4, Text: "second caption block"},
	}

	got := FormatSRT(blocks)
	want := "1\n" +
		"00:00:00,500 --> 00:00:02,250\n" +
		"first caption block\n" +
		"\n" +
		"2\n" +
		"00:00:02,250 --> 00:00:04,000\n" +
		"second caption block\n"
	if got != want {
		t.Errorf("FormatSRT() =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatSRTEmpty(t *testing.T) {
	if got := FormatSRT(nil); got != "" {
		t.Errorf("FormatSRT(nil) = %q, want empty", got)
	}
}

func TestWriteSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	blocks := []Block{{Start: 1, End: 2, Text: "hello there"}}

	if err := WriteSRT(path, blocks); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "00:00:01,000 --> 00:00:02,000") {
		t.Errorf("srt missing cue timing:\n%s", content)
	}
	if !strings.Contains(content, "hello there") {
		t.Errorf("srt missing text:\n%s", content)
	}
}

func TestWriteSRTBadPath(t *testing.T) {
	err := WriteSRT(filepath.Join(t.TempDir(), "missing", "out.srt"), nil)
	if err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}
