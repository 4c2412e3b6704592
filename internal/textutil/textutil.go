package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize prepares recognizer output for downstream packing: Unicode is
// canonicalized (NFC) and whitespace runs collapse to single spaces so word
// sequences survive join/split round trips unchanged.
func Normalize(text string) string {
	return CollapseWhitespace(norm.NFC.String(text))
}

// CollapseWhitespace replaces every whitespace run with a single space and
// trims the ends.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Words splits text on whitespace. Unlike search-style tokenization it keeps
// every word exactly as written, including punctuation, so joining the result
// with single spaces reproduces normalized input.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount reports the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)
