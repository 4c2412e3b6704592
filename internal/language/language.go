// Package language normalizes the language setting users hand the recognizer.
// Config accepts 2-letter codes, 3-letter codes, or plain English names; the
// recognizer API wants ISO 639-1 and summaries want something readable.
package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// englishNames maps full word forms the config commonly sees. The x/text
// parser only takes codes, so names are resolved here first.
var englishNames = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// bibliographic covers the ISO 639-2/B aliases the parser rejects.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
}

// ToISO2 converts a language code or English name to ISO 639-1. A 2-letter
// input passes through even when unrecognized, so an exotic but valid code
// still reaches the recognizer; anything else unrecognized yields "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if iso, ok := englishNames[code]; ok {
		return iso
	}
	if iso, ok := bibliographic[code]; ok {
		return iso
	}
	if tag, err := language.Parse(code); err == nil {
		base, conf := tag.Base()
		if conf >= language.High && len(base.String()) == 2 {
			return base.String()
		}
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName renders a human-readable name for summaries: "Unknown" for
// empty input, the uppercased raw code when nothing matches.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	iso := ToISO2(trimmed)
	if iso != "" {
		if tag, err := language.Parse(iso); err == nil {
			if name := display.English.Languages().Name(tag); name != "" && !strings.EqualFold(name, iso) {
				return name
			}
		}
	}
	return strings.ToUpper(trimmed)
}
