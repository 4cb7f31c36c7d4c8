// Package textnorm puts free text into the form used for keyword matching:
// lowercase, accents stripped, typographic apostrophes folded and whitespace
// collapsed to single spaces.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"ʼ", "'",
	"`", "'",
	"´", "'",
	"œ", "oe",
	"æ", "ae",
)

func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// A transformer keeps state, so each call builds its own chain.
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, text)
	if err != nil {
		stripped = text
	}
	lowered := apostrophes.Replace(strings.ToLower(stripped))
	return strings.Join(strings.Fields(lowered), " ")
}
