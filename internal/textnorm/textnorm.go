// Package textnorm turns product titles into comparable forms.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// stripped before NFKC, which would otherwise expand ™ into "TM"
var trademarkGlyphs = strings.NewReplacer("™", "", "®", "", "©", "")

var separators = strings.NewReplacer(
	":", " ",
	"-", " ",
	"\u2010", " ",
	"\u2013", " ",
	"\u2014", " ",
)

// listings sometimes spell the glyph where the canonical title spells the word, or the reverse.
// applied after lowercasing so both cases are covered.
var greekLetters = strings.NewReplacer(
	"δ", "delta",
	"α", "alpha",
	"β", "beta",
	"γ", "gamma",
)

// passes after which Normalize gives up looking for a fixed point, real input
// settles in two
const maxNormalizePasses = 8

// Normalize lowercases text, removes trademark glyphs, turns separators into
// spaces, spells out greek letters, drops everything that is not a letter,
// digit or space and collapses whitespace. Normalize is idempotent.
//
// Dropping a rune can put two runes side by side that NFKC composes (ex.
// conjoining jamo around punctuation), so passes repeat until nothing changes.
func Normalize(text string) string {
	for pass := 0; pass < maxNormalizePasses; pass++ {
		next := normalizePass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func normalizePass(text string) string {
	text = trademarkGlyphs.Replace(text)
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)
	text = separators.Replace(text)
	text = greekLetters.Replace(text)

	var out strings.Builder
	out.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			out.WriteRune(r)
		case unicode.IsSpace(r):
			out.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(out.String()), " ")
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "with": {}, "by": {}, "from": {},
	"edition":    {},
	"deluxe":     {},
	"definitive": {},
	"ultimate":   {},
	"complete":   {},
	"special":    {},
	"standard":   {},
	"game":       {},
}

// IsStopword reports whether a normalized token carries no identifying information.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// ExtractKeywords returns the distinct identifying tokens of text in order of
// first appearance, stopwords and tokens of 2 characters or less are dropped.
func ExtractKeywords(text string) []string {
	var keywords []string
	seen := map[string]struct{}{}
	for _, token := range strings.Fields(Normalize(text)) {
		if utf8.RuneCountInString(token) <= 2 || IsStopword(token) {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}
	return keywords
}

// ContainsWord reports whether the normalized form of text contains phrase as
// whole words, ex. "pack" is found in "puzzle pack" but not in "unpacked".
// phrase must already be normalized.
func ContainsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+Normalize(text)+" ", " "+phrase+" ")
}
