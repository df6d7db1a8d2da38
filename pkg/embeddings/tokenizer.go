package embeddings

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenPattern splits informal text the way social-media tokenizers do: URLs,
// @handles and #tags stay whole, emoticons are kept, words may contain inner
// apostrophes or hyphens, and any other non-space symbol is its own token.
var tokenPattern = regexp.MustCompile(strings.Join([]string{
	`https?://\S+`,
	`[@#][\pL\pN_]+`,
	`[:;=8][\-o\*']?[\)\]\(\[dDpP/\\|]`,
	`\pN+(?:[.,]\pN+)*`,
	`[\pL\pN_]+(?:['’\-][\pL\pN_]+)*`,
	`\S`,
}, "|"))

// MaxTokenRepeat caps runs of a repeated letter ("sooooo" → "sooo").
const MaxTokenRepeat = 3

// Tokenize splits text into tokens.
func Tokenize(text string) []string {
	tokens := tokenPattern.FindAllString(text, -1)
	for i, tok := range tokens {
		tokens[i] = squeezeRepeats(tok)
	}
	return tokens
}

func squeezeRepeats(tok string) string {
	var b strings.Builder
	var prev rune
	run := 0
	changed := false
	for _, r := range tok {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > MaxTokenRepeat && unicode.IsLetter(r) {
			changed = true
			continue
		}
		b.WriteRune(r)
	}
	if !changed {
		return tok
	}
	return b.String()
}
