// Package extract finds http and https URLs in free-form text.
package extract

import (
	"iter"
	"regexp"
	"strings"
)

// urlPattern matches a URL up to the first whitespace character.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// trailingPunctuation lists characters that end a sentence rather than a URL.
const trailingPunctuation = `.!,;?'"`

// URLs returns the URLs found in text in order of appearance. The sequence is
// evaluated lazily and can be ranged over more than once. Duplicates are kept,
// and matches are not validated: a malformed URL still takes its place in the
// sequence so that it fails when fetched.
func URLs(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
			if !yield(trimPunctuation(text[loc[0]:loc[1]])) {
				return
			}
		}
	}
}

// All collects URLs(text) into a slice.
func All(text string) []string {
	var out []string
	for u := range URLs(text) {
		out = append(out, u)
	}
	return out
}

// trimPunctuation drops a single trailing sentence character.
func trimPunctuation(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsRune(trailingPunctuation, rune(s[len(s)-1])) {
		return s[:len(s)-1]
	}
	return s
}
