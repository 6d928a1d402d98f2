package features

import (
	"slices"
	"strings"
	"unicode"
)

// Trigrams returns the sorted, deduplicated lexical trigrams of text.
//
// Text is lowercased and split into words on any run of characters that are
// neither letters nor digits. A word of three or more runes contributes
// every three-rune window; a shorter word contributes itself.
func Trigrams(text string) []string {
	seen := make(map[string]struct{})
	for _, word := range Words(text) {
		addWordTrigrams(seen, word)
	}
	return sortedKeys(seen)
}

// Words lowercases text and splits it on non-alphanumeric runs.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Union merges trigram sets into one sorted, deduplicated slice.
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, g := range set {
			seen[g] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func addWordTrigrams(seen map[string]struct{}, word string) {
	runes := []rune(word)
	if len(runes) < 3 {
		seen[word] = struct{}{}
		return
	}
	for i := 0; i+3 <= len(runes); i++ {
		seen[string(runes[i:i+3])] = struct{}{}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
