package store

import (
	"strings"
	"unicode"
)

// span is a token with its byte offsets in the source text.
type span struct {
	term  string
	start int
	end   int
}

// Tokenize splits text into lowercase search terms. Words are runs of
// letters and digits. A camelCase or PascalCase word yields its parts and,
// when it has more than one part, the whole word as well.
//
//	"parseHTTPRequest.go" -> ["parsehttprequest", "parse", "http", "request", "go"]
func Tokenize(text string) []string {
	spans := tokenSpans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.term
	}
	return out
}

func tokenSpans(text string) []span {
	var out []span
	start := -1

	flush := func(end int) {
		word := text[start:end]
		parts := splitCamelCase(word)
		if len(parts) > 1 {
			out = append(out, span{term: strings.ToLower(word), start: start, end: end})
		}
		for _, p := range parts {
			out = append(out, span{
				term:  strings.ToLower(p.term),
				start: start + p.start,
				end:   start + p.end,
			})
		}
	}

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
			start = -1
		}
	}
	if start >= 0 {
		flush(len(text))
	}
	return out
}

// splitCamelCase splits at lower-to-upper boundaries and before the last
// capital of an acronym followed by lowercase:
//
//	"getUserById" -> ["get", "User", "By", "Id"]
//	"HTTPHandler" -> ["HTTP", "Handler"]
func splitCamelCase(word string) []span {
	if word == "" {
		return nil
	}

	type pos struct {
		r   rune
		off int
	}
	runes := make([]pos, 0, len(word))
	for off, r := range word {
		runes = append(runes, pos{r, off})
	}

	var out []span
	begin := 0
	for i := 1; i < len(runes); i++ {
		if !unicode.IsUpper(runes[i].r) {
			continue
		}
		prevLower := unicode.IsLower(runes[i-1].r)
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1].r)
		if prevLower || nextLower {
			off := runes[i].off
			out = append(out, span{term: word[begin:off], start: begin, end: off})
			begin = off
		}
	}
	out = append(out, span{term: word[begin:], start: begin, end: len(word)})
	return out
}
