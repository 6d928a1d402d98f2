package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{"whitespace", "hello world", []string{"hello", "world"}},
		{"path separators", "/home/u/notes.txt", []string{"home", "u", "notes", "txt"}},
		{"windows path", `C:\Users\Docs`, []string{"c", "users", "docs"}},
		{"camel case", "getUserById", []string{"getuserbyid", "get", "user", "by", "id"}},
		{"acronym", "parseHTTPRequest", []string{"parsehttprequest", "parse", "http", "request"}},
		{"snake case", "user_id", []string{"user", "id"}},
		{"digits stay attached", "report2024", []string{"report2024"}},
		{"unicode letters", "Résumé final", []string{"résumé", "final"}},
		{"empty", "", []string{}},
		{"only punctuation", "--..//", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Tokenize(tt.input))
		})
	}
}

func TestTokenSpans_OffsetsPointIntoSource(t *testing.T) {
	text := "a/fooBar.go"

	for _, s := range tokenSpans(text) {
		assert.Equal(t, s.term, strings.ToLower(text[s.start:s.end]), "span %+v", s)
	}
}

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		input  string
		expect []string
	}{
		{"getUserById", []string{"get", "User", "By", "Id"}},
		{"HTTPHandler", []string{"HTTP", "Handler"}},
		{"lowercase", []string{"lowercase"}},
		{"ALLCAPS", []string{"ALLCAPS"}},
		{"A", []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got []string
			for _, s := range splitCamelCase(tt.input) {
				got = append(got, s.term)
			}
			assert.Equal(t, tt.expect, got)
		})
	}
}

func BenchmarkTokenize(b *testing.B) {
	text := "/home/user/projects/findex/internal/store/parseHTTPRequest_handler.go"
	for i := 0; i < b.N; i++ {
		_ = Tokenize(text)
	}
}
