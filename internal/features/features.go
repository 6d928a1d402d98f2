// Package features derives the indexable shape of a filesystem entry:
// text eligibility, lexical trigrams, and the final Record sent to the
// document index. Everything here is pure; callers do the I/O.
package features

import (
	"path/filepath"
	"strings"
	"time"
)

// MaxReadableSize is the inclusive content-read ceiling (1 MiB).
const MaxReadableSize int64 = 1 << 20

// textExtensions is the allow-list of extensions whose content is indexed.
var textExtensions = map[string]struct{}{
	"txt": {}, "md": {}, "json": {}, "ini": {}, "conf": {},
	"yaml": {}, "yml": {}, "xml": {}, "html": {}, "htm": {},
	"css": {}, "scss": {},
	"js": {}, "jsx": {}, "ts": {}, "tsx": {},
	"py": {}, "java": {}, "kt": {}, "swift": {}, "rb": {},
	"c": {}, "h": {}, "cpp": {}, "hpp": {}, "cs": {},
	"go": {}, "rs": {},
}

// IsTextExtension reports whether ext is on the allow-list. The lookup is
// case-insensitive and accepts the extension with or without its dot.
func IsTextExtension(ext string) bool {
	_, ok := textExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// IsReadableSize reports whether a file of size bytes may have its content
// read. The 1 MiB boundary itself is readable.
func IsReadableSize(size int64) bool {
	return size >= 0 && size <= MaxReadableSize
}

// Extension returns the lowercase extension of name without the dot, or ""
// when name has none. Dotfiles such as ".bashrc" have no extension.
func Extension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// Meta is the stat-derived metadata of one entry.
type Meta struct {
	Path     string
	Name     string
	Size     int64
	Modified time.Time
	Created  time.Time
	IsDir    bool
}

// IsText reports whether m is text-eligible: a regular entry whose
// extension is on the allow-list.
func (m Meta) IsText() bool {
	return !m.IsDir && IsTextExtension(Extension(m.Name))
}

// ShouldReadContent reports whether the caller should read m's content
// under the given ceiling. A non-positive ceiling means MaxReadableSize, and
// no ceiling lifts MaxReadableSize.
func (m Meta) ShouldReadContent(ceiling int64) bool {
	if ceiling <= 0 || ceiling > MaxReadableSize {
		ceiling = MaxReadableSize
	}
	return m.IsText() && IsReadableSize(m.Size) && m.Size <= ceiling
}

// Record is one indexable document. It is immutable once built.
type Record struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Modified   time.Time `json:"modified"`
	Created    time.Time `json:"created"`
	Extension  string    `json:"extension"`
	IsTextFile bool      `json:"isTextFile"`
	IsDir      bool      `json:"isDir"`
	Content    *string   `json:"content"`
	Trigrams   []string  `json:"trigrams"`
}

// BuildRecord assembles the Record for m. content is kept only when m is
// text-eligible; pass nil when it was not read or the read failed.
func BuildRecord(m Meta, content *string) Record {
	name := m.Name
	if name == "" {
		name = filepath.Base(m.Path)
	}

	isText := m.IsText()
	if !isText {
		content = nil
	}

	grams := [][]string{Trigrams(m.Path), Trigrams(name)}
	if content != nil {
		grams = append(grams, Trigrams(*content))
	}

	return Record{
		Path:       m.Path,
		Name:       name,
		Size:       m.Size,
		Modified:   m.Modified,
		Created:    m.Created,
		Extension:  Extension(name),
		IsTextFile: isText,
		IsDir:      m.IsDir,
		Content:    content,
		Trigrams:   Union(grams...),
	}
}
