package mcp

import "strings"

// mimeTypes maps lowercase file extensions (no dot) to MIME types.
var mimeTypes = map[string]string{
	// Go
	"go":  "text/x-go",
	"mod": "text/x-go.mod",
	"sum": "text/x-go.sum",

	// Scripts
	"ts":  "text/typescript",
	"tsx": "text/typescript",
	"js":  "text/javascript",
	"jsx": "text/javascript",
	"mjs": "text/javascript",
	"py":  "text/x-python",
	"rb":  "text/x-ruby",
	"rs":  "text/x-rust",
	"sh":  "application/x-sh",

	// Web
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",

	// Documents
	"md":   "text/markdown",
	"txt":  "text/plain",
	"log":  "text/plain",
	"csv":  "text/csv",
	"pdf":  "application/pdf",
	"json": "application/json",
	"yaml": "application/yaml",
	"yml":  "application/yaml",
	"toml": "application/toml",
	"xml":  "application/xml",

	// Media
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",

	// Archives
	"zip": "application/zip",
	"gz":  "application/gzip",
	"tar": "application/x-tar",
}

// MimeTypeForExtension returns the MIME type for an extension, with or
// without its leading dot. Unknown extensions map to application/octet-stream.
func MimeTypeForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
