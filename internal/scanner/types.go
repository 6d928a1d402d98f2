// Package scanner enumerates the entries of a directory tree.
//
// It is the enumeration capability both pipeline stages share: given a root,
// it streams absolute paths of files and (optionally) directories in a
// deterministic depth-first order, follows symlinks without looping, and
// prunes subtrees the caller rejects.
package scanner

// DefaultMaxDepth caps recursion below the root.
const DefaultMaxDepth = 256

// Entry is one enumerated filesystem entry.
type Entry struct {
	// Path is the absolute path as reached from the root. Symlinked
	// directories keep their link path, not the resolved target.
	Path string
	// IsDir is true when the entry is, or links to, a directory.
	IsDir bool
}

// Options configures enumeration.
type Options struct {
	// FollowSymlinks descends into symlinked directories. Each real
	// directory is visited at most once, so link cycles terminate.
	FollowSymlinks bool

	// IncludeDirs emits directories as entries. Directories are always
	// descended into regardless.
	IncludeDirs bool

	// MaxDepth limits recursion (0 = DefaultMaxDepth). The root's
	// children are depth 1.
	MaxDepth int

	// Skip prunes an entry and, for directories, its whole subtree.
	Skip func(path string) bool

	// Buffer sizes the result channel (0 = 256).
	Buffer int
}

// Result is sent on the Scan channel. Exactly one of Entry or Err is set;
// an Err result is always the last value before the channel closes.
type Result struct {
	Entry Entry
	Err   error
}
