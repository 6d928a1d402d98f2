package exclude

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExcluded_CommonRules(t *testing.T) {
	p := ForOS("linux")

	tests := []struct {
		path     string
		excluded bool
	}{
		{"/home/u/proj/.git", true},
		{"/home/u/proj/.git/config", true},
		{"/home/u/proj/node_modules/react/index.js", true},
		{"/home/u/proj/src/__pycache__/m.pyc", true},
		{"/mnt/disk/$Recycle.Bin/S-1-5", true},
		{"/home/u/proj/.github/workflows/ci.yml", false},
		{"/home/u/proj/my.gitignore", false},
		{"/home/u/proj/node_modules_backup/x", false},
		{"/home/u/proj/src/main.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.excluded, p.IsExcluded(tt.path))
		})
	}
}

func TestIsExcluded_LinuxSystemAreasAreAnchored(t *testing.T) {
	p := ForOS("linux")

	assert.True(t, p.IsExcluded("/usr/lib/libc.so"))
	assert.True(t, p.IsExcluded("/proc"))
	assert.True(t, p.IsExcluded("/etc/passwd"))
	assert.False(t, p.IsExcluded("/home/u/usr/notes.txt"), "system prefix only matches at the root")
	assert.False(t, p.IsExcluded("/home/u/etc"))
}

func TestIsExcluded_WindowsNormalization(t *testing.T) {
	p := ForOS("windows")

	tests := []struct {
		path     string
		excluded bool
	}{
		{`C:\Windows\System32\drivers`, true},
		{`c:\windows`, true},
		{`D:\Program Files (x86)\Steam`, true},
		{`C:\ProgramData\x`, true},
		{`C:\Users\u\Projects\.GIT\HEAD`, true},
		{`C:\Users\u\Windows Stuff\a.txt`, false},
		{`C:\Users\u\Documents\report.docx`, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.excluded, p.IsExcluded(tt.path))
		})
	}
}

func TestIsExcluded_DarwinIsCaseInsensitive(t *testing.T) {
	p := ForOS("darwin")

	assert.True(t, p.IsExcluded("/System/Library/CoreServices"))
	assert.True(t, p.IsExcluded("/system/library"))
	assert.True(t, p.IsExcluded("/Users/u/Code/NODE_MODULES/x"))
	assert.False(t, p.IsExcluded("/var/folders/xy/T/test123/a.txt"))
	assert.False(t, p.IsExcluded("/Users/u/Library Notes/a.md"))
}

func TestIsExcluded_LinuxIsCaseSensitive(t *testing.T) {
	p := ForOS("linux")

	assert.False(t, p.IsExcluded("/home/u/NODE_MODULES/x"))
	assert.True(t, p.IsExcluded("/home/u/node_modules/x"))
}

func TestIsExcluded_Deterministic(t *testing.T) {
	p := ForOS("linux").With("cache")
	paths := []string{"/a/.git/b", "/a/b", "/usr/x", "/home/cache/y", ""}

	for _, path := range paths {
		first := p.IsExcluded(path)
		for i := 0; i < 10; i++ {
			require.Equal(t, first, p.IsExcluded(path), path)
		}
	}
}

func TestWith_IsMonotonic(t *testing.T) {
	// Given: a base policy and a corpus of paths
	base := ForOS("linux")
	var paths []string
	for _, dir := range []string{"/home/u", "/usr", "/srv/data", "/opt/tools", "/home/u/.git", "/tmp/build"} {
		for _, leaf := range []string{"a.txt", "node_modules/x.js", "build/out.o", "Cache/c", "src/main.go"} {
			paths = append(paths, fmt.Sprintf("%s/%s", dir, leaf))
		}
	}

	// When: extending the policy step by step
	extended := base
	for _, extra := range []string{"/build/", "Cache", "/opt/", "x"} {
		next := extended.With(extra)

		// Then: nothing excluded before becomes included
		for _, path := range paths {
			if extended.IsExcluded(path) {
				assert.True(t, next.IsExcluded(path), "adding %q un-excluded %s", extra, path)
			}
		}
		extended = next
	}

	assert.True(t, extended.IsExcluded("/tmp/build/out.o"))
	assert.Len(t, base.Rules(), len(ForOS("linux").Rules()), "With must not mutate the receiver")
}

func TestWith_IgnoresEmptyAndDuplicates(t *testing.T) {
	p := ForOS("linux")
	n := len(p.Rules())

	q := p.With("", "/.git/", "tmp").With("tmp")

	assert.Len(t, q.Rules(), n+1)
}

func TestForRoot_DropsAnchoredRulesMatchingRoot(t *testing.T) {
	// Given: a root inside an excluded system area
	p := ForOS("linux").ForRoot("/usr/src/project")

	// Then: the chosen tree is in scope but other rules still apply
	assert.False(t, p.IsExcluded("/usr/src/project/main.c"))
	assert.True(t, p.IsExcluded("/usr/src/project/.git/HEAD"))
	assert.True(t, p.IsExcluded("/etc/hosts"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/users/u/a/", ForOS("windows").Normalize(`C:\Users\U\A`))
	assert.Equal(t, "/home/U/a/", ForOS("linux").Normalize("/home/U/a"))
	assert.Equal(t, "/rel/path/", ForOS("linux").Normalize("rel/path/"))
}

func TestDefault_UsesRuntimeOS(t *testing.T) {
	assert.NotEmpty(t, Default().Rules())
}
