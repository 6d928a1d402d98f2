// Package exclude decides which paths are out of scope for a scan.
//
// A Policy is a fixed set of substring rules evaluated against a normalized
// path. It performs no I/O and holds no mutable state, so one Policy value is
// shared by the crawl and index stages of a job.
package exclude

import (
	"runtime"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Rule is one exclusion substring. Anchored rules only match at the start of
// the normalized path; the rest match anywhere.
type Rule struct {
	Pattern  string
	Anchored bool
}

// commonRules apply on every platform: VCS metadata, dependency and cache
// directories, and the Windows volume housekeeping folders that also show up
// on mounted NTFS drives.
var commonRules = []string{
	"/.git/",
	"/.svn/",
	"/.hg/",
	"/node_modules/",
	"/__pycache__/",
	"/$Recycle.Bin/",
	"/System Volume Information/",
}

var platformRules = map[string][]string{
	"windows": {
		"/Windows/",
		"/Windows.old/",
		"/Program Files/",
		"/Program Files (x86)/",
		"/ProgramData/",
	},
	"linux": {
		"/bin/", "/boot/", "/dev/", "/etc/", "/lib/", "/lib32/", "/lib64/",
		"/lost+found/", "/proc/", "/run/", "/sbin/", "/snap/", "/sys/",
		"/usr/", "/var/",
	},
	// /var is a symlink into /private on macOS; temp dirs live under the
	// /var spelling, so only the resolved form is excluded.
	"darwin": {
		"/System/", "/Library/", "/private/", "/bin/", "/sbin/", "/usr/",
		"/dev/", "/cores/",
	},
}

// Policy is an immutable exclusion rule set.
type Policy struct {
	goos     string
	foldCase bool
	rules    []Rule
}

// Default returns the policy for the running OS.
func Default() *Policy {
	return ForOS(runtime.GOOS)
}

// ForOS returns the built-in policy for goos. Unknown platforms get the
// common rules only. Windows and macOS compare case-insensitively.
func ForOS(goos string) *Policy {
	p := &Policy{
		goos:     goos,
		foldCase: goos == "windows" || goos == "darwin",
	}
	for _, r := range commonRules {
		p.rules = append(p.rules, Rule{Pattern: p.normalizeRule(r)})
	}
	for _, r := range platformRules[goos] {
		p.rules = append(p.rules, Rule{Pattern: p.normalizeRule(r), Anchored: true})
	}
	return p
}

// With returns a copy of p extended with unanchored substrings. Adding rules
// never un-excludes a path.
func (p *Policy) With(substrings ...string) *Policy {
	out := p.clone()
	for _, s := range substrings {
		if s = p.normalizeRule(s); s != "" && !out.has(s) {
			out.rules = append(out.rules, Rule{Pattern: s})
		}
	}
	return out
}

// ForRoot returns a copy of p without the anchored rules that already match
// root, so a user who explicitly picks a directory under a system area can
// still scan it. Unanchored rules are kept.
func (p *Policy) ForRoot(root string) *Policy {
	norm := p.Normalize(root)
	out := &Policy{goos: p.goos, foldCase: p.foldCase}
	for _, r := range p.rules {
		if r.Anchored && strings.HasPrefix(norm, r.Pattern) {
			continue
		}
		out.rules = append(out.rules, r)
	}
	return out
}

// IsExcluded reports whether path or any of its ancestors is excluded.
func (p *Policy) IsExcluded(path string) bool {
	norm := p.Normalize(path)
	for _, r := range p.rules {
		if r.Anchored {
			if strings.HasPrefix(norm, r.Pattern) {
				return true
			}
		} else if strings.Contains(norm, r.Pattern) {
			return true
		}
	}
	return false
}

// Rules returns a copy of the rule set.
func (p *Policy) Rules() []Rule {
	return slices.Clone(p.rules)
}

// Normalize converts path to the form rules are matched against: forward
// slashes, no drive letter on Windows, case-folded where the host file
// system is case-insensitive, and wrapped in leading and trailing slashes so
// "/.git/" matches both ".../.git" and ".../.git/config".
func (p *Policy) Normalize(path string) string {
	s := strings.ReplaceAll(path, `\`, "/")
	if p.goos == "windows" && len(s) >= 2 && s[1] == ':' {
		s = s[2:]
	}
	if p.foldCase {
		s = cases.Fold().String(s)
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	if !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s
}

// normalizeRule applies the same separator and case handling as Normalize
// without adding slashes, so raw substrings like "cache" stay unanchored.
func (p *Policy) normalizeRule(r string) string {
	r = strings.ReplaceAll(r, `\`, "/")
	if p.foldCase {
		r = cases.Fold().String(r)
	}
	return r
}

func (p *Policy) has(pattern string) bool {
	for _, r := range p.rules {
		if !r.Anchored && r.Pattern == pattern {
			return true
		}
	}
	return false
}

func (p *Policy) clone() *Policy {
	return &Policy{goos: p.goos, foldCase: p.foldCase, rules: slices.Clone(p.rules)}
}
