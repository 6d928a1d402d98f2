//go:build linux

package scanner

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime asks statx for the btime field; older kernels and some file
// systems do not report it.
func birthTime(path string, info os.FileInfo) time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx); err == nil && stx.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return info.ModTime()
}
