//go:build linux

package fs

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"

	"fsinv/internal/inv"
)

const statxMask = unix.STATX_BASIC_STATS | unix.STATX_BTIME

// ExtractStatData reads device, inode, owner and the atime, ctime and birth
// time of path with statx(2). info decides whether a trailing symlink is
// followed: a symlink FileInfo came from Lstat, so the link itself is read.
func (m *OSFilesystemManager) ExtractStatData(path string, info fs.FileInfo) (*inv.StatData, error) {
	flags := unix.AT_STATX_SYNC_AS_STAT
	if info.Mode()&fs.ModeSymlink != 0 {
		flags |= unix.AT_SYMLINK_NOFOLLOW
	}

	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, flags, statxMask, &stx); err != nil {
		return nil, &fs.PathError{Op: "statx", Path: path, Err: err}
	}

	data := &inv.StatData{
		Dev:        unix.Mkdev(stx.Dev_major, stx.Dev_minor),
		Ino:        stx.Ino,
		UID:        int64(stx.Uid),
		GID:        int64(stx.Gid),
		AccessedAt: statxTime(stx.Atime),
		ChangedAt:  statxTime(stx.Ctime),
	}
	// Birth time is only reported by some filesystems (ext4, btrfs, xfs).
	if stx.Mask&unix.STATX_BTIME != 0 {
		data.BornAt = statxTime(stx.Btime)
	}
	return data, nil
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}
