//go:build darwin || freebsd

package fs

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"

	"fsinv/internal/inv"
)

// ExtractStatData re-stats path to read device, inode, owner and the atime,
// ctime and birth time. A symlink FileInfo came from Lstat, so the link
// itself is read.
func (m *OSFilesystemManager) ExtractStatData(path string, info fs.FileInfo) (*inv.StatData, error) {
	var st unix.Stat_t
	var err error
	if info.Mode()&fs.ModeSymlink != 0 {
		err = unix.Lstat(path, &st)
	} else {
		err = unix.Stat(path, &st)
	}
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}

	return &inv.StatData{
		Dev:        uint64(st.Dev),
		Ino:        uint64(st.Ino),
		UID:        int64(st.Uid),
		GID:        int64(st.Gid),
		AccessedAt: time.Unix(st.Atim.Unix()),
		ChangedAt:  time.Unix(st.Ctim.Unix()),
		BornAt:     time.Unix(st.Btim.Unix()),
	}, nil
}
