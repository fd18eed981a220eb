//go:build !linux && !darwin && !freebsd

package fs

import (
	"hash/fnv"
	"io/fs"
	"path/filepath"

	"fsinv/internal/inv"
)

// ExtractStatData is the portable fallback. Only the modification time is
// known, so it stands in for the other timestamps. The device is left zero
// and the inode is derived from the fully resolved path, which is enough to
// detect symlink cycles.
func (m *OSFilesystemManager) ExtractStatData(path string, info fs.FileInfo) (*inv.StatData, error) {
	data := &inv.StatData{
		AccessedAt: info.ModTime(),
		ChangedAt:  info.ModTime(),
	}
	if info.IsDir() {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil, err
		}
		h := fnv.New64a()
		h.Write([]byte(real))
		data.Ino = h.Sum64()
	}
	return data, nil
}
