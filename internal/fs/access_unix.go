//go:build unix

package fs

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"sync"
	"syscall"

	"fsinv/internal/inv"
)

// OSAccessReader reads POSIX ownership and permission bits. User and group
// names are looked up once per id and cached.
type OSAccessReader struct {
	users  sync.Map // uid string -> name
	groups sync.Map // gid string -> name
}

// NewOSAccessReader creates an OSAccessReader.
func NewOSAccessReader() *OSAccessReader {
	return &OSAccessReader{}
}

// ReadAccess returns the owner, group and mode of path without following a
// trailing symlink.
func (r *OSAccessReader) ReadAccess(path string) (*inv.AccessRecord, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("reading ownership: %w", err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, fmt.Errorf("reading ownership: expected *syscall.Stat_t, got %T", info.Sys())
	}

	uid := strconv.FormatUint(uint64(st.Uid), 10)
	gid := strconv.FormatUint(uint64(st.Gid), 10)
	return &inv.AccessRecord{
		Path:  path,
		Owner: r.lookup(&r.users, uid, lookupUser),
		Group: r.lookup(&r.groups, gid, lookupGroup),
		UID:   int64(st.Uid),
		GID:   int64(st.Gid),
		Mode:  info.Mode().String(),
	}, nil
}

// lookup resolves an id to a name through cache. Unknown ids map to
// themselves, matching ls(1).
func (r *OSAccessReader) lookup(cache *sync.Map, id string, resolve func(string) (string, error)) string {
	if name, ok := cache.Load(id); ok {
		return name.(string)
	}
	name, err := resolve(id)
	if err != nil {
		name = id
	}
	cache.Store(id, name)
	return name
}

func lookupUser(uid string) (string, error) {
	u, err := user.LookupId(uid)
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

func lookupGroup(gid string) (string, error) {
	g, err := user.LookupGroupId(gid)
	if err != nil {
		return "", err
	}
	return g.Name, nil
}

var _ inv.AccessReader = (*OSAccessReader)(nil)
