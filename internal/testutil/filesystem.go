package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fsinv/internal/inv"
)

// MockFile represents an object in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
	// LinkTarget is set for symlinks.
	LinkTarget string
	// Stat data - set once when the object is created
	Ino   uint64
	Atime time.Time
	Ctime time.Time
}

type readDirFailure struct {
	err  error
	keep int
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Objects live under absolute paths; adding a path creates its missing
// parent directories. Failures can be injected per path.
type MockFilesystemManager struct {
	mu      sync.RWMutex
	files   map[string]*MockFile
	nextIno uint64
	now     time.Time

	statErrs    map[string]error
	openErrs    map[string]error
	readDirErrs map[string]readDirFailure
	opens       map[string]int
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:       make(map[string]*MockFile),
		now:         time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		statErrs:    make(map[string]error),
		openErrs:    make(map[string]error),
		readDirErrs: make(map[string]readDirFailure),
		opens:       make(map[string]int),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(path, &MockFile{Content: content, Permissions: 0644})
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(path, &MockFile{Permissions: 0755 | fs.ModeDir, IsDirectory: true})
}

// AddSymlink adds a symlink at path pointing to target. Relative targets are
// resolved against the link's directory.
func (m *MockFilesystemManager) AddSymlink(path, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(path, &MockFile{Permissions: 0777 | fs.ModeSymlink, LinkTarget: target})
}

// AddSpecial adds a non-regular object such as a FIFO (fs.ModeNamedPipe),
// socket or device. Opening one fails, as a blocking open would on a real
// filesystem.
func (m *MockFilesystemManager) AddSpecial(path string, typ fs.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(path, &MockFile{Permissions: 0644 | typ.Type()})
}

// OpenCount returns how many times Open was called for path.
func (m *MockFilesystemManager) OpenCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[filepath.Clean(path)]
}

// SetModTime overrides the modification time of an existing object.
func (m *MockFilesystemManager) SetModTime(path string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[filepath.Clean(path)]; ok {
		f.ModTime = t
	}
}

// WriteFile replaces the content of an existing file.
func (m *MockFilesystemManager) WriteFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[filepath.Clean(path)]; ok {
		f.Content = content
	}
}

// Remove deletes path and everything beneath it.
func (m *MockFilesystemManager) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	for p := range m.files {
		if p == path || isBeneath(p, path) {
			delete(m.files, p)
		}
	}
}

// FailStat makes Lstat and Stat of path fail with err.
func (m *MockFilesystemManager) FailStat(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statErrs[filepath.Clean(path)] = err
}

// FailOpen makes Open of path fail with err.
func (m *MockFilesystemManager) FailOpen(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs[filepath.Clean(path)] = err
}

// FailReadDir makes ReadDir of path fail with err after returning the first
// keep entries.
func (m *MockFilesystemManager) FailReadDir(path string, err error, keep int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDirErrs[filepath.Clean(path)] = readDirFailure{err: err, keep: keep}
}

func (m *MockFilesystemManager) add(path string, f *MockFile) {
	path = filepath.Clean(path)
	if parent := filepath.Dir(path); parent != path {
		if _, ok := m.files[parent]; !ok {
			m.add(parent, &MockFile{Permissions: 0755 | fs.ModeDir, IsDirectory: true})
		}
	}
	m.nextIno++
	f.Ino = m.nextIno
	f.ModTime = m.now
	f.Atime = m.now
	f.Ctime = m.now
	m.files[path] = f
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*inv.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	info, err := m.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absPath)
	}
	return inv.NewPath(absPath, true, info), nil
}

func (m *MockFilesystemManager) Lstat(path string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = filepath.Clean(path)
	if err, ok := m.statErrs[path]; ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	f, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	return newMockFileInfo(filepath.Base(path), f), nil
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = filepath.Clean(path)
	if err, ok := m.statErrs[path]; ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	f, err := m.follow(path)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	return newMockFileInfo(filepath.Base(path), f), nil
}

func (m *MockFilesystemManager) ReadDir(path string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = filepath.Clean(path)

	listed, dir, err := m.followPath(path)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: err}
	}
	if !dir.IsDirectory {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fmt.Errorf("not a directory")}
	}

	var names []string
	for p := range m.files {
		if p != listed && filepath.Dir(p) == listed {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)

	entries := make([]fs.DirEntry, 0, len(names))
	for _, name := range names {
		f := m.files[filepath.Join(listed, name)]
		entries = append(entries, fs.FileInfoToDirEntry(newMockFileInfo(name, f)))
	}

	if fail, ok := m.readDirErrs[path]; ok {
		if fail.keep < len(entries) {
			entries = entries[:fail.keep]
		}
		return entries, &fs.PathError{Op: "readdir", Path: path, Err: fail.err}
	}
	return entries, nil
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.opens[path]++
	if err, ok := m.openErrs[path]; ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	f, err := m.follow(path)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	if f.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path)
	}
	if f.Permissions.Type() != 0 {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fmt.Errorf("special file would block")}
	}
	return io.NopCloser(bytes.NewReader(f.Content)), nil
}

func (m *MockFilesystemManager) ExtractStatData(path string, info fs.FileInfo) (*inv.StatData, error) {
	// Get the MockFile from Sys() to return consistent stat data
	f, ok := info.Sys().(*MockFile)
	if !ok {
		return nil, fmt.Errorf("cannot extract stat data: expected *MockFile, got %T", info.Sys())
	}

	return &inv.StatData{
		Dev:        1,
		Ino:        f.Ino,
		UID:        1000,
		GID:        1000,
		AccessedAt: f.Atime,
		ChangedAt:  f.Ctime,
	}, nil
}

// follow resolves symlinks until a non-link object is reached.
func (m *MockFilesystemManager) follow(path string) (*MockFile, error) {
	_, f, err := m.followPath(path)
	return f, err
}

func (m *MockFilesystemManager) followPath(path string) (string, *MockFile, error) {
	for range 40 {
		f, ok := m.files[path]
		if !ok {
			return "", nil, fs.ErrNotExist
		}
		if f.LinkTarget == "" {
			return path, f, nil
		}
		path = m.resolveLink(path, f.LinkTarget)
	}
	return "", nil, fmt.Errorf("too many levels of symbolic links")
}

func (m *MockFilesystemManager) resolveLink(path, target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(filepath.Dir(path), target)
}

func isBeneath(p, dir string) bool {
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name     string
	size     int64
	mode     fs.FileMode
	modTime  time.Time
	mockFile *MockFile // reference to get stat data
}

func newMockFileInfo(name string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:     name,
		size:     int64(len(f.Content)),
		mode:     f.Permissions,
		modTime:  f.ModTime,
		mockFile: f,
	}
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.mode.IsDir() }
func (m *mockFileInfo) Sys() any           { return m.mockFile }

// Compile-time check
var _ inv.FilesystemManager = (*MockFilesystemManager)(nil)
