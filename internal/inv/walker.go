package inv

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Excluder decides whether a path under the scan root is skipped.
// relativePath is relative to the root and uses filepath separators.
type Excluder interface {
	Match(relativePath string) bool
}

// WalkOptions configures a Walker.
type WalkOptions struct {
	// IncludeFiles selects files-and-directories mode. When false only
	// directories are recorded and files are never stat'ed.
	IncludeFiles bool

	// FollowSymlinks descends into symlinked directories. Otherwise a
	// symlink is recorded as a non-directory entry.
	FollowSymlinks bool

	// Workers bounds the number of directories being read at once.
	// Zero means runtime.NumCPU().
	Workers int

	// Exclude skips matching paths without recording an error. May be nil.
	Exclude Excluder
}

// Walker enumerates a directory tree into unnumbered entries.
type Walker struct {
	fsmgr    FilesystemManager
	opts     WalkOptions
	sink     *ErrorSink
	logger   Logger
	progress ProgressFunc
}

// NewWalker creates a Walker. Failures are recorded in sink; progress may be nil.
func NewWalker(fsmgr FilesystemManager, opts WalkOptions, sink *ErrorSink, logger Logger, progress ProgressFunc) *Walker {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Walker{
		fsmgr:    fsmgr,
		opts:     opts,
		sink:     sink,
		logger:   logger,
		progress: progress,
	}
}

// dirKey identifies a directory for cycle detection.
type dirKey struct {
	dev, ino uint64
	path     string
}

// walkState is the shared state of a single Walk call.
type walkState struct {
	*Walker
	root string
	sem  *semaphore.Weighted
	wg   sync.WaitGroup

	mu       sync.Mutex
	children map[string][]*Entry
	visited  map[dirKey]string

	listed     atomic.Int64
	discovered atomic.Int64
}

// Walk enumerates root and all its descendants. The returned entries are in
// breadth-first order with the root first; within a directory children keep
// the order the filesystem listed them in. IDs and parent IDs are not set.
//
// Directories are read concurrently; the order is rebuilt afterwards so it
// does not depend on scheduling. Per-object failures go to the error sink.
// When ctx is cancelled the walk stops early and the entries collected so far
// are returned. The only error returned is a failure to stat the root itself.
func (w *Walker) Walk(ctx context.Context, root *Path) ([]*Entry, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrRootInaccessible, root.String())
	}

	s := &walkState{
		Walker:   w,
		root:     root.String(),
		sem:      semaphore.NewWeighted(int64(w.opts.Workers)),
		children: make(map[string][]*Entry),
		visited:  make(map[dirKey]string),
	}

	rootEntry, stat, err := s.newEntry(root.String(), root.ParentPath(), root.Info())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootInaccessible, err)
	}
	s.claim(root.String(), stat)

	s.discovered.Add(1)
	s.wg.Add(1)
	go s.visitDir(ctx, rootEntry)
	s.wg.Wait()

	entries := s.collect(rootEntry)
	w.logger.Debug("walk finished",
		"root", root.String(),
		"entries", len(entries),
		"directories_listed", s.listed.Load(),
	)
	return entries, nil
}

// visitDir lists one directory, records its children and schedules
// subdirectories. It holds a semaphore slot only while touching the
// filesystem, so queued subdirectories never block a running one.
func (s *walkState) visitDir(ctx context.Context, dir *Entry) {
	defer s.wg.Done()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	kids, subdirs := s.listChildren(ctx, dir)
	s.sem.Release(1)

	s.mu.Lock()
	s.children[dir.Path] = kids
	s.mu.Unlock()

	listed := s.listed.Add(1)
	discovered := s.discovered.Add(int64(len(subdirs)))
	s.progress.report(StageWalk, int(listed), int(discovered))

	for _, sub := range subdirs {
		s.wg.Add(1)
		go s.visitDir(ctx, sub)
	}
}

// listChildren reads dir and builds an entry for every child that is not
// excluded or filtered out. A listing error is recorded but the children read
// before it are kept.
func (s *walkState) listChildren(ctx context.Context, dir *Entry) (kids, subdirs []*Entry) {
	dirents, err := s.fsmgr.ReadDir(dir.Path)
	if err != nil {
		s.sink.Add(CategoryEnumeration, dir.Path, err)
		s.logger.Warn("listing directory failed", "path", dir.Path, "error", err, "partial", len(dirents))
	}

	kids = make([]*Entry, 0, len(dirents))
	for _, de := range dirents {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(dir.Path, de.Name())
		if s.excluded(path) {
			continue
		}
		e, descend := s.visitChild(path, dir.Path, de)
		if e == nil {
			continue
		}
		kids = append(kids, e)
		if descend {
			subdirs = append(subdirs, e)
		}
	}
	return kids, subdirs
}

// visitChild stats one listed name. It returns nil when the child is skipped
// or failed; descend reports whether the child is a directory to enter.
func (s *walkState) visitChild(path, parent string, de fs.DirEntry) (e *Entry, descend bool) {
	typ := de.Type()
	follow := typ&fs.ModeSymlink != 0 && s.opts.FollowSymlinks

	// Directories-only mode never stats plain files.
	if !s.opts.IncludeFiles && !typ.IsDir() && !follow {
		return nil, false
	}

	var info fs.FileInfo
	var err error
	if follow {
		info, err = s.fsmgr.Stat(path)
	} else {
		info, err = s.fsmgr.Lstat(path)
	}
	if err != nil {
		s.sink.Add(CategoryEnumeration, path, err)
		s.logger.Warn("stat failed", "path", path, "error", err)
		return nil, false
	}
	if !info.IsDir() && !s.opts.IncludeFiles {
		return nil, false
	}

	e, stat, err := s.newEntry(path, parent, info)
	if err != nil {
		s.sink.Add(CategoryEnumeration, path, err)
		s.logger.Warn("stat failed", "path", path, "error", err)
		return nil, false
	}

	if !e.IsDir {
		return e, false
	}
	if prev, ok := s.claim(path, stat); !ok {
		err := fmt.Errorf("directory cycle: same directory as %s", prev)
		s.sink.Add(CategoryEnumeration, path, err)
		s.logger.Warn("skipping directory", "path", path, "error", err)
		return nil, false
	}
	return e, true
}

// newEntry builds an unnumbered entry from stat results.
func (s *walkState) newEntry(path, parent string, info fs.FileInfo) (*Entry, *StatData, error) {
	stat, err := s.fsmgr.ExtractStatData(path, info)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting stat data: %w", err)
	}

	name := filepath.Base(path)
	e := &Entry{
		Path:       path,
		ParentPath: parent,
		Name:       name,
		IsDir:      info.IsDir(),
		Mode:       info.Mode().Type(),
		CreatedAt:  stat.CreatedAt(info.ModTime()),
		ModifiedAt: info.ModTime(),
		AccessedAt: stat.AccessedAt,
	}
	if !e.IsDir {
		e.Size = info.Size()
		e.Extension, e.BaseName = SplitName(name)
	}
	return e, stat, nil
}

// claim marks a directory as visited. It returns false and the path it was
// first seen under when the same directory was already claimed.
func (s *walkState) claim(path string, stat *StatData) (string, bool) {
	key := dirKey{dev: stat.Dev, ino: stat.Ino}
	if stat.Dev == 0 && stat.Ino == 0 {
		key.path = path
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.visited[key]; ok {
		return prev, false
	}
	s.visited[key] = path
	return "", true
}

func (s *walkState) excluded(path string) bool {
	if s.opts.Exclude == nil {
		return false
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return s.opts.Exclude.Match(rel)
}

// collect flattens the per-directory child lists breadth-first from root.
func (s *walkState) collect(root *Entry) []*Entry {
	out := []*Entry{root}
	for i := 0; i < len(out); i++ {
		if out[i].IsDir {
			out = append(out, s.children[out[i].Path]...)
		}
	}
	return out
}
