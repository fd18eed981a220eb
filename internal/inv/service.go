package inv

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ScanOptions configures one inventory run.
type ScanOptions struct {
	IncludeFiles   bool
	FollowSymlinks bool
	Exclude        Excluder

	// Algorithm selects the content digest; HashNone disables hashing.
	Algorithm HashAlgorithm

	// Workers bounds concurrent directory reads; HashWorkers bounds
	// concurrent file hashing. Zero means runtime.NumCPU().
	Workers     int
	HashWorkers int

	// HashTimeout limits the time spent hashing a single file. Zero means
	// no limit.
	HashTimeout time.Duration

	// AccessControl collects ownership records for every entry.
	AccessControl bool

	Progress ProgressFunc
}

// InventoryService is the orchestration layer that runs the walk, hierarchy
// resolution, hashing and assembly for a scan.
type InventoryService struct {
	fsmgr  FilesystemManager
	access AccessReader
	logger Logger
	clock  Clock
	idgen  IDGenerator
}

// NewInventoryService creates a new InventoryService with the provided dependencies.
// access may be nil when access-control collection is never requested.
func NewInventoryService(fsmgr FilesystemManager, access AccessReader, logger Logger, clock Clock, idgen IDGenerator) *InventoryService {
	return &InventoryService{
		fsmgr:  fsmgr,
		access: access,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// Scan inventories the tree under root.
//
// Per-object failures never fail the scan; they are returned in
// Inventory.Errors and the run status becomes StatusPartial. A root that is
// not a directory fails with ErrRootInaccessible before anything is read.
// When ctx is cancelled Scan returns the consistent partial inventory
// (status StatusCancelled) together with an error wrapping ctx.Err().
func (s *InventoryService) Scan(ctx context.Context, root *Path, opts ScanOptions) (*Inventory, error) {
	var engine *HashEngine
	if opts.Algorithm != HashNone {
		var err error
		engine, err = NewHashEngine(s.fsmgr, opts.Algorithm)
		if err != nil {
			return nil, err
		}
	}
	if opts.AccessControl && s.access == nil {
		return nil, fmt.Errorf("access-control collection requested but no access reader configured")
	}

	inv := &Inventory{
		RunID:        s.idgen.New(),
		Root:         root.String(),
		IncludeFiles: opts.IncludeFiles,
		Algorithm:    opts.Algorithm,
		StartedAt:    s.clock.Now(),
	}
	s.logger.Info("scan started",
		"run", inv.RunID,
		"root", inv.Root,
		"files", opts.IncludeFiles,
		"algorithm", string(opts.Algorithm),
	)

	sink := NewErrorSink()
	walker := NewWalker(s.fsmgr, WalkOptions{
		IncludeFiles:   opts.IncludeFiles,
		FollowSymlinks: opts.FollowSymlinks,
		Workers:        opts.Workers,
		Exclude:        opts.Exclude,
	}, sink, s.logger, opts.Progress)

	entries, err := walker.Walk(ctx, root)
	if err != nil {
		return nil, err
	}

	var ids IDAllocator
	for _, e := range entries {
		e.ID = ids.Next()
	}
	ResolveParents(entries)

	var hashes map[string]string
	if engine != nil && ctx.Err() == nil {
		hashes = s.hashEntries(ctx, engine, entries, sink, opts)
	}
	inv.Entries = Assemble(entries, opts.Algorithm, hashes)

	if opts.AccessControl && ctx.Err() == nil {
		inv.Access = s.readAccess(ctx, entries, sink, opts)
	}

	inv.Errors = sink.Records()
	inv.FinishedAt = s.clock.Now()
	switch {
	case ctx.Err() != nil:
		inv.Status = StatusCancelled
	case len(inv.Errors) > 0:
		inv.Status = StatusPartial
	default:
		inv.Status = StatusComplete
	}

	dirs, files := inv.Counts()
	s.logger.Info("scan finished",
		"run", inv.RunID,
		"status", string(inv.Status),
		"directories", dirs,
		"files", files,
		"errors", len(inv.Errors),
	)

	if err := ctx.Err(); err != nil {
		return inv, fmt.Errorf("scan cancelled: %w", err)
	}
	return inv, nil
}

// hashEntries digests every regular file on a bounded pool. Other
// non-directory entries keep an empty hash. Failures store a sentinel and add
// a Hash error record; the entry is always kept.
func (s *InventoryService) hashEntries(ctx context.Context, engine *HashEngine, entries []*Entry, sink *ErrorSink, opts ScanOptions) map[string]string {
	var files []*Entry
	for _, e := range entries {
		if e.Regular() {
			files = append(files, e)
		}
	}

	var (
		mu     sync.Mutex
		hashes = make(map[string]string, len(files))
		done   atomic.Int64
	)

	var g errgroup.Group
	g.SetLimit(workerCount(opts.HashWorkers))
	for _, e := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			hctx := ctx
			if opts.HashTimeout > 0 {
				var cancel context.CancelFunc
				hctx, cancel = context.WithTimeout(ctx, opts.HashTimeout)
				defer cancel()
			}

			sum, err := engine.HashFile(hctx, e.Path)
			if err != nil {
				if ctx.Err() != nil {
					// Run cancelled; leave the file unhashed.
					return nil
				}
				sum = HashSentinel(err)
				sink.Add(CategoryHash, e.Path, err)
				s.logger.Warn("hashing failed", "path", e.Path, "error", err)
			}

			mu.Lock()
			hashes[e.Path] = sum
			mu.Unlock()

			opts.Progress.report(StageHash, int(done.Add(1)), len(files))
			return nil
		})
	}
	_ = g.Wait()
	return hashes
}

// readAccess collects ownership records in entry order. Failures add an
// AccessControl error record and leave the entry without a record.
func (s *InventoryService) readAccess(ctx context.Context, entries []*Entry, sink *ErrorSink, opts ScanOptions) []*AccessRecord {
	records := make([]*AccessRecord, len(entries))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(workerCount(opts.Workers))
	for i, e := range entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := s.access.ReadAccess(e.Path)
			if err != nil {
				sink.Add(CategoryAccessControl, e.Path, err)
				s.logger.Warn("reading access control failed", "path", e.Path, "error", err)
			} else {
				records[i] = rec
			}
			opts.Progress.report(StageAccess, int(done.Add(1)), len(entries))
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*AccessRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// Verify rescans the root of a stored inventory with the same mode and
// algorithm and compares the two. The fresh inventory is returned alongside
// the differences.
func (s *InventoryService) Verify(ctx context.Context, stored *Inventory, opts ScanOptions) (*DiffResult, *Inventory, error) {
	root, err := s.fsmgr.Resolve(stored.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRootInaccessible, err)
	}

	opts.IncludeFiles = stored.IncludeFiles
	opts.Algorithm = stored.Algorithm
	opts.AccessControl = false

	current, err := s.Scan(ctx, root, opts)
	if err != nil {
		return nil, current, err
	}
	return Diff(stored, current), current, nil
}

func workerCount(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
