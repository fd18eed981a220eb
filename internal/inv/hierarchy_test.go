package inv_test

import (
	"io/fs"
	"sync"
	"testing"
	"time"

	"fsinv/internal/inv"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("time.Parse(%q) error = %v", s, err)
	}
	return ts
}

func TestResolveParents(t *testing.T) {
	t.Run("child recorded before its parent", func(t *testing.T) {
		entries := []*inv.Entry{
			{ID: 1, Path: "/r", ParentPath: "/", IsDir: true},
			{ID: 2, Path: "/r/d/f", ParentPath: "/r/d"},
			{ID: 3, Path: "/r/d", ParentPath: "/r", IsDir: true},
		}
		inv.ResolveParents(entries)

		want := []int64{0, 3, 1}
		for i, e := range entries {
			if e.ParentID != want[i] {
				t.Errorf("%s: ParentID = %d, want %d", e.Path, e.ParentID, want[i])
			}
		}
	})

	t.Run("file with a directory's path prefix is not a parent", func(t *testing.T) {
		entries := []*inv.Entry{
			{ID: 1, Path: "/r", IsDir: true},
			{ID: 2, Path: "/r/x", ParentPath: "/r"},
			{ID: 3, Path: "/r/x/y", ParentPath: "/r/x"},
		}
		inv.ResolveParents(entries)
		if entries[2].ParentID != 0 {
			t.Errorf("ParentID = %d, want 0 for a non-directory parent", entries[2].ParentID)
		}
	})

	t.Run("filesystem root has no parent", func(t *testing.T) {
		entries := []*inv.Entry{{ID: 1, Path: "/", ParentPath: "", IsDir: true}}
		inv.ResolveParents(entries)
		if entries[0].ParentID != 0 {
			t.Errorf("ParentID = %d, want 0", entries[0].ParentID)
		}
	})
}

func TestIDAllocator(t *testing.T) {
	var ids inv.IDAllocator
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				id := ids.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ids.Count() != 800 || len(seen) != 800 {
		t.Fatalf("allocated %d ids, %d distinct, want 800", ids.Count(), len(seen))
	}
	for id := int64(1); id <= 800; id++ {
		if !seen[id] {
			t.Fatalf("id %d missing from dense range", id)
		}
	}
}

func TestAssemble(t *testing.T) {
	entries := []*inv.Entry{
		{Path: "/r", IsDir: true, ParentID: -1, Hash: "stale"},
		{Path: "/r/a"},
		{Path: "/r/b"},
		{Path: "/r/link", Mode: fs.ModeSymlink, Hash: "stale"},
	}
	hashes := map[string]string{"/r/a": "abc", "/r/b": inv.HashError, "/r": "nope", "/r/link": "target"}

	got := inv.Assemble(entries, inv.HashSHA256, hashes)
	if got[0].ParentID != 0 || got[0].Hash != "" {
		t.Errorf("directory = %+v, want parent 0 and no hash", got[0])
	}
	if got[1].Hash != "abc" || got[2].Hash != inv.HashError {
		t.Errorf("file hashes = %q, %q", got[1].Hash, got[2].Hash)
	}
	if got[3].Hash != "" {
		t.Errorf("symlink hash = %q, want empty", got[3].Hash)
	}

	inv.Assemble(entries, inv.HashNone, hashes)
	for _, e := range entries {
		if e.Hash != "" {
			t.Errorf("%s: hash %q with hashing disabled", e.Path, e.Hash)
		}
	}
}

func TestErrorSink(t *testing.T) {
	sink := inv.NewErrorSink()
	sink.Add(inv.CategoryEnumeration, "/a", nil)
	records := sink.Records()
	sink.Add(inv.CategoryHash, "/b", nil)

	if len(records) != 1 || sink.Len() != 2 {
		t.Errorf("Records() should be a snapshot: got %d, Len() = %d", len(records), sink.Len())
	}
}
