package inv

import "sort"

// ChangeKind classifies a difference between two inventories.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Change is one path that differs between two inventories.
type Change struct {
	Kind ChangeKind
	Path string
	Old  *Entry // nil for ChangeAdded
	New  *Entry // nil for ChangeRemoved
	// Fields lists what changed for ChangeModified: "type", "size",
	// "modified" and "hash".
	Fields []string
}

// DiffResult holds the differences between two inventories, sorted by path.
type DiffResult struct {
	Changes   []Change
	Unchanged int
}

// Empty reports whether the inventories matched.
func (d *DiffResult) Empty() bool {
	return len(d.Changes) == 0
}

// Count returns the number of changes of the given kind.
func (d *DiffResult) Count(kind ChangeKind) int {
	n := 0
	for _, c := range d.Changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Diff compares two inventories by path. Entry ids are ignored, so two scans
// of an unchanged tree always compare equal. Access times are ignored because
// reading a file to hash it updates them. Hashes are compared only when both
// runs used the same algorithm and both digests succeeded.
func Diff(old, new *Inventory) *DiffResult {
	oldByPath := make(map[string]*Entry, len(old.Entries))
	for _, e := range old.Entries {
		oldByPath[e.Path] = e
	}

	compareHash := old.HashEnabled() && old.Algorithm == new.Algorithm

	result := &DiffResult{}
	seen := make(map[string]bool, len(new.Entries))
	for _, n := range new.Entries {
		seen[n.Path] = true
		o, ok := oldByPath[n.Path]
		if !ok {
			result.Changes = append(result.Changes, Change{Kind: ChangeAdded, Path: n.Path, New: n})
			continue
		}
		fields := changedFields(o, n, compareHash)
		if len(fields) == 0 {
			result.Unchanged++
			continue
		}
		result.Changes = append(result.Changes, Change{Kind: ChangeModified, Path: n.Path, Old: o, New: n, Fields: fields})
	}
	for _, o := range old.Entries {
		if !seen[o.Path] {
			result.Changes = append(result.Changes, Change{Kind: ChangeRemoved, Path: o.Path, Old: o})
		}
	}

	sort.Slice(result.Changes, func(i, j int) bool {
		return result.Changes[i].Path < result.Changes[j].Path
	})
	return result
}

func changedFields(o, n *Entry, compareHash bool) []string {
	var fields []string
	if o.IsDir != n.IsDir {
		return []string{"type"}
	}
	if !n.IsDir && o.Size != n.Size {
		fields = append(fields, "size")
	}
	if !o.ModifiedAt.Equal(n.ModifiedAt) {
		fields = append(fields, "modified")
	}
	if compareHash && !n.IsDir && isDigest(o.Hash) && isDigest(n.Hash) && o.Hash != n.Hash {
		fields = append(fields, "hash")
	}
	return fields
}

func isDigest(h string) bool {
	return h != "" && h != HashAccessDenied && h != HashError
}
