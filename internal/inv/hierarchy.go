package inv

// ResolveParents assigns ParentID on every entry by looking up its ParentPath
// among the directory entries of the same set. Entries whose parent was not
// visited get 0. The full set must be collected before calling this, since a
// child can be recorded before its parent.
func ResolveParents(entries []*Entry) {
	dirs := make(map[string]int64, len(entries)/4+1)
	for _, e := range entries {
		if e.IsDir {
			dirs[e.Path] = e.ID
		}
	}
	for _, e := range entries {
		e.ParentID = 0
		if e.ParentPath == "" || e.ParentPath == e.Path {
			continue
		}
		if id, ok := dirs[e.ParentPath]; ok {
			e.ParentID = id
		}
	}
}
