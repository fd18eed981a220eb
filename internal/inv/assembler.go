package inv

// Assemble finalizes resolved entries for export, in place and in walker
// order. Parent IDs that were never resolved are 0. With hashing enabled,
// every regular file takes its digest (or failure sentinel) from hashes,
// keyed by path; directories, symlinks and special files never carry one. With hashing disabled all hashes are
// cleared so no output format shows the column.
func Assemble(entries []*Entry, algorithm HashAlgorithm, hashes map[string]string) []*Entry {
	for _, e := range entries {
		if e.ParentID < 0 {
			e.ParentID = 0
		}
		switch {
		case algorithm == HashNone || !e.Regular():
			e.Hash = ""
		default:
			e.Hash = hashes[e.Path]
		}
	}
	return entries
}
