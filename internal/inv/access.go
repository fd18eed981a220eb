package inv

// AccessRecord is the ownership and permission data of one entry. It joins
// to the inventory by Path only.
type AccessRecord struct {
	Path  string
	Owner string
	Group string
	UID   int64
	GID   int64
	// Mode is the permission string, e.g. "drwxr-x---".
	Mode string
}

// AccessReader reads ownership and permissions for a single path.
type AccessReader interface {
	ReadAccess(path string) (*AccessRecord, error)
}
