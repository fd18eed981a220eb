package inv

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm names a supported content digest. The name doubles as the
// export column header.
type HashAlgorithm string

const (
	HashNone    HashAlgorithm = ""
	HashMD5     HashAlgorithm = "MD5"
	HashSHA1    HashAlgorithm = "SHA1"
	HashSHA256  HashAlgorithm = "SHA256"
	HashSHA512  HashAlgorithm = "SHA512"
	HashBLAKE2b HashAlgorithm = "BLAKE2B"
)

// Sentinel hash values recorded when hashing was attempted and failed.
const (
	HashAccessDenied = "ACCESS_DENIED"
	HashError        = "ERROR"
)

// hashBufferSize bounds per-file memory during hashing.
const hashBufferSize = 256 * 1024

// ParseHashAlgorithm accepts algorithm names case-insensitively, with or
// without a dash ("sha-256"). "" and "none" disable hashing.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	switch norm {
	case "", "NONE":
		return HashNone, nil
	case "MD5":
		return HashMD5, nil
	case "SHA1":
		return HashSHA1, nil
	case "SHA256":
		return HashSHA256, nil
	case "SHA512":
		return HashSHA512, nil
	case "BLAKE2B", "BLAKE2B256":
		return HashBLAKE2b, nil
	default:
		return HashNone, fmt.Errorf("unknown hash algorithm: %q", s)
	}
}

// New returns a fresh hash.Hash for the algorithm.
func (a HashAlgorithm) New() (hash.Hash, error) {
	switch a {
	case HashMD5:
		return md5.New(), nil
	case HashSHA1:
		return sha1.New(), nil
	case HashSHA256:
		return sha256.New(), nil
	case HashSHA512:
		return sha512.New(), nil
	case HashBLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("hashing not supported for algorithm %q", string(a))
	}
}

// HashEngine computes file digests through a FilesystemManager.
type HashEngine struct {
	fsmgr     FilesystemManager
	algorithm HashAlgorithm
}

// NewHashEngine creates a HashEngine. algorithm must not be HashNone.
func NewHashEngine(fsmgr FilesystemManager, algorithm HashAlgorithm) (*HashEngine, error) {
	if _, err := algorithm.New(); err != nil {
		return nil, err
	}
	return &HashEngine{fsmgr: fsmgr, algorithm: algorithm}, nil
}

// Algorithm returns the configured algorithm.
func (h *HashEngine) Algorithm() HashAlgorithm {
	return h.algorithm
}

// HashFile streams the file at path through the digest and returns it as
// lowercase hex. Reads stop early when ctx is done.
func (h *HashEngine) HashFile(ctx context.Context, path string) (string, error) {
	digest, err := h.algorithm.New()
	if err != nil {
		return "", err
	}

	f, err := h.fsmgr.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(digest, &ctxReader{ctx: ctx, r: f}, buf); err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// HashSentinel maps a hashing failure to the value stored on the entry.
func HashSentinel(err error) string {
	if errors.Is(err, fs.ErrPermission) {
		return HashAccessDenied
	}
	return HashError
}

// ctxReader fails reads once its context is done, so a cancelled run does not
// wait for large files to finish hashing.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
