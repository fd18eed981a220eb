package vault

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"fsinv/internal/inv"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It is useful for testing and is safe for concurrent use.
type MemoryVault struct {
	name    string
	reports map[string][]byte // "runID/name" -> report
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		reports: make(map[string][]byte),
	}
}

func (m *MemoryVault) Name() string { return m.name }

// PutReport stores a report, replacing any earlier one with the same key.
func (m *MemoryVault) PutReport(runID, name string, r io.Reader, size int64) error {
	if err := checkReportKey(runID, name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[runID+"/"+name] = data
	return nil
}

// GetReport writes a stored report to w.
func (m *MemoryVault) GetReport(runID, name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.reports[runID+"/"+name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s/%s", inv.ErrReportNotFound, runID, name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Keys lists the stored "runID/name" keys in order.
func (m *MemoryVault) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.reports))
	for k := range m.reports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements inv.Vault interface
var _ inv.Vault = (*MemoryVault)(nil)
