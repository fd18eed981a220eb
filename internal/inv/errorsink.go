package inv

import "sync"

// ErrorSink accumulates recoverable failures for one run.
// It is append-only and safe for concurrent use.
type ErrorSink struct {
	mu      sync.Mutex
	records []*ErrorRecord
}

// NewErrorSink creates an empty ErrorSink.
func NewErrorSink() *ErrorSink {
	return &ErrorSink{}
}

// Add records a failure at path.
func (s *ErrorSink) Add(category Category, path string, err error) {
	rec := &ErrorRecord{Path: path, Category: category}
	if err != nil {
		rec.Message = err.Error()
	}
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
}

// Len returns the number of records so far.
func (s *ErrorSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of the records in arrival order.
func (s *ErrorSink) Records() []*ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ErrorRecord, len(s.records))
	copy(out, s.records)
	return out
}
