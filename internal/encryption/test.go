package encryption

import (
	"bytes"
	"fmt"
	"io"

	"fsinv/internal/inv"
)

// testHeader marks output of TestEncryptor.
var testHeader = []byte("FSINVTST")

// TestEncryptor is a deterministic, reversible stand-in for tests and for
// the "test" encryption type. It prepends a fixed header on encryption and
// strips it on decryption, so encrypted reports differ from plaintext
// without any key material.
type TestEncryptor struct {
	configured bool
}

var _ inv.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor that reports itself configured.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{configured: true}
}

func (e *TestEncryptor) Setup(string) error {
	e.configured = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(string) (inv.DecryptionContext, error) {
	return testDecryptor{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

type testDecryptor struct{}

func (testDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
