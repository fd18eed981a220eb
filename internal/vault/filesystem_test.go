package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fsinv/internal/inv"
)

func TestNewFileSystemVault(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vault")

	v, err := NewFileSystemVault("offsite", root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "reports")); err != nil {
		t.Errorf("reports directory not created: %v", err)
	}
	if v.Name() != "offsite" {
		t.Errorf("Name() = %q, want offsite", v.Name())
	}
	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestFileSystemVault_PutGetReport(t *testing.T) {
	root := t.TempDir()
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	report := "Path,Name\n/data,data\n"
	if err := v.PutReport("run-1", "inventory.csv", strings.NewReader(report), int64(len(report))); err != nil {
		t.Fatalf("PutReport() error = %v", err)
	}

	stored, err := os.ReadFile(filepath.Join(root, "reports", "run-1", "inventory.csv"))
	if err != nil {
		t.Fatalf("report not at expected location: %v", err)
	}
	if string(stored) != report {
		t.Errorf("stored report = %q", stored)
	}

	var buf bytes.Buffer
	if err := v.GetReport("run-1", "inventory.csv", &buf); err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if buf.String() != report {
		t.Errorf("GetReport() = %q, want %q", buf.String(), report)
	}

	t.Run("overwrites", func(t *testing.T) {
		if err := v.PutReport("run-1", "inventory.csv", strings.NewReader("new"), 3); err != nil {
			t.Fatalf("PutReport() error = %v", err)
		}
		var buf bytes.Buffer
		if err := v.GetReport("run-1", "inventory.csv", &buf); err != nil || buf.String() != "new" {
			t.Errorf("GetReport() = %q, %v", buf.String(), err)
		}
	})

	t.Run("size mismatch leaves no file", func(t *testing.T) {
		err := v.PutReport("run-2", "short.csv", strings.NewReader("abc"), 10)
		if err == nil || !strings.Contains(err.Error(), "size mismatch") {
			t.Fatalf("PutReport() error = %v, want size mismatch", err)
		}
		entries, _ := os.ReadDir(filepath.Join(root, "reports", "run-2"))
		if len(entries) != 0 {
			t.Errorf("leftover files: %v", entries)
		}
	})

	t.Run("missing report", func(t *testing.T) {
		var buf bytes.Buffer
		err := v.GetReport("run-1", "absent.csv", &buf)
		if !errors.Is(err, inv.ErrReportNotFound) {
			t.Errorf("GetReport() error = %v, want ErrReportNotFound", err)
		}
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		for _, key := range [][2]string{{"..", "x"}, {"run-1", "../../etc"}, {"", "x"}, {"run", "a/b"}} {
			if err := v.PutReport(key[0], key[1], strings.NewReader(""), 0); err == nil {
				t.Errorf("PutReport(%q, %q) expected error", key[0], key[1])
			}
		}
	})
}
