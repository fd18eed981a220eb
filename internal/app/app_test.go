package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fsinv/internal/config"
	"fsinv/internal/export"
	"fsinv/internal/inv"
)

// newTestApp wires an app against an in-memory run store, a memory vault and
// the test encryptor.
func newTestApp(t *testing.T, mutate func(*config.Config)) *InvApp {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.Encryption = config.EncryptionConfig{Type: "test"}
	cfg.Vaults = []config.VaultConfig{{Type: "memory", Name: "mem"}}
	cfg.Scan.Workers = 2
	cfg.Scan.HashWorkers = 2
	if mutate != nil {
		mutate(cfg)
	}

	a, err := NewInvApp(cfg, "test", Options{Quiet: true})
	if err != nil {
		t.Fatalf("NewInvApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// makeTree creates root/a.txt, root/sub/b.txt and root/sub/deeper/.
func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub", "deeper"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestInvApp_Scan(t *testing.T) {
	t.Run("saves exports and uploads", func(t *testing.T) {
		a := newTestApp(t, func(c *config.Config) { c.Scan.Algorithm = "sha256" })
		root := makeTree(t)
		out := filepath.Join(t.TempDir(), "scan.csv")

		res, err := a.Scan(context.Background(), ScanRequest{
			Path:   root,
			Output: out,
			Format: export.FormatCSV,
			Save:   true,
			Upload: true,
		})
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}

		dirs, files := res.Inventory.Counts()
		if dirs != 3 || files != 2 {
			t.Errorf("Counts() = %d dirs, %d files; want 3, 2", dirs, files)
		}
		if res.Inventory.Status != inv.StatusComplete {
			t.Errorf("Status = %s, want complete", res.Inventory.Status)
		}
		if len(res.Written) != 2 {
			t.Fatalf("Written = %v, want entry and error reports", res.Written)
		}
		if res.Uploaded != 2 {
			t.Errorf("Uploaded = %d, want 2", res.Uploaded)
		}

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("reading export: %v", err)
		}
		if !strings.Contains(string(data), "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824") {
			t.Errorf("export missing sha256 of a.txt:\n%s", data)
		}

		runs, err := a.History(10)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(runs) != 1 || runs[0].ID != res.Inventory.RunID {
			t.Errorf("History() = %v, want the scanned run", runs)
		}
	})

	t.Run("no save skips the run store", func(t *testing.T) {
		a := newTestApp(t, nil)
		if _, err := a.Scan(context.Background(), ScanRequest{Path: makeTree(t)}); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		runs, err := a.History(0)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("History() returned %d runs, want 0", len(runs))
		}
	})

	t.Run("exclusions from config", func(t *testing.T) {
		a := newTestApp(t, func(c *config.Config) { c.Scan.Exclude = []string{"sub"} })
		res, err := a.Scan(context.Background(), ScanRequest{Path: makeTree(t)})
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		for _, e := range res.Inventory.Entries {
			if name := filepath.Base(e.Path); name == "sub" || name == "b.txt" {
				t.Errorf("excluded path %s inventoried", e.Path)
			}
		}
	})

	t.Run("root not a directory", func(t *testing.T) {
		a := newTestApp(t, nil)
		file := filepath.Join(makeTree(t), "a.txt")
		_, err := a.Scan(context.Background(), ScanRequest{Path: file})
		if !errors.Is(err, inv.ErrRootInaccessible) {
			t.Errorf("Scan() error = %v, want ErrRootInaccessible", err)
		}
	})

	t.Run("unwritable output fails before scanning", func(t *testing.T) {
		a := newTestApp(t, nil)
		out := filepath.Join(t.TempDir(), "missing", "scan.csv")
		res, err := a.Scan(context.Background(), ScanRequest{Path: makeTree(t), Output: out, Save: true})
		if !errors.Is(err, inv.ErrOutputUnwritable) {
			t.Errorf("Scan() error = %v, want ErrOutputUnwritable", err)
		}
		if res != nil {
			t.Errorf("Scan() result = %v, want nil", res)
		}
		runs, _ := a.History(0)
		if len(runs) != 0 {
			t.Errorf("run saved despite fatal output error")
		}
	})

	t.Run("cancelled scan writes nothing", func(t *testing.T) {
		a := newTestApp(t, nil)
		out := filepath.Join(t.TempDir(), "scan.csv")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := a.Scan(ctx, ScanRequest{Path: makeTree(t), Output: out, Save: true})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Scan() error = %v, want context.Canceled", err)
		}
		if res == nil || res.Inventory == nil || res.Inventory.Status != inv.StatusCancelled {
			t.Fatalf("Scan() result = %+v, want cancelled inventory", res)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Errorf("output written for cancelled run")
		}
		runs, _ := a.History(0)
		if len(runs) != 0 {
			t.Errorf("cancelled run saved")
		}
	})

	t.Run("upload requires output", func(t *testing.T) {
		a := newTestApp(t, nil)
		if _, err := a.Scan(context.Background(), ScanRequest{Path: makeTree(t), Upload: true}); err == nil {
			t.Error("Scan() error = nil, want error")
		}
	})
}

func TestInvApp_ShowExportDiff(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Scan.Algorithm = "md5" })
	root := makeTree(t)

	first, err := a.Scan(context.Background(), ScanRequest{Path: root, Save: true})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello, changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "new.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := a.Scan(context.Background(), ScanRequest{Path: root, Save: true})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	shown, err := a.Show(first.Inventory.RunID[:8])
	if err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if len(shown.Entries) != len(first.Inventory.Entries) {
		t.Errorf("Show() entries = %d, want %d", len(shown.Entries), len(first.Inventory.Entries))
	}

	out := filepath.Join(t.TempDir(), "old.json")
	written, err := a.Export(first.Inventory.RunID, out, export.Options{Format: export.FormatJSON})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(written) != 2 || written[0] != out {
		t.Errorf("Export() = %v", written)
	}

	diff, err := a.Diff(first.Inventory.RunID, second.Inventory.RunID)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if diff.Count(inv.ChangeAdded) != 1 {
		t.Errorf("added = %d, want 1", diff.Count(inv.ChangeAdded))
	}
	if diff.Count(inv.ChangeModified) < 1 {
		t.Errorf("modified = %d, want at least 1", diff.Count(inv.ChangeModified))
	}

	if _, err := a.Show("does-not-exist"); !errors.Is(err, inv.ErrRunNotFound) {
		t.Errorf("Show() error = %v, want ErrRunNotFound", err)
	}
}

func TestInvApp_Verify(t *testing.T) {
	a := newTestApp(t, nil)
	root := makeTree(t)

	res, err := a.Scan(context.Background(), ScanRequest{Path: root, Save: true})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	diff, _, err := a.Verify(context.Background(), res.Inventory.RunID, false, nil)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !diff.Empty() {
		t.Errorf("Verify() of unchanged tree = %+v, want no changes", diff.Changes)
	}

	if err := os.Remove(filepath.Join(root, "sub", "b.txt")); err != nil {
		t.Fatal(err)
	}
	diff, _, err = a.Verify(context.Background(), res.Inventory.RunID, true, nil)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if diff.Count(inv.ChangeRemoved) != 1 {
		t.Errorf("removed = %d, want 1", diff.Count(inv.ChangeRemoved))
	}
	runs, _ := a.History(0)
	if len(runs) != 2 {
		t.Errorf("History() = %d runs, want 2 after saving verify", len(runs))
	}
}

func TestInvApp_EncryptedExportAndDecrypt(t *testing.T) {
	a := newTestApp(t, nil)
	out := filepath.Join(t.TempDir(), "scan.csv")

	res, err := a.Scan(context.Background(), ScanRequest{Path: makeTree(t), Output: out, Encrypt: true})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !strings.HasSuffix(res.Written[0], export.EncryptedSuffix) {
		t.Fatalf("Written[0] = %s, want encrypted report", res.Written[0])
	}

	plain := filepath.Join(t.TempDir(), "plain.csv")
	if err := a.Decrypt(res.Written[0], plain, "unused"); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	data, err := os.ReadFile(plain)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Path,Name,ISDIR") {
		t.Errorf("decrypted report = %q", data)
	}
}

func TestInvApp_NoDatabase(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Database = config.DatabaseConfig{Type: "none"} })

	if _, err := a.Scan(context.Background(), ScanRequest{Path: makeTree(t), Save: true}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if _, err := a.History(10); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("History() error = %v, want ErrNoDatabase", err)
	}
	if _, err := a.Show("x"); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("Show() error = %v, want ErrNoDatabase", err)
	}
}

func TestNewInvApp_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Vaults = []config.VaultConfig{{Type: "memory"}}
	if _, err := NewInvApp(cfg, "test", Options{Quiet: true}); err == nil {
		t.Error("NewInvApp() error = nil, want invalid config error")
	}
}
