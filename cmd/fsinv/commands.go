package main

import (
	"fmt"
	"os"

	"fsinv/internal/app"
	"fsinv/internal/config"
	"fsinv/internal/display"
	"fsinv/internal/encryption"
	"fsinv/internal/export"

	"github.com/spf13/cobra"
)

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan PATH",
	Short: "Inventory a directory tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyScanFlags(cmd, cfg); err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		format, err := exportFormat(cmd, cfg, output)
		if err != nil {
			return err
		}
		noSave, _ := cmd.Flags().GetBool("no-save")

		a, err := newApp(cfg, "scan")
		if err != nil {
			return err
		}
		defer a.Close()

		progress := display.NewProgressRenderer(os.Stderr)
		res, err := a.Scan(cmd.Context(), app.ScanRequest{
			Path:     args[0],
			Output:   output,
			Format:   format,
			Encrypt:  cfg.Export.Encrypt,
			Upload:   cfg.Export.Upload,
			Save:     !noSave,
			Progress: progress.Func(),
		})
		progress.Finish()
		if err != nil {
			return err
		}

		display.NewPrinter(os.Stdout).Summary(res.Inventory, res.Written)
		if res.Uploaded > 0 {
			fmt.Printf("Uploaded %d report(s)\n", res.Uploaded)
		}
		return nil
	},
}

// applyScanFlags overrides scan config values with the flags that were set.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("files") {
		cfg.Scan.IncludeFiles, _ = flags.GetBool("files")
	}
	if flags.Changed("dirs-only") {
		dirsOnly, _ := flags.GetBool("dirs-only")
		cfg.Scan.IncludeFiles = !dirsOnly
	}
	if flags.Changed("hash") {
		cfg.Scan.Algorithm, _ = flags.GetString("hash")
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("hash-workers") {
		cfg.Scan.HashWorkers, _ = flags.GetInt("hash-workers")
	}
	if flags.Changed("hash-timeout") {
		cfg.Scan.HashTimeout, _ = flags.GetString("hash-timeout")
	}
	if flags.Changed("follow-symlinks") {
		cfg.Scan.FollowSymlinks, _ = flags.GetBool("follow-symlinks")
	}
	if flags.Changed("exclude") {
		extra, _ := flags.GetStringArray("exclude")
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, extra...)
	}
	if flags.Changed("acl") {
		cfg.Scan.AccessControl, _ = flags.GetBool("acl")
	}
	if flags.Changed("encrypt") {
		cfg.Export.Encrypt, _ = flags.GetBool("encrypt")
	}
	if flags.Changed("upload") {
		cfg.Export.Upload, _ = flags.GetBool("upload")
	}
	return cfg.Validate()
}

// exportFormat picks the --format flag, then the output file extension,
// then the configured default.
func exportFormat(cmd *cobra.Command, cfg *config.Config, output string) (export.Format, error) {
	if cmd.Flags().Changed("format") {
		name, _ := cmd.Flags().GetString("format")
		return export.ParseFormat(name)
	}
	def, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return "", err
	}
	return export.FormatFromPath(output, def), nil
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}
		display.NewPrinter(os.Stdout).Runs(runs)
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show RUN",
	Short: "Summarize or re-export a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		format, err := exportFormat(cmd, cfg, output)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, "show")
		if err != nil {
			return err
		}
		defer a.Close()

		inventory, err := a.Show(args[0])
		if err != nil {
			return err
		}

		var written []string
		if output != "" {
			written, err = a.Export(inventory.RunID, output, export.Options{Format: format, Encrypt: encrypt || cfg.Export.Encrypt})
			if err != nil {
				return err
			}
		}
		display.NewPrinter(os.Stdout).Summary(inventory, written)
		return nil
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff OLD_RUN NEW_RUN",
	Short: "Compare two stored runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, "diff")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Diff(args[0], args[1])
		if err != nil {
			return err
		}
		display.NewPrinter(os.Stdout).Diff(result)
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify RUN",
	Short: "Rescan a stored run's root and report what changed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetBool("save")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, "verify")
		if err != nil {
			return err
		}
		defer a.Close()

		progress := display.NewProgressRenderer(os.Stderr)
		result, _, err := a.Verify(cmd.Context(), args[0], save, progress.Func())
		progress.Finish()
		if err != nil {
			return err
		}
		display.NewPrinter(os.Stdout).Diff(result)
		if !result.Empty() {
			return fmt.Errorf("%d change(s) since run %s", len(result.Changes), args[0])
		}
		return nil
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt FILE",
	Short: "Decrypt an encrypted report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		a, err := newApp(cfg, "decrypt")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Decrypt(args[0], output, pass); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", output)
		return nil
	},
}

// setupKeys generates the configured key pair.
func setupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return err
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	if ae, ok := enc.(*encryption.AgeEncryptor); ok {
		if pub, err := ae.PublicKey(); err == nil {
			fmt.Printf("Recipient:   %s\n", pub)
		}
	}
	return nil
}

func init() {
	f := scanCmd.Flags()
	f.BoolP("files", "f", true, "Inventory files as well as directories")
	f.Bool("dirs-only", false, "Inventory directories only")
	f.String("hash", "", "Digest algorithm: md5, sha1, sha256, sha512, blake2b or none")
	f.IntP("workers", "w", 0, "Concurrent directory reads (0 = number of CPUs)")
	f.Int("hash-workers", 0, "Concurrent file digests (0 = number of CPUs)")
	f.String("hash-timeout", "", "Per-file hashing limit, e.g. 2m")
	f.Bool("follow-symlinks", false, "Descend into symlinked directories")
	f.StringArray("exclude", nil, "Exclude names or paths matching PATTERN (repeatable)")
	f.Bool("acl", false, "Collect ownership and permissions into <base>_acl.<ext>")
	f.StringP("output", "o", "", "Entry report file; the error report is written next to it")
	f.String("format", "csv", "Report format: csv, json or yaml")
	f.Bool("encrypt", false, "Encrypt every report with the configured age key")
	f.Bool("upload", false, "Copy written reports to every configured vault")
	f.Bool("no-save", false, "Do not store the run in the run store")
	scanCmd.MarkFlagsMutuallyExclusive("files", "dirs-only")
	rootCmd.AddCommand(scanCmd)

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)

	showCmd.Flags().StringP("output", "o", "", "Re-export the run to this file")
	showCmd.Flags().String("format", "csv", "Report format: csv, json or yaml")
	showCmd.Flags().Bool("encrypt", false, "Encrypt the re-exported reports")
	rootCmd.AddCommand(showCmd)

	rootCmd.AddCommand(diffCmd)

	verifyCmd.Flags().Bool("save", false, "Store the verification scan as a new run")
	rootCmd.AddCommand(verifyCmd)

	decryptCmd.Flags().StringP("output", "o", "", "Plaintext output file")
	decryptCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(decryptCmd)
}
