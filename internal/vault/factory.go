package vault

import (
	"context"
	"fmt"

	"fsinv/internal/config"
	"fsinv/internal/inv"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
func NewVaultFromConfig(cfg config.VaultConfig) (inv.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		return NewS3Vault(context.Background(), cfg)
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}

// NewVaultsFromConfig creates every configured vault in order.
func NewVaultsFromConfig(cfgs []config.VaultConfig) ([]inv.Vault, error) {
	vaults := make([]inv.Vault, 0, len(cfgs))
	for _, c := range cfgs {
		v, err := NewVaultFromConfig(c)
		if err != nil {
			return nil, fmt.Errorf("vault %q: %w", c.Name, err)
		}
		vaults = append(vaults, v)
	}
	return vaults, nil
}
