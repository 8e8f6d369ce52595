package database

import (
	"fmt"
	"io"
	"log"
	"os"
)

// BootstrapSnapshot copies a pre-built database file into place so the first
// open starts from seeded data instead of an empty catalog. A no-op when the
// target already exists or no snapshot is configured.
func BootstrapSnapshot(cfg Config, snapshotPath string) error {
	if snapshotPath == "" {
		return nil
	}
	if _, err := os.Stat(cfg.Path); err == nil {
		return nil // existing data wins
	}
	if err := EnsureDataDir(cfg); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	src, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(cfg.Path)
	if err != nil {
		return fmt.Errorf("create db file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(cfg.Path)
		return fmt.Errorf("copy snapshot: %w", err)
	}

	log.Printf("[db] seeded %s from snapshot %s", cfg.Path, snapshotPath)
	return nil
}
