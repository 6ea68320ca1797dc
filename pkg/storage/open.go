// Package storage implements a date-indexed store of instrument data on top of
// pebble. Each calendar day is held under its own key, so a day is read or replaced
// in a single operation.
package storage

import (
	"io"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"
)

type Storage struct {
	// Cfg is the configuration for the storage provided to Open.
	Cfg Config
	// DB is the key-value store holding one entry per calendar day.
	DB *pebble.DB
	// ReleaseLock is a function that releases the lock on the storage file system.
	ReleaseLock func() error
}

// Close closes the key-value store and releases the directory lock.
func (s *Storage) Close() error {
	return errors.CombineErrors(s.DB.Close(), s.ReleaseLock())
}

type Config struct {
	// Dirname defines the root directory data is written to. Dirname shouldn't be
	// used by another process while the storage is open.
	Dirname string
	// MemBacked defines whether the storage should use a memory-backed file system.
	MemBacked bool
	// Logger is the logger used by the storage.
	Logger *zap.Logger
}

func (c Config) merge() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func Open(cfg Config) (*Storage, error) {
	cfg = cfg.merge()
	fs := openBaseFS(cfg)

	s := &Storage{Cfg: cfg}

	if err := fs.MkdirAll(cfg.Dirname, 0755); err != nil {
		return nil, errors.Wrapf(err, "[storage] - failed to create %s", cfg.Dirname)
	}

	// Acquire the lock on the storage directory. If any other process is using the
	// same directory we return an error to the client.
	releaser, err := acquireLock(cfg, fs)
	if err != nil {
		return nil, err
	}
	// Allow the caller to release the lock when they finish using the storage.
	s.ReleaseLock = releaser.Close

	if s.DB, err = openKV(cfg, fs); err != nil {
		return nil, errors.CombineErrors(err, s.ReleaseLock())
	}

	cfg.Logger.Debug("opened storage",
		zap.String("dirname", cfg.Dirname),
		zap.Bool("mem", cfg.MemBacked),
	)
	return s, nil
}

const (
	kvDirname    = "kv"
	lockFileName = "LOCK"
)

func openBaseFS(cfg Config) vfs.FS {
	if cfg.MemBacked {
		return vfs.NewMem()
	}
	return vfs.Default
}

const (
	lockAlreadyAcquiredMsg = `
	The storage directory is locked by another process.

	Is another orbits process using the same directory?
	`
)

func acquireLock(cfg Config, fs vfs.FS) (io.Closer, error) {
	fName := filepath.Join(cfg.Dirname, lockFileName)
	release, err := fs.Lock(fName)
	if err != nil {
		return nil, errors.Wrap(err, lockAlreadyAcquiredMsg)
	}
	return release, nil
}

func openKV(cfg Config, fs vfs.FS) (*pebble.DB, error) {
	dirname := filepath.Join(cfg.Dirname, kvDirname)
	return pebble.Open(dirname, &pebble.Options{FS: fs})
}
