// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Lock is an exclusive advisory lock on a file, held for the life of
// the owning process. The daemon takes one before opening the mirror
// database so that a second daemon started by mistake fails fast
// instead of fighting the first over single-writer tables.
type Lock struct {
	file *os.File
}

// Acquire opens (creating if needed) path and takes a non-blocking
// exclusive flock on it. A held lock by another process is reported as
// an error naming the path; the caller is expected to exit.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("process: create lock directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("process: open lock file: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, fmt.Errorf("process: %s is locked by another process: %w", path, err)
	}

	// Record the holder for operators inspecting a stale lock file.
	// Failure to write the pid is not fatal; the flock is the lock.
	_ = file.Truncate(0)
	fmt.Fprintf(file, "%d\n", os.Getpid())

	return &Lock{file: file}, nil
}

// Release drops the lock and closes the file. Idempotent.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	if err := unix.Flock(int(file.Fd()), unix.LOCK_UN); err != nil {
		file.Close()
		return fmt.Errorf("process: unlock: %w", err)
	}
	return file.Close()
}
