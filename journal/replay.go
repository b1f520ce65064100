// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/callboard-foundation/callboard/lib/codec"
)

// Replay decodes every envelope in the segment at path, in append
// order, calling fn for each. When a .b3 sidecar exists next to the
// segment its digest is verified before any envelope is decoded; a
// segment without a sidecar replays unverified. A non-nil error from
// fn stops the replay and is returned unchanged.
func Replay(path string, fn func(Envelope) error) error {
	if err := verifySidecar(path); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("journal: opening segment: %w", err)
	}
	defer file.Close()

	reader, release, err := newDecompressor(file, compressionForPath(path))
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer release()

	decoder := codec.NewDecoder(reader)
	for {
		var env Envelope
		if err := decoder.Decode(&env); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("journal: decoding %s: %w", filepath.Base(path), err)
		}
		if err := fn(env); err != nil {
			return err
		}
	}
}

// verifySidecar compares the segment's bytes against the digest its
// .b3 sidecar records. A missing sidecar skips verification.
func verifySidecar(path string) error {
	recorded, err := os.ReadFile(path + ".b3")
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("journal: reading digest sidecar: %w", err)
	}

	digest, err := hashFile(path)
	if err != nil {
		return err
	}
	got := hex.EncodeToString(digest[:])
	want := strings.TrimSpace(string(recorded))
	if got != want {
		return fmt.Errorf("journal: segment %s digest mismatch: file hashes to %s, sidecar records %s",
			filepath.Base(path), got, want)
	}
	return nil
}
