// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal persists manager events as append-only segments of
// CBOR envelopes so an operator can replay exactly what the manager
// said and when.
//
// A journal directory holds one active segment (current.journal, plus
// the compression extension) and any number of finalized ones. Appends
// stream through an optional compressor into the active segment; once
// the encoded size passes Options.MaxSegmentBytes the segment is
// finalized: flushed, renamed to events-<unix-ms>.journal with the
// compression extension, and given a .b3 sidecar recording the BLAKE3
// digest of the file bytes. Replay verifies the sidecar before
// decoding. An active segment left behind by a crash is finalized the
// next time the directory is opened; its buffered tail may be lost but
// everything flushed remains replayable.
package journal

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/callboard-foundation/callboard/lib/clock"
	"github.com/callboard-foundation/callboard/lib/codec"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("journal: closed")

// defaultMaxSegmentBytes bounds a segment's encoded size before
// compression. 8 MiB keeps individual segments cheap to hash and
// replay.
const defaultMaxSegmentBytes = 8 << 20

// activeBase is the file name of the segment currently being written,
// before the compression extension.
const activeBase = "current.journal"

// Envelope is one journaled manager event.
type Envelope struct {
	// At is the unix-millisecond timestamp of the append. Append
	// stamps it when zero.
	At int64 `cbor:"at"`

	// Name is the manager event name (QueueMemberPause, Hangup, ...).
	Name string `cbor:"name"`

	// Fields holds the event's key/value pairs as received.
	Fields map[string]string `cbor:"fields,omitempty"`
}

// Options configures a journal directory.
type Options struct {
	// Compression selects the segment compression. The zero value
	// writes uncompressed segments.
	Compression Compression

	// MaxSegmentBytes bounds the encoded (pre-compression) size of one
	// segment; the append that crosses it finalizes the segment.
	// Defaults to 8 MiB.
	MaxSegmentBytes int64

	// Clock stamps envelopes and names finalized segments. Defaults to
	// the real clock.
	Clock clock.Clock

	// Logger receives segment lifecycle messages. Defaults to a
	// discarding logger.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxSegmentBytes <= 0 {
		o.MaxSegmentBytes = defaultMaxSegmentBytes
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Journal is an append-only event log over one directory. Methods are
// safe for concurrent use; appends are serialized.
type Journal struct {
	dir  string
	opts Options

	mu     sync.Mutex
	active *segment
	closed bool
}

// segment is the active file being appended to. The encoder writes
// through the byte counter into the compressor (or straight into the
// file for CompressionNone).
type segment struct {
	file       *os.File
	compressor io.WriteCloser
	counter    *countingWriter
	encoder    *codec.Encoder
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Open prepares dir as a journal directory, creating it as needed. An
// active segment left behind by a previous run is finalized before the
// first append so it cannot be overwritten.
func Open(dir string, opts Options) (*Journal, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: creating directory: %w", err)
	}

	j := &Journal{dir: dir, opts: opts}
	if err := j.recoverLeftovers(); err != nil {
		return nil, err
	}
	return j, nil
}

// recoverLeftovers finalizes active segments from a previous run. All
// compression variants are checked because the configured compression
// may have changed between runs.
func (j *Journal) recoverLeftovers() error {
	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		path := filepath.Join(j.dir, activeBase+comp.extension())
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("journal: checking %s: %w", path, err)
		}
		final, err := j.finalize(path, comp)
		if err != nil {
			return err
		}
		j.opts.Logger.Warn("recovered unfinalized journal segment",
			"segment", filepath.Base(final))
	}
	return nil
}

// Append journals one envelope. The envelope is stamped with the
// current time when env.At is zero. The append that pushes the active
// segment past MaxSegmentBytes finalizes it; the next append starts a
// fresh segment.
func (j *Journal) Append(env Envelope) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	if env.At == 0 {
		env.At = j.opts.Clock.Now().UnixMilli()
	}

	if j.active == nil {
		if err := j.openSegmentLocked(); err != nil {
			return err
		}
	}
	if err := j.active.encoder.Encode(env); err != nil {
		return fmt.Errorf("journal: encoding envelope: %w", err)
	}
	if j.active.counter.n >= j.opts.MaxSegmentBytes {
		return j.rotateLocked()
	}
	return nil
}

// Close finalizes the active segment. Appending after Close returns
// ErrClosed; closing twice is a no-op.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	if j.active == nil {
		return nil
	}
	return j.rotateLocked()
}

func (j *Journal) openSegmentLocked() error {
	path := filepath.Join(j.dir, activeBase+j.opts.Compression.extension())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("journal: creating segment: %w", err)
	}

	compressor, err := newCompressor(file, j.opts.Compression)
	if err != nil {
		file.Close()
		return fmt.Errorf("journal: %w", err)
	}
	var sink io.Writer = file
	if compressor != nil {
		sink = compressor
	}

	counter := &countingWriter{w: sink}
	j.active = &segment{
		file:       file,
		compressor: compressor,
		counter:    counter,
		encoder:    codec.NewEncoder(counter),
	}
	return nil
}

// rotateLocked flushes and finalizes the active segment. On error the
// segment stays on disk under its active name and is recovered at the
// next Open.
func (j *Journal) rotateLocked() error {
	seg := j.active
	j.active = nil

	if seg.compressor != nil {
		if err := seg.compressor.Close(); err != nil {
			seg.file.Close()
			return fmt.Errorf("journal: flushing segment: %w", err)
		}
	}
	if err := seg.file.Close(); err != nil {
		return fmt.Errorf("journal: closing segment: %w", err)
	}

	final, err := j.finalize(seg.file.Name(), j.opts.Compression)
	if err != nil {
		return err
	}
	j.opts.Logger.Debug("journal segment finalized",
		"segment", filepath.Base(final),
		"bytes", seg.counter.n)
	return nil
}

// finalize renames a closed segment file to its permanent name and
// writes the digest sidecar next to it.
func (j *Journal) finalize(activePath string, comp Compression) (string, error) {
	digest, err := hashFile(activePath)
	if err != nil {
		return "", err
	}

	final := j.nextSegmentPath(comp)
	if err := os.Rename(activePath, final); err != nil {
		return "", fmt.Errorf("journal: renaming segment: %w", err)
	}
	sidecar := final + ".b3"
	contents := hex.EncodeToString(digest[:]) + "\n"
	if err := os.WriteFile(sidecar, []byte(contents), 0o644); err != nil {
		return "", fmt.Errorf("journal: writing digest sidecar: %w", err)
	}
	return final, nil
}

// nextSegmentPath picks an unused permanent name. Names embed the
// finalization time; the counter suffix only appears when two
// rotations land on the same millisecond.
func (j *Journal) nextSegmentPath(comp Compression) string {
	base := fmt.Sprintf("events-%d", j.opts.Clock.Now().UnixMilli())
	for n := 0; ; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		path := filepath.Join(j.dir, name+".journal"+comp.extension())
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
	}
}

// hashFile computes the BLAKE3 digest of the file at path, streaming
// in chunks to keep memory constant.
func hashFile(path string) ([32]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("journal: opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return [32]byte{}, fmt.Errorf("journal: hashing %s: %w", path, err)
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}
