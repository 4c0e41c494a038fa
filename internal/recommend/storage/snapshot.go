// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

// Package storage persists fitted engine state to disk as versioned,
// compressed, checksummed snapshot files.
//
// Snapshot layout:
//
//	<dir>/snapshot_v{N}.gob.gz         gzip-compressed gob of EngineState
//	<dir>/snapshot_v{N}.gob.gz.sha256  hex checksum of the data file
//
// Versions are monotonically increasing integers. Saves are atomic
// (temp file + rename) and old versions are pruned beyond a retention
// count. Loads verify the checksum before decoding.
package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vibemap/vibemap/internal/logging"
	"github.com/vibemap/vibemap/internal/metrics"
	"github.com/vibemap/vibemap/internal/recommend"
)

// ErrNoSnapshot is returned when the store directory holds no snapshots.
var ErrNoSnapshot = errors.New("no snapshot found")

// ErrChecksumMismatch is returned when a snapshot file fails verification.
var ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

const (
	filePattern   = "snapshot_v%d.gob.gz"
	checksumExt   = ".sha256"
	fileMode      = 0o640
	dirMode       = 0o750
	defaultRetain = 3
)

// Store reads and writes engine snapshots under a single directory.
// Methods are not safe for concurrent use with each other; callers
// serialize saves (the engine rebuild path already does).
type Store struct {
	dir    string
	retain int
}

// NewStore opens a snapshot directory, creating it if needed. retain is the
// number of versions kept after each save; values below 1 use the default.
func NewStore(dir string, retain int) (*Store, error) {
	if retain < 1 {
		retain = defaultRetain
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Store{dir: dir, retain: retain}, nil
}

// Save writes the state as the next snapshot version and prunes old ones.
// The data file appears atomically via rename; a crash mid-save leaves at
// most a temp file that the next save overwrites.
func (s *Store) Save(state *recommend.EngineState) (version int, err error) {
	defer func() {
		size := int64(0)
		if err == nil {
			size = fileSize(s.path(version))
		}
		metrics.RecordSnapshotSave(size, err)
	}()

	versions, err := s.Versions()
	if err != nil {
		return 0, err
	}
	version = 1
	if len(versions) > 0 {
		version = versions[len(versions)-1] + 1
	}

	data, err := encodeState(state)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}

	path := s.path(version)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, fileMode); err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck // Best effort cleanup on error
		return 0, fmt.Errorf("publish snapshot: %w", err)
	}

	sum := sha256.Sum256(data)
	if err := os.WriteFile(path+checksumExt, []byte(hex.EncodeToString(sum[:])), fileMode); err != nil {
		return 0, fmt.Errorf("write snapshot checksum: %w", err)
	}

	logging.Info().
		Int("version", version).
		Int("songs", len(state.Songs)).
		Int64("bytes", int64(len(data))).
		Str("path", path).
		Msg("Snapshot saved")

	if err := s.Prune(); err != nil {
		logging.Warn().Err(err).Msg("Snapshot prune failed after save")
	}
	return version, nil
}

// Load reads and verifies one snapshot version.
func (s *Store) Load(version int) (state *recommend.EngineState, err error) {
	defer func() { metrics.RecordSnapshotLoad(err) }()

	path := s.path(version)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is store-internal
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: version %d", ErrNoSnapshot, version)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if err := verifyChecksum(path, data); err != nil {
		return nil, err
	}

	state, err = decodeState(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot v%d: %w", version, err)
	}
	logging.Info().
		Int("version", version).
		Int("songs", len(state.Songs)).
		Msg("Snapshot loaded")
	return state, nil
}

// LoadLatest reads the highest snapshot version present.
func (s *Store) LoadLatest() (*recommend.EngineState, int, error) {
	versions, err := s.Versions()
	if err != nil {
		return nil, 0, err
	}
	if len(versions) == 0 {
		return nil, 0, ErrNoSnapshot
	}
	latest := versions[len(versions)-1]
	state, err := s.Load(latest)
	if err != nil {
		return nil, 0, err
	}
	return state, latest, nil
}

// Versions lists stored snapshot versions in ascending order.
func (s *Store) Versions() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan snapshot directory: %w", err)
	}
	var versions []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var v int
		if n, err := fmt.Sscanf(e.Name(), filePattern, &v); err == nil && n == 1 && e.Name() == fmt.Sprintf(filePattern, v) {
			versions = append(versions, v)
		}
	}
	sort.Ints(versions)
	return versions, nil
}

// Prune removes all but the newest retain versions.
func (s *Store) Prune() (err error) {
	defer func() { metrics.RecordSnapshotPrune(err) }()

	versions, err := s.Versions()
	if err != nil {
		return err
	}
	if len(versions) <= s.retain {
		return nil
	}

	for _, v := range versions[:len(versions)-s.retain] {
		path := s.path(v)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot v%d: %w", v, err)
		}
		if err := os.Remove(path + checksumExt); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot v%d checksum: %w", v, err)
		}
		logging.Debug().Int("version", v).Msg("Snapshot pruned")
	}
	return nil
}

func (s *Store) path(version int) string {
	return filepath.Join(s.dir, fmt.Sprintf(filePattern, version))
}

func encodeState(state *recommend.EngineState) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(state); err != nil {
		gz.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeState(data []byte) (*recommend.EngineState, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close() //nolint:errcheck // Read-only close

	var state recommend.EngineState
	if err := gob.NewDecoder(gz).Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

// verifyChecksum compares the data against the sidecar checksum. A missing
// sidecar is tolerated for compatibility with externally provided files.
func verifyChecksum(path string, data []byte) error {
	want, err := os.ReadFile(path + checksumExt) //nolint:gosec // G304: path is store-internal
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn().Str("path", path).Msg("Snapshot has no checksum file, skipping verification")
			return nil
		}
		return fmt.Errorf("read snapshot checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != string(want) {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, path)
	}
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
