package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ammCore/internal/model"
)

// FileStore stores one JSON snapshot file per pool under Dir.
// Saves are serialized through a lock file, so stores in separate processes may share Dir.
type FileStore struct {
	Dir string

	mu sync.Mutex
}

const lockRetryDelay = 5 * time.Millisecond

// NewFileStore returns a store keeping snapshots under dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(poolID string) string {
	return filepath.Join(s.Dir, poolID+".json")
}

// Load reads the committed snapshot of poolID. found is false for an unknown pool.
func (s *FileStore) Load(ctx context.Context, poolID string) (model.Snapshot, bool, error) {
	if err := ValidatePoolID(poolID); err != nil {
		return model.Snapshot{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(poolID)
}

func (s *FileStore) load(poolID string) (model.Snapshot, bool, error) {
	path := s.path(poolID)
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, fmt.Errorf("stat snapshot: %w", err)
	}
	if stat.IsDir() {
		return model.Snapshot{}, false, fmt.Errorf("snapshot path is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("%w: parse %s: %v", ErrCorruptSnapshot, path, err)
	}
	if snap.PoolID != poolID {
		return model.Snapshot{}, false, fmt.Errorf("%w: file %s holds pool %q", ErrCorruptSnapshot, path, snap.PoolID)
	}
	return snap, true, nil
}

// Save writes snapshot if it advances the stored sequence by one. The check and the
// rename run under an exclusive lock on <pool>.lock, so stores in other processes
// sharing Dir are serialized too.
func (s *FileStore) Save(ctx context.Context, snapshot model.Snapshot) error {
	if err := ValidatePoolID(snapshot.PoolID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, snapshot.PoolID+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock pool %s: %w", snapshot.PoolID, err)
	}
	if !locked {
		return fmt.Errorf("lock pool %s: not acquired", snapshot.PoolID)
	}
	defer lock.Unlock()

	current, found, err := s.load(snapshot.PoolID)
	if err != nil {
		return err
	}
	if err := CheckSequence(snapshot.PoolID, current.Sequence, found, snapshot.Sequence); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, snapshot.PoolID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot tmp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot tmp: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(snapshot.PoolID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
