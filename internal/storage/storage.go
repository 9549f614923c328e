package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"ammCore/internal/model"
)

// ErrStaleSnapshot is returned by Save when the stored sequence is not the one the
// snapshot was derived from.
var ErrStaleSnapshot = errors.New("stale snapshot")

var (
	// ErrInvalidPoolID is returned for ids that cannot name a pool.
	ErrInvalidPoolID = errors.New("invalid pool id")
	// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Store persists pool snapshots. Save must accept a snapshot only when it advances the
// stored sequence by exactly one (a new pool starts at sequence 1).
type Store interface {
	Load(ctx context.Context, poolID string) (model.Snapshot, bool, error)
	Save(ctx context.Context, snapshot model.Snapshot) error
}

// Journal defines a sink for committed operation records.
type Journal interface {
	PutOperationBatch(ctx context.Context, records []model.OperationRecord) error
}

var poolIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidatePoolID rejects ids that cannot be used as a file name or NATS subject token.
func ValidatePoolID(poolID string) error {
	if !poolIDPattern.MatchString(poolID) {
		return fmt.Errorf("%w: %q", ErrInvalidPoolID, poolID)
	}
	return nil
}

// CheckSequence validates that next directly follows stored.
func CheckSequence(poolID string, stored uint64, found bool, next uint64) error {
	var want uint64 = 1
	if found {
		want = stored + 1
	}
	if next != want {
		return fmt.Errorf("%w: pool %s at sequence %d, snapshot has %d", ErrStaleSnapshot, poolID, stored, next)
	}
	return nil
}
