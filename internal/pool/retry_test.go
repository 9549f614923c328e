package pool

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ammCore/internal/storage"
)

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{name: "transient error is retried", err: errors.New("connection reset"), wantCalls: 4},
		{name: "invalid pool id", err: fmt.Errorf("%w: %q", storage.ErrInvalidPoolID, "../x"), wantCalls: 1},
		{name: "corrupt snapshot", err: fmt.Errorf("%w: parse main.json", storage.ErrCorruptSnapshot), wantCalls: 1},
		{name: "deadline", err: context.DeadlineExceeded, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := withRetry(context.Background(), 3, time.Millisecond, transientLoadError, func(context.Context) error {
				calls++
				return tt.err
			})
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestWithRetryHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 5, time.Hour, transientLoadError, func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection reset")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
