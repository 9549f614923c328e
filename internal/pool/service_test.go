package pool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ammCore/internal/amm"
	"ammCore/internal/model"
	"ammCore/internal/storage"
)

type recordingPublisher struct {
	mu      sync.Mutex
	records []model.OperationRecord
}

func (p *recordingPublisher) Publish(_ context.Context, rec model.OperationRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

type harness struct {
	svc       *Service
	store     *storage.FileStore
	journal   string
	publisher *recordingPublisher
}

func newHarness(t *testing.T) harness {
	t.Helper()
	dir := t.TempDir()
	h := harness{
		store:     storage.NewFileStore(filepath.Join(dir, "state")),
		journal:   filepath.Join(dir, "journal.jsonl"),
		publisher: &recordingPublisher{},
	}
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.svc = NewService(h.store, storage.NewJsonlJournal(h.journal), h.publisher, Options{
		Now: func() time.Time { return fixed },
	}, nil)
	return h
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	info, err := h.svc.Init(ctx, "main", 3, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Sequence)
	require.True(t, info.Reserves.Empty())

	_, err = h.svc.Fund(ctx, "main", "alice", model.Asset0, 1000)
	require.NoError(t, err)
	holdings, err := h.svc.Fund(ctx, "main", "alice", model.Asset1, 2000)
	require.NoError(t, err)
	require.Equal(t, model.Holdings{Asset0: 1000, Asset1: 2000}, holdings)

	added, err := h.svc.AddLiquidity(ctx, "main", "alice", model.AddLiquidityRequest{Amount0: 1000, Amount1: 2000})
	require.NoError(t, err)
	require.Equal(t, uint64(1500), added.SharesMinted)

	_, err = h.svc.Fund(ctx, "main", "bob", model.Asset0, 100)
	require.NoError(t, err)

	quote, err := h.svc.QuoteSwap(ctx, "main", 100, model.ZeroForOne)
	require.NoError(t, err)
	require.Equal(t, uint64(182), quote.AmountOut)

	swapped, err := h.svc.Swap(ctx, "main", "bob", model.SwapRequest{AmountIn: 100, MinAmountOut: 182, Direction: model.ZeroForOne})
	require.NoError(t, err)
	require.Equal(t, uint64(182), swapped.AmountOut)

	info, err = h.svc.Info(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, model.Reserves{Reserve0: 1100, Reserve1: 1818}, info.Reserves)
	require.Equal(t, uint64(1500), info.Pool.TotalShares)
	require.Equal(t, []string{"alice", "bob", "pool"}, info.Accounts)

	bob, err := h.svc.Holdings(ctx, "main", "bob")
	require.NoError(t, err)
	require.Equal(t, model.Holdings{Asset1: 182}, bob)

	removed, err := h.svc.RemoveLiquidity(ctx, "main", "alice", model.RemoveLiquidityRequest{SharesBurned: 1500})
	require.NoError(t, err)
	require.Equal(t, uint64(1100), removed.Amount0Out)
	require.Equal(t, uint64(1818), removed.Amount1Out)

	info, err = h.svc.Info(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, uint64(7), info.Sequence)
	require.Zero(t, info.Pool.TotalShares)
	require.True(t, info.Reserves.Empty())

	records, err := storage.ReadJournal(h.journal)
	require.NoError(t, err)
	require.Len(t, records, 7)
	for i, rec := range records {
		require.Equal(t, uint64(i+1), rec.Sequence)
		require.NotEmpty(t, rec.ID)
		require.Equal(t, "2024-01-01T00:00:00Z", rec.CommittedAt)
	}
	require.Equal(t, model.OpSwap, records[5].Operation)
	require.Equal(t, model.Reserves{Reserve0: 1100, Reserve1: 1818}, records[5].Reserves)
	require.Equal(t, 7, h.publisher.count())
}

func TestServiceRejectionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Init(ctx, "main", 3, 1000)
	require.NoError(t, err)
	_, err = h.svc.Fund(ctx, "main", "alice", model.Asset0, 1000)
	require.NoError(t, err)
	_, err = h.svc.Fund(ctx, "main", "alice", model.Asset1, 2000)
	require.NoError(t, err)
	_, err = h.svc.AddLiquidity(ctx, "main", "alice", model.AddLiquidityRequest{Amount0: 1000, Amount1: 2000})
	require.NoError(t, err)

	before, err := h.svc.Info(ctx, "main")
	require.NoError(t, err)

	cases := []struct {
		name   string
		run    func() error
		wantIs error
	}{
		{
			name: "swap slippage",
			run: func() error {
				_, err := h.svc.Fund(ctx, "main", "bob", model.Asset0, 100)
				require.NoError(t, err)
				before.Sequence++
				_, err = h.svc.Swap(ctx, "main", "bob", model.SwapRequest{AmountIn: 100, MinAmountOut: 183})
				return err
			},
			wantIs: amm.ErrSlippageExceeded,
		},
		{
			name: "swap without funds",
			run: func() error {
				_, err := h.svc.Swap(ctx, "main", "carol", model.SwapRequest{AmountIn: 1, Direction: model.OneForZero})
				return err
			},
			wantIs: amm.ErrInsufficientBalance,
		},
		{
			name: "add without funds",
			run: func() error {
				_, err := h.svc.AddLiquidity(ctx, "main", "carol", model.AddLiquidityRequest{Amount0: 1, Amount1: 2})
				return err
			},
			wantIs: amm.ErrInsufficientBalance,
		},
		{
			name: "remove more than held",
			run: func() error {
				_, err := h.svc.RemoveLiquidity(ctx, "main", "alice", model.RemoveLiquidityRequest{SharesBurned: 1501})
				return err
			},
			wantIs: amm.ErrInsufficientBalance,
		},
		{
			name: "remove below floor",
			run: func() error {
				_, err := h.svc.RemoveLiquidity(ctx, "main", "alice", model.RemoveLiquidityRequest{SharesBurned: 150, MinAmount0Out: 101})
				return err
			},
			wantIs: amm.ErrSlippageExceeded,
		},
		{
			name: "missing pool",
			run: func() error {
				_, err := h.svc.Swap(ctx, "other", "alice", model.SwapRequest{AmountIn: 1})
				return err
			},
			wantIs: ErrPoolNotFound,
		},
		{
			name: "reinit",
			run: func() error {
				_, err := h.svc.Init(ctx, "main", 1, 100)
				return err
			},
			wantIs: ErrPoolExists,
		},
	}
	for _, tc := range cases {
		err := tc.run()
		require.ErrorIs(t, err, tc.wantIs, tc.name)

		after, err := h.svc.Info(ctx, "main")
		require.NoError(t, err)
		require.Equal(t, before.Sequence, after.Sequence, tc.name)
		require.Equal(t, before.Pool, after.Pool, tc.name)
	}
}

func TestServiceValidatesInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Init(ctx, "main", 2, 1)
	require.ErrorIs(t, err, amm.ErrInvalidFee)
	_, err = h.svc.Init(ctx, "../escape", 3, 1000)
	require.Error(t, err)

	_, err = h.svc.Init(ctx, "main", 3, 1000)
	require.NoError(t, err)
	_, err = h.svc.Fund(ctx, "main", "pool", model.Asset0, 1)
	require.Error(t, err)
	_, err = h.svc.Fund(ctx, "main", "alice", model.AssetShare, 1)
	require.Error(t, err)
	_, err = h.svc.Fund(ctx, "main", "", model.Asset0, 1)
	require.Error(t, err)
	require.Equal(t, 1, h.publisher.count())
}

type staleStore struct {
	storage.Store
}

func (s staleStore) Save(ctx context.Context, snap model.Snapshot) error {
	return fmt.Errorf("%w: injected", storage.ErrStaleSnapshot)
}

func TestServiceStaleCommitIsNotPublished(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Init(ctx, "main", 3, 1000)
	require.NoError(t, err)

	svc := NewService(staleStore{Store: h.store}, nil, h.publisher, Options{}, nil)
	_, err = svc.Fund(ctx, "main", "alice", model.Asset0, 10)
	require.ErrorIs(t, err, storage.ErrStaleSnapshot)
	require.Equal(t, 1, h.publisher.count())
}

type flakyStore struct {
	storage.Store
	failures int
	calls    int
}

func (s *flakyStore) Load(ctx context.Context, poolID string) (model.Snapshot, bool, error) {
	s.calls++
	if s.calls <= s.failures {
		return model.Snapshot{}, false, errors.New("connection reset")
	}
	return s.Store.Load(ctx, poolID)
}

func TestServiceRetriesLoads(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Init(ctx, "main", 3, 1000)
	require.NoError(t, err)

	flaky := &flakyStore{Store: h.store, failures: 2}
	svc := NewService(flaky, nil, nil, Options{LoadRetries: 2, RetryBaseDelay: time.Millisecond}, nil)
	_, err = svc.Info(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, 3, flaky.calls)

	flaky = &flakyStore{Store: h.store, failures: 5}
	svc = NewService(flaky, nil, nil, Options{LoadRetries: 1, RetryBaseDelay: time.Millisecond}, nil)
	_, err = svc.Info(ctx, "main")
	require.Error(t, err)
	require.Equal(t, 2, flaky.calls)
}

func TestServiceDoesNotRetryPermanentLoadErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Init(ctx, "main", 3, 1000)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(h.store.Dir, "main.json"), []byte("{truncated"), 0o644))

	counting := &flakyStore{Store: h.store}
	svc := NewService(counting, nil, nil, Options{LoadRetries: 5, RetryBaseDelay: time.Hour}, nil)

	_, err = svc.Info(ctx, "main")
	require.ErrorIs(t, err, storage.ErrCorruptSnapshot)
	require.Equal(t, 1, counting.calls)

	_, err = svc.Info(ctx, "../main")
	require.ErrorIs(t, err, storage.ErrInvalidPoolID)
	require.Equal(t, 2, counting.calls)
}

func TestServiceSerializesConcurrentSwaps(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Init(ctx, "main", 3, 1000)
	require.NoError(t, err)
	_, err = h.svc.Fund(ctx, "main", "alice", model.Asset0, 1_000_000)
	require.NoError(t, err)
	_, err = h.svc.Fund(ctx, "main", "alice", model.Asset1, 1_000_000)
	require.NoError(t, err)
	_, err = h.svc.AddLiquidity(ctx, "main", "alice", model.AddLiquidityRequest{Amount0: 1_000_000, Amount1: 1_000_000})
	require.NoError(t, err)

	const traders = 8
	for i := 0; i < traders; i++ {
		_, err := h.svc.Fund(ctx, "main", fmt.Sprintf("trader%d", i), model.Asset0, 1000)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, traders)
	for i := 0; i < traders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.Swap(ctx, "main", fmt.Sprintf("trader%d", i), model.SwapRequest{AmountIn: 1000})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	info, err := h.svc.Info(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, uint64(4+traders+traders), info.Sequence)
	require.Equal(t, uint64(1_000_000+traders*1000), info.Reserves.Reserve0)
}
