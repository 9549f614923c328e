package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ammCore/internal/amm"
	"ammCore/internal/custody"
	"ammCore/internal/events"
	"ammCore/internal/model"
	"ammCore/internal/storage"
)

var (
	// ErrPoolNotFound is returned for operations on a pool that was never initialized.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrPoolExists is returned when initializing a pool id twice.
	ErrPoolExists = errors.New("pool already exists")
)

// Options configures a Service.
type Options struct {
	RateMode       amm.RateMode
	LoadRetries    int
	RetryBaseDelay time.Duration
	Now            func() time.Time
}

// Service runs pool operations one at a time: load the snapshot, run the engine,
// execute its instructions on a scratch ledger, then commit the new snapshot.
type Service struct {
	store     storage.Store
	journal   storage.Journal
	publisher events.Publisher
	logger    *zap.Logger

	liquidity amm.LiquidityEngine
	swaps     amm.SwapEngine

	loadRetries int
	retryDelay  time.Duration
	now         func() time.Time

	mu sync.Mutex
}

// NewService wires a service. journal and publisher may be nil.
func NewService(store storage.Store, journal storage.Journal, publisher events.Publisher, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:       store,
		journal:     journal,
		publisher:   publisher,
		logger:      logger,
		liquidity:   amm.NewLiquidityEngine(opts.RateMode),
		swaps:       amm.NewSwapEngine(),
		loadRetries: opts.LoadRetries,
		retryDelay:  opts.RetryBaseDelay,
		now:         now,
	}
}

// Info is a read-only view of a pool.
type Info struct {
	PoolID    string          `json:"pool_id"`
	Sequence  uint64          `json:"sequence"`
	Pool      model.PoolState `json:"pool"`
	Reserves  model.Reserves  `json:"reserves"`
	Accounts  []string        `json:"accounts"`
	UpdatedAt string          `json:"updated_at"`
}

// Init creates a pool with an empty share supply and the given fee schedule.
func (s *Service) Init(ctx context.Context, poolID string, feeNumerator, feeDenominator uint64) (Info, error) {
	if err := storage.ValidatePoolID(poolID); err != nil {
		return Info{}, err
	}
	state := model.PoolState{FeeNumerator: feeNumerator, FeeDenominator: feeDenominator}
	if err := state.Validate(); err != nil {
		return Info{}, fmt.Errorf("%w: %v", amm.ErrInvalidFee, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, found, err := s.loadWithRetry(ctx, poolID)
	if err != nil {
		return Info{}, err
	}
	if found {
		return Info{}, fmt.Errorf("%w: %s", ErrPoolExists, poolID)
	}

	req := model.InitRequest{FeeNumerator: feeNumerator, FeeDenominator: feeDenominator}
	snap := model.Snapshot{PoolID: poolID, Pool: state}
	ledger := custody.NewLedger(nil)
	next, err := s.commit(ctx, snap, state, ledger, model.OpInit, "", req, nil, nil)
	if err != nil {
		return Info{}, err
	}
	return infoOf(next, ledger), nil
}

// Fund credits account with amount of a pooled asset.
func (s *Service) Fund(ctx context.Context, poolID, account string, asset model.Asset, amount uint64) (model.Holdings, error) {
	if asset != model.Asset0 && asset != model.Asset1 {
		return model.Holdings{}, fmt.Errorf("cannot fund %s", asset)
	}
	req := model.FundRequest{Asset: asset, Amount: amount}
	var holdings model.Holdings
	err := s.apply(ctx, poolID, model.OpFund, account, req, func(state *model.PoolState, ledger *custody.Ledger) (interface{}, []model.Instruction, error) {
		if err := ledger.Credit(account, asset, amount); err != nil {
			return nil, nil, err
		}
		holdings = ledger.Holdings(account)
		return holdings, nil, nil
	})
	return holdings, err
}

// AddLiquidity deposits into the pool on behalf of account.
func (s *Service) AddLiquidity(ctx context.Context, poolID, account string, req model.AddLiquidityRequest) (model.AddLiquidityResult, error) {
	var res model.AddLiquidityResult
	err := s.apply(ctx, poolID, model.OpAddLiquidity, account, req, func(state *model.PoolState, ledger *custody.Ledger) (interface{}, []model.Instruction, error) {
		var err error
		res, err = s.liquidity.AddLiquidity(state, ledger.Reserves(), ledger.Holdings(account), req)
		return res, res.Instructions, err
	})
	return res, err
}

// RemoveLiquidity burns account's shares for a pro-rata payout.
func (s *Service) RemoveLiquidity(ctx context.Context, poolID, account string, req model.RemoveLiquidityRequest) (model.RemoveLiquidityResult, error) {
	var res model.RemoveLiquidityResult
	err := s.apply(ctx, poolID, model.OpRemoveLiquidity, account, req, func(state *model.PoolState, ledger *custody.Ledger) (interface{}, []model.Instruction, error) {
		var err error
		res, err = s.liquidity.RemoveLiquidity(state, ledger.Reserves(), ledger.Holdings(account), req)
		return res, res.Instructions, err
	})
	return res, err
}

// Swap sells req.AmountIn of the direction's source asset from account.
func (s *Service) Swap(ctx context.Context, poolID, account string, req model.SwapRequest) (model.SwapResult, error) {
	var res model.SwapResult
	err := s.apply(ctx, poolID, model.OpSwap, account, req, func(state *model.PoolState, ledger *custody.Ledger) (interface{}, []model.Instruction, error) {
		available := ledger.BalanceOf(account, req.Direction.Source())
		var err error
		res, err = s.swaps.Swap(*state, ledger.Reserves(), available, req)
		return res, res.Instructions, err
	})
	return res, err
}

// QuoteSwap prices a swap against the committed reserves without changing anything.
func (s *Service) QuoteSwap(ctx context.Context, poolID string, amountIn uint64, dir model.Direction) (model.SwapQuote, error) {
	snap, err := s.loadExisting(ctx, poolID)
	if err != nil {
		return model.SwapQuote{}, err
	}
	ledger := custody.NewLedger(snap.Balances)
	return s.swaps.QuoteSwap(snap.Pool, ledger.Reserves(), amountIn, dir)
}

// Info returns the committed state of a pool.
func (s *Service) Info(ctx context.Context, poolID string) (Info, error) {
	snap, err := s.loadExisting(ctx, poolID)
	if err != nil {
		return Info{}, err
	}
	return infoOf(snap, custody.NewLedger(snap.Balances)), nil
}

// Holdings returns the committed balances of account.
func (s *Service) Holdings(ctx context.Context, poolID, account string) (model.Holdings, error) {
	snap, err := s.loadExisting(ctx, poolID)
	if err != nil {
		return model.Holdings{}, err
	}
	return custody.NewLedger(snap.Balances).Holdings(account), nil
}

type operationFunc func(state *model.PoolState, ledger *custody.Ledger) (interface{}, []model.Instruction, error)

func (s *Service) apply(ctx context.Context, poolID string, op model.Operation, account string, req interface{}, fn operationFunc) error {
	if account == "" || account == custody.PoolAccount {
		return fmt.Errorf("invalid account %q", account)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadExisting(ctx, poolID)
	if err != nil {
		return err
	}

	state := snap.Pool
	ledger := custody.NewLedger(snap.Balances)
	result, instructions, err := fn(&state, ledger)
	if err != nil {
		s.logger.Debug("operation rejected",
			zap.String("pool", poolID),
			zap.String("op", string(op)),
			zap.String("account", account),
			zap.Error(err),
		)
		return err
	}
	if err := custody.Execute(ledger, ledger, account, instructions); err != nil {
		return fmt.Errorf("execute %s: %w", op, err)
	}

	_, err = s.commit(ctx, snap, state, ledger, op, account, req, result, instructions)
	return err
}

func (s *Service) commit(
	ctx context.Context,
	prev model.Snapshot,
	state model.PoolState,
	ledger *custody.Ledger,
	op model.Operation,
	account string,
	req interface{},
	result interface{},
	instructions []model.Instruction,
) (model.Snapshot, error) {
	committedAt := s.now().UTC().Format(time.RFC3339Nano)
	next := model.Snapshot{
		PoolID:    prev.PoolID,
		Sequence:  prev.Sequence + 1,
		Pool:      state,
		Balances:  ledger.Balances(),
		UpdatedAt: committedAt,
	}
	if err := s.store.Save(ctx, next); err != nil {
		return model.Snapshot{}, fmt.Errorf("commit %s: %w", op, err)
	}

	record, err := model.NewOperationRecord(op, account, req, result)
	if err != nil {
		s.logger.Error("build operation record", zap.Error(err))
		return next, nil
	}
	record.ID = uuid.NewString()
	record.PoolID = next.PoolID
	record.Sequence = next.Sequence
	record.Instructions = instructions
	record.Pool = state
	record.Reserves = ledger.Reserves()
	record.CommittedAt = committedAt

	s.logger.Info("operation committed",
		zap.String("pool", next.PoolID),
		zap.Uint64("seq", next.Sequence),
		zap.String("op", string(op)),
		zap.String("account", account),
		zap.String("id", record.ID),
	)

	// The snapshot is already committed; downstream failures are reported, not returned.
	if s.journal != nil {
		if err := s.journal.PutOperationBatch(ctx, []model.OperationRecord{record}); err != nil {
			s.logger.Error("journal operation", zap.String("id", record.ID), zap.Error(err))
		}
	}
	if err := s.publisher.Publish(ctx, record); err != nil {
		s.logger.Warn("publish operation", zap.String("id", record.ID), zap.Error(err))
	}
	return next, nil
}

func (s *Service) loadExisting(ctx context.Context, poolID string) (model.Snapshot, error) {
	snap, found, err := s.loadWithRetry(ctx, poolID)
	if err != nil {
		return model.Snapshot{}, err
	}
	if !found {
		return model.Snapshot{}, fmt.Errorf("%w: %s", ErrPoolNotFound, poolID)
	}
	return snap, nil
}

func (s *Service) loadWithRetry(ctx context.Context, poolID string) (model.Snapshot, bool, error) {
	var (
		snap  model.Snapshot
		found bool
	)
	err := withRetry(ctx, s.loadRetries, s.retryDelay, transientLoadError, func(ctx context.Context) error {
		var err error
		snap, found, err = s.store.Load(ctx, poolID)
		if err != nil {
			s.logger.Warn("load snapshot failed", zap.String("pool", poolID), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("load pool %s: %w", poolID, err)
	}
	return snap, found, nil
}

func infoOf(snap model.Snapshot, ledger *custody.Ledger) Info {
	return Info{
		PoolID:    snap.PoolID,
		Sequence:  snap.Sequence,
		Pool:      snap.Pool,
		Reserves:  ledger.Reserves(),
		Accounts:  ledger.Accounts(),
		UpdatedAt: snap.UpdatedAt,
	}
}
