package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"landClaim/internal/contract"
	"landClaim/internal/metrics"
	"landClaim/internal/model"
	"landClaim/internal/storage"
)

// Sink is a named mirror that receives every committed batch.
type Sink struct {
	Name  string
	Store storage.Storage
}

// Options configures a Registry. Codec is required; everything else is optional.
type Options struct {
	Codec   *contract.Codec
	Journal storage.Storage
	Sinks   []Sink
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Registry serializes every operation against one store. Mutations are planned
// against current state, appended to the journal, and only then applied, so a
// failed call never leaves a partial effect.
type Registry struct {
	mu      sync.RWMutex
	st      *state
	codec   *contract.Codec
	journal storage.Storage
	sinks   []Sink
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds an empty registry.
func New(opts Options) (*Registry, error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("codec is nil")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		st:      newState(),
		codec:   opts.Codec,
		journal: opts.Journal,
		sinks:   opts.Sinks,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}, nil
}

// Claim gives caller ownership of an unclaimed land.
func (r *Registry) Claim(ctx context.Context, caller common.Address, land string) error {
	return r.commit(ctx, caller, contract.MethodClaimLand, []interface{}{land}, func(st *state) ([]model.Event, error) {
		return st.planClaim(caller, land)
	})
}

// Release returns one of caller's lands to the unclaimed pool.
func (r *Registry) Release(ctx context.Context, caller common.Address, land string) error {
	return r.commit(ctx, caller, contract.MethodReleaseLand, []interface{}{land}, func(st *state) ([]model.Event, error) {
		return st.planRelease(caller, land)
	})
}

// DeleteProfile releases every land caller owns in one operation.
func (r *Registry) DeleteProfile(ctx context.Context, caller common.Address) error {
	return r.commit(ctx, caller, contract.MethodDeleteProfile, nil, func(st *state) ([]model.Event, error) {
		return st.planDeleteProfile(caller)
	})
}

// ProposeTrade records an offer of caller's land for someone else's and
// returns the allocated trade id.
func (r *Registry) ProposeTrade(ctx context.Context, caller common.Address, offered, requested string) (uint64, error) {
	trade, err := r.ProposeTradeResult(ctx, caller, offered, requested)
	if err != nil {
		return 0, err
	}
	return trade.ID, nil
}

// ProposeTradeResult is ProposeTrade returning the trade as committed.
func (r *Registry) ProposeTradeResult(ctx context.Context, caller common.Address, offered, requested string) (model.Trade, error) {
	var id uint64
	var out model.Trade
	err := r.commit(ctx, caller, contract.MethodProposeTrade, []interface{}{offered, requested},
		func(st *state) ([]model.Event, error) {
			events, err := st.planProposeTrade(caller, offered, requested)
			if err != nil {
				return nil, err
			}
			id = events[0].(model.TradeProposed).TradeID
			return events, nil
		},
		func(st *state) { out = *st.trades[id] },
	)
	if err != nil {
		return model.Trade{}, err
	}
	return out, nil
}

// AcceptTrade swaps both lands of an active trade, with caller as the
// counter-party.
func (r *Registry) AcceptTrade(ctx context.Context, caller common.Address, id uint64) error {
	_, err := r.AcceptTradeResult(ctx, caller, id)
	return err
}

// AcceptTradeResult is AcceptTrade returning the closed trade.
func (r *Registry) AcceptTradeResult(ctx context.Context, caller common.Address, id uint64) (model.Trade, error) {
	var out model.Trade
	args := []interface{}{new(big.Int).SetUint64(id)}
	err := r.commit(ctx, caller, contract.MethodAcceptTrade, args,
		func(st *state) ([]model.Event, error) {
			return st.planAcceptTrade(caller, id)
		},
		func(st *state) { out = *st.trades[id] },
	)
	if err != nil {
		return model.Trade{}, err
	}
	return out, nil
}

func (r *Registry) commit(
	ctx context.Context,
	caller common.Address,
	method string,
	args []interface{},
	plan func(*state) ([]model.Event, error),
	done ...func(*state),
) error {
	if caller == (common.Address{}) {
		r.metrics.ObserveOperation(method, ErrorCode(ErrInvalidCaller))
		return ErrInvalidCaller
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.st.source == model.SourceChain {
		r.metrics.ObserveOperation(method, ErrorCode(ErrReadOnlyMirror))
		return ErrReadOnlyMirror
	}

	events, err := plan(r.st)
	if err != nil {
		r.metrics.ObserveOperation(method, ErrorCode(err))
		r.logger.Debug("operation rejected",
			zap.String("method", method),
			zap.String("caller", caller.Hex()),
			zap.Error(err),
		)
		return err
	}
	if len(events) == 0 {
		r.metrics.ObserveOperation(method, ErrorCode(nil))
		return nil
	}

	block := r.st.nextBlock()
	txHash, err := r.codec.TxHash(block, caller, method, args...)
	if err != nil {
		r.metrics.ObserveOperation(method, ErrorCode(err))
		return err
	}
	now := r.now()
	records, err := r.codec.Encode(events, contract.RecordMeta{
		BlockNumber: block,
		TxHash:      txHash,
		Timestamp:   uint64(now.Unix()),
		IngestedAt:  now,
	})
	if err != nil {
		r.metrics.ObserveOperation(method, ErrorCode(err))
		return fmt.Errorf("encode events: %w", err)
	}

	if r.journal != nil {
		if err := r.journal.PutLogBatch(ctx, records); err != nil {
			r.metrics.ObserveOperation(method, ErrorCode(err))
			r.logger.Error("journal append failed", zap.String("method", method), zap.Error(err))
			return fmt.Errorf("append journal: %w", err)
		}
	}

	for _, ev := range events {
		if err := r.st.apply(ev); err != nil {
			// The plan was validated against this exact state.
			r.logger.Error("apply planned event failed", zap.String("event", ev.EventName()), zap.Error(err))
			return fmt.Errorf("apply %s: %w", ev.EventName(), err)
		}
	}
	r.st.advance(records[len(records)-1])
	for _, fn := range done {
		fn(r.st)
	}

	r.metrics.ObserveOperation(method, ErrorCode(nil))
	r.metrics.SetSizes(len(r.st.landOwners), r.st.activeTrades)
	r.logger.Info("operation committed",
		zap.String("method", method),
		zap.String("caller", caller.Hex()),
		zap.Uint64("block", block),
		zap.Int("events", len(events)),
	)

	r.mirror(ctx, records)
	return nil
}

// mirror forwards committed records to secondary sinks. The journal is the
// source of truth, so sink failures are logged and counted, not returned.
func (r *Registry) mirror(ctx context.Context, records []model.LogRecord) {
	for _, sink := range r.sinks {
		if err := sink.Store.PutLogBatch(ctx, records); err != nil {
			r.metrics.ObserveSinkFailure(sink.Name)
			r.logger.Warn("sink delivery failed",
				zap.String("sink", sink.Name),
				zap.Uint64("block", records[0].BlockNumber),
				zap.Error(err),
			)
		}
	}
}

// Replay applies already committed records, such as a journal read at startup
// or logs mirrored from a chain deployment. Records at or before the current
// position are skipped, except that a record at exactly the current position
// must carry the transaction hash that was applied there. Local and chain
// records never mix in one store. It returns the number of records applied.
func (r *Registry) Replay(records []model.LogRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	applied := 0
	for _, record := range records {
		pos := record.Position()
		if r.st.applied && !pos.After(r.st.position) {
			if pos == r.st.position && !strings.EqualFold(record.TxHash, r.st.lastTxHash) {
				return applied, fmt.Errorf("record %d:%d tx %s, applied tx %s: %w",
					pos.Block, pos.LogIndex, record.TxHash, r.st.lastTxHash, ErrHistoryConflict)
			}
			continue
		}
		if r.st.applied && record.Source() != r.st.source {
			return applied, fmt.Errorf("%s record %d:%d on a %s store: %w",
				record.Source(), pos.Block, pos.LogIndex, r.st.source, ErrHistoryConflict)
		}
		if record.Removed {
			return applied, fmt.Errorf("record %d:%d was removed by a reorg", pos.Block, pos.LogIndex)
		}
		ev, err := r.codec.Decode(record)
		if err != nil {
			return applied, fmt.Errorf("decode record %d:%d: %w", pos.Block, pos.LogIndex, err)
		}
		if err := r.st.apply(ev); err != nil {
			return applied, fmt.Errorf("apply record %d:%d: %w", pos.Block, pos.LogIndex, err)
		}
		r.st.advance(record)
		applied++
	}

	r.metrics.ObserveReplay(applied)
	r.metrics.SetSizes(len(r.st.landOwners), r.st.activeTrades)
	return applied, nil
}

// IsLandClaimed reports whether land currently has an owner. Invalid ids are
// reported as unclaimed.
func (r *Registry) IsLandClaimed(land string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.isLandClaimed(land)
}

// LandOwnerOf returns the current owner of land, or false when unclaimed.
func (r *Registry) LandOwnerOf(land string) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.lookupOwner(land)
}

// GetMyLands returns the caller's lands in claim order.
func (r *Registry) GetMyLands(caller common.Address) []model.LandID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.landsOf(caller)
}

// LandOfOwnerAt returns the land at index in owner's list.
func (r *Registry) LandOfOwnerAt(owner common.Address, index uint64) (model.LandID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lands := r.st.userLands[owner]
	if index >= uint64(len(lands)) {
		return "", ErrNotFound
	}
	return lands[index], nil
}

// GetOffersMadeByMe returns every trade the caller proposed, active or not.
func (r *Registry) GetOffersMadeByMe(caller common.Address) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.offersMadeBy(caller)
}

// GetOffersForMe returns active trades requesting a land the caller owns now.
func (r *Registry) GetOffersForMe(caller common.Address) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.offersFor(caller)
}

func (r *Registry) GetTrade(id uint64) (model.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.trade(id)
}

// TradeCounter returns the last allocated trade id.
func (r *Registry) TradeCounter() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.tradeCounter
}

// Source reports whether the store holds local commits or chain logs. It is
// empty until a record is applied.
func (r *Registry) Source() model.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.source
}

// Position returns the position of the last applied record.
func (r *Registry) Position() (model.Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.position, r.st.applied
}

func (r *Registry) CheckInvariants() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.checkInvariants()
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.snapshot()
}

// Restore replaces the registry state with snap.
func (r *Registry) Restore(snap Snapshot) error {
	st, err := stateFromSnapshot(snap)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.st = st
	r.mu.Unlock()
	r.metrics.SetSizes(len(st.landOwners), st.activeTrades)
	return nil
}
