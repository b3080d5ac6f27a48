package registry

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"landClaim/internal/model"
)

// Snapshot is the full committed state of a registry. Derived indexes are not
// stored; they are rebuilt on restore.
type Snapshot struct {
	Position     *model.Position `json:"position,omitempty"`
	LastTxHash   string          `json:"last_tx_hash,omitempty"`
	Source       model.Source    `json:"source,omitempty"`
	TradeCounter uint64          `json:"trade_counter"`
	Holdings     []Holding       `json:"holdings"`
	Trades       []model.Trade   `json:"trades"`
}

// Holding lists an owner's lands in index order.
type Holding struct {
	Owner common.Address `json:"owner"`
	Lands []model.LandID `json:"lands"`
}

func (s *state) snapshot() Snapshot {
	snap := Snapshot{
		TradeCounter: s.tradeCounter,
		Holdings:     make([]Holding, 0, len(s.userLands)),
		Trades:       make([]model.Trade, 0, len(s.trades)),
	}
	if s.applied {
		pos := s.position
		snap.Position = &pos
		snap.LastTxHash = s.lastTxHash
		snap.Source = s.source
	}
	for owner := range s.userLands {
		snap.Holdings = append(snap.Holdings, Holding{Owner: owner, Lands: s.landsOf(owner)})
	}
	sort.Slice(snap.Holdings, func(i, j int) bool {
		return bytes.Compare(snap.Holdings[i].Owner.Bytes(), snap.Holdings[j].Owner.Bytes()) < 0
	})
	for _, trade := range s.trades {
		snap.Trades = append(snap.Trades, *trade)
	}
	sort.Slice(snap.Trades, func(i, j int) bool { return snap.Trades[i].ID < snap.Trades[j].ID })
	return snap
}

func stateFromSnapshot(snap Snapshot) (*state, error) {
	st := newState()
	for _, holding := range snap.Holdings {
		if holding.Owner == (common.Address{}) {
			return nil, fmt.Errorf("holding for zero address")
		}
		for _, land := range holding.Lands {
			if _, ok := st.landOwners[land]; ok {
				return nil, fmt.Errorf("land %s held twice", land)
			}
			st.addLand(holding.Owner, land)
		}
	}

	trades := make([]model.Trade, len(snap.Trades))
	copy(trades, snap.Trades)
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
	for _, trade := range trades {
		if _, ok := st.trades[trade.ID]; ok {
			return nil, fmt.Errorf("trade %d listed twice", trade.ID)
		}
		if trade.ID > snap.TradeCounter {
			return nil, fmt.Errorf("trade %d beyond counter %d", trade.ID, snap.TradeCounter)
		}
		t := trade
		st.trades[t.ID] = &t
		st.offersMade[t.Proposer] = append(st.offersMade[t.Proposer], t.ID)
		if t.IsActive {
			st.addRequest(t.RequestedLand, t.ID)
			st.activeTrades++
		}
	}
	st.tradeCounter = snap.TradeCounter
	if snap.Position != nil {
		switch snap.Source {
		case model.SourceLocal, model.SourceChain:
		case "":
			snap.Source = model.SourceLocal
		default:
			return nil, fmt.Errorf("unknown snapshot source %q", snap.Source)
		}
		st.position = *snap.Position
		st.applied = true
		st.lastTxHash = snap.LastTxHash
		st.source = snap.Source
	}

	if err := st.checkInvariants(); err != nil {
		return nil, fmt.Errorf("snapshot inconsistent: %w", err)
	}
	return st, nil
}
