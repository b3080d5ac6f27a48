package registry

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"landClaim/internal/model"
)

// planProposeTrade validates a proposal. Neither land is locked: the proposer
// can still release or trade the offered land, so acceptance re-validates.
func (s *state) planProposeTrade(caller common.Address, rawOffered, rawRequested string) ([]model.Event, error) {
	offered, err := model.NormalizeLandID(rawOffered)
	if err != nil {
		return nil, err
	}
	requested, err := model.NormalizeLandID(rawRequested)
	if err != nil {
		return nil, err
	}
	if owner, ok := s.ownerOf(offered); !ok || owner != caller {
		return nil, ErrNotOwner
	}
	if offered == requested {
		return nil, ErrInvalidTradeTarget
	}
	target, ok := s.ownerOf(requested)
	if !ok || target == caller {
		return nil, ErrInvalidTradeTarget
	}

	return []model.Event{model.TradeProposed{
		TradeID:       s.nextTradeID(),
		Proposer:      caller,
		OfferedLand:   offered,
		RequestedLand: requested,
	}}, nil
}

// planAcceptTrade resolves the counter-party from current ownership of the
// requested land. Ownership changes since the proposal surface as
// ErrStalePreconditions; the trade stays active in that case.
func (s *state) planAcceptTrade(caller common.Address, id uint64) ([]model.Event, error) {
	trade, ok := s.trades[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !trade.IsActive {
		return nil, ErrTradeNotActive
	}
	if caller == trade.Proposer {
		return nil, ErrStalePreconditions
	}
	if owner, ok := s.ownerOf(trade.RequestedLand); !ok || owner != caller {
		return nil, ErrStalePreconditions
	}
	if owner, ok := s.ownerOf(trade.OfferedLand); !ok || owner != trade.Proposer {
		return nil, ErrStalePreconditions
	}

	return []model.Event{
		model.LandTransferred{From: trade.Proposer, To: caller, Land: trade.OfferedLand},
		model.LandTransferred{From: caller, To: trade.Proposer, Land: trade.RequestedLand},
		model.TradeAccepted{TradeID: id, Accepter: caller},
	}, nil
}

func (s *state) offersMadeBy(owner common.Address) []uint64 {
	ids := s.offersMade[owner]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// offersFor merges the caller's current lands with the land->active trades
// index, so the cost is bounded by what the caller owns.
func (s *state) offersFor(owner common.Address) []uint64 {
	out := make([]uint64, 0)
	for _, land := range s.userLands[owner] {
		for id := range s.landRequests[land] {
			if s.trades[id].Proposer == owner {
				continue
			}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *state) trade(id uint64) (model.Trade, error) {
	trade, ok := s.trades[id]
	if !ok {
		return model.Trade{}, ErrNotFound
	}
	return *trade, nil
}
