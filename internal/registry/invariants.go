package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"landClaim/internal/model"
)

// checkInvariants rebuilds every derived index from the primary records and
// compares it with the incrementally maintained one.
func (s *state) checkInvariants() error {
	seen := make(map[model.LandID]common.Address, len(s.landOwners))
	for owner, lands := range s.userLands {
		if len(lands) == 0 {
			return fmt.Errorf("owner %s has an empty land list entry", owner.Hex())
		}
		for _, land := range lands {
			if prev, dup := seen[land]; dup {
				return fmt.Errorf("land %s listed for %s and %s", land, prev.Hex(), owner.Hex())
			}
			seen[land] = owner
			if actual, ok := s.landOwners[land]; !ok || actual != owner {
				return fmt.Errorf("land %s listed for %s but owned by %s", land, owner.Hex(), actual.Hex())
			}
		}
	}
	for land, owner := range s.landOwners {
		if owner == (common.Address{}) {
			return fmt.Errorf("land %s owned by zero address", land)
		}
		if _, ok := seen[land]; !ok {
			return fmt.Errorf("land %s owned by %s but missing from its list", land, owner.Hex())
		}
	}

	made := make(map[common.Address]int)
	active := 0
	requests := make(map[model.LandID]map[uint64]struct{})
	for id, trade := range s.trades {
		if id != trade.ID {
			return fmt.Errorf("trade stored under %d has id %d", id, trade.ID)
		}
		if id > s.tradeCounter {
			return fmt.Errorf("trade %d beyond counter %d", id, s.tradeCounter)
		}
		made[trade.Proposer]++
		if trade.IsActive {
			active++
			set, ok := requests[trade.RequestedLand]
			if !ok {
				set = make(map[uint64]struct{})
				requests[trade.RequestedLand] = set
			}
			set[id] = struct{}{}
		}
	}
	if active != s.activeTrades {
		return fmt.Errorf("active trade count %d, recorded %d", active, s.activeTrades)
	}

	for proposer, ids := range s.offersMade {
		if len(ids) != made[proposer] {
			return fmt.Errorf("offers made by %s: indexed %d, recorded %d", proposer.Hex(), len(ids), made[proposer])
		}
		for i, id := range ids {
			trade, ok := s.trades[id]
			if !ok || trade.Proposer != proposer {
				return fmt.Errorf("offers made by %s references trade %d", proposer.Hex(), id)
			}
			if i > 0 && ids[i-1] >= id {
				return fmt.Errorf("offers made by %s out of order at %d", proposer.Hex(), id)
			}
		}
		delete(made, proposer)
	}
	if len(made) != 0 {
		return fmt.Errorf("%d proposers missing from offers index", len(made))
	}

	if len(requests) != len(s.landRequests) {
		return fmt.Errorf("land request index has %d lands, expected %d", len(s.landRequests), len(requests))
	}
	for land, want := range requests {
		got := s.landRequests[land]
		if len(got) != len(want) {
			return fmt.Errorf("land %s requested by %d trades, indexed %d", land, len(want), len(got))
		}
		for id := range want {
			if _, ok := got[id]; !ok {
				return fmt.Errorf("land %s missing trade %d in request index", land, id)
			}
		}
	}
	return nil
}
