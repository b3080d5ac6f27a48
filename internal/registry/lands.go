package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"landClaim/internal/model"
)

func (s *state) planClaim(caller common.Address, raw string) ([]model.Event, error) {
	land, err := model.NormalizeLandID(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := s.ownerOf(land); ok {
		return nil, ErrAlreadyClaimed
	}
	return []model.Event{model.LandClaimed{User: caller, Land: land}}, nil
}

func (s *state) planRelease(caller common.Address, raw string) ([]model.Event, error) {
	land, err := model.NormalizeLandID(raw)
	if err != nil {
		return nil, ErrNotOwner
	}
	if owner, ok := s.ownerOf(land); !ok || owner != caller {
		return nil, ErrNotOwner
	}
	return []model.Event{model.LandReleased{User: caller, Land: land}}, nil
}

// planDeleteProfile releases every land the caller holds, in index order.
// Trades are left alone; the ones that depend on these lands go stale.
func (s *state) planDeleteProfile(caller common.Address) ([]model.Event, error) {
	lands := s.userLands[caller]
	events := make([]model.Event, 0, len(lands))
	for _, land := range lands {
		events = append(events, model.LandReleased{User: caller, Land: land})
	}
	return events, nil
}

func (s *state) isLandClaimed(raw string) bool {
	_, ok := s.lookupOwner(raw)
	return ok
}

// lookupOwner tries the exact string first, which finds land strings mirrored
// verbatim from chain logs, then the normalized id.
func (s *state) lookupOwner(raw string) (common.Address, bool) {
	if owner, ok := s.ownerOf(model.LandID(raw)); ok {
		return owner, true
	}
	land, err := model.NormalizeLandID(raw)
	if err != nil {
		return common.Address{}, false
	}
	return s.ownerOf(land)
}

func (s *state) landsOf(owner common.Address) []model.LandID {
	lands := s.userLands[owner]
	out := make([]model.LandID, len(lands))
	copy(out, lands)
	return out
}
