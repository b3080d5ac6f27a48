package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"landClaim/internal/model"
)

// state is the single logical store behind the registry. Primary records are
// landOwners and trades; userLands, offersMade and landRequests are derived
// indexes maintained by apply.
type state struct {
	landOwners   map[model.LandID]common.Address
	userLands    map[common.Address][]model.LandID
	trades       map[uint64]*model.Trade
	tradeCounter uint64
	offersMade   map[common.Address][]uint64
	landRequests map[model.LandID]map[uint64]struct{}
	activeTrades int

	position   model.Position
	applied    bool
	lastTxHash string
	source     model.Source
}

func newState() *state {
	return &state{
		landOwners:   make(map[model.LandID]common.Address),
		userLands:    make(map[common.Address][]model.LandID),
		trades:       make(map[uint64]*model.Trade),
		offersMade:   make(map[common.Address][]uint64),
		landRequests: make(map[model.LandID]map[uint64]struct{}),
	}
}

func (s *state) ownerOf(land model.LandID) (common.Address, bool) {
	owner, ok := s.landOwners[land]
	return owner, ok
}

func (s *state) nextTradeID() uint64 {
	return s.tradeCounter + 1
}

// nextBlock is the sequence number used for a locally committed operation.
func (s *state) nextBlock() uint64 {
	if !s.applied {
		return 1
	}
	return s.position.Block + 1
}

// advance records the last applied record. A store holds records of one
// source only.
func (s *state) advance(record model.LogRecord) {
	s.position = record.Position()
	s.applied = true
	s.lastTxHash = record.TxHash
	s.source = record.Source()
}

// apply mutates the store for one event. It only checks what is needed to
// keep the indexes consistent; business preconditions are checked when the
// operation is planned.
func (s *state) apply(ev model.Event) error {
	switch e := ev.(type) {
	case model.LandClaimed:
		if e.User == (common.Address{}) {
			return fmt.Errorf("claim by zero address")
		}
		if owner, ok := s.landOwners[e.Land]; ok {
			return fmt.Errorf("claim %s: already owned by %s", e.Land, owner.Hex())
		}
		s.addLand(e.User, e.Land)
	case model.LandReleased:
		if owner, ok := s.landOwners[e.Land]; !ok || owner != e.User {
			return fmt.Errorf("release %s: not owned by %s", e.Land, e.User.Hex())
		}
		s.removeLand(e.User, e.Land)
	case model.LandTransferred:
		if owner, ok := s.landOwners[e.Land]; !ok || owner != e.From {
			return fmt.Errorf("transfer %s: not owned by %s", e.Land, e.From.Hex())
		}
		if e.To == (common.Address{}) || e.To == e.From {
			return fmt.Errorf("transfer %s: invalid recipient %s", e.Land, e.To.Hex())
		}
		s.removeLand(e.From, e.Land)
		s.addLand(e.To, e.Land)
	case model.TradeProposed:
		if _, ok := s.trades[e.TradeID]; ok {
			return fmt.Errorf("trade %d: id already allocated", e.TradeID)
		}
		if len(s.trades) > 0 && e.TradeID <= s.tradeCounter {
			return fmt.Errorf("trade %d: id not increasing (counter %d)", e.TradeID, s.tradeCounter)
		}
		if e.OfferedLand == e.RequestedLand {
			return fmt.Errorf("trade %d: offered and requested land are equal", e.TradeID)
		}
		s.trades[e.TradeID] = &model.Trade{
			ID:            e.TradeID,
			Proposer:      e.Proposer,
			OfferedLand:   e.OfferedLand,
			RequestedLand: e.RequestedLand,
			IsActive:      true,
		}
		s.tradeCounter = e.TradeID
		s.offersMade[e.Proposer] = append(s.offersMade[e.Proposer], e.TradeID)
		s.addRequest(e.RequestedLand, e.TradeID)
		s.activeTrades++
	case model.TradeAccepted:
		trade, ok := s.trades[e.TradeID]
		if !ok {
			return fmt.Errorf("accept trade %d: unknown id", e.TradeID)
		}
		if !trade.IsActive {
			return fmt.Errorf("accept trade %d: already closed", e.TradeID)
		}
		trade.IsActive = false
		s.removeRequest(trade.RequestedLand, trade.ID)
		s.activeTrades--
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
	return nil
}

func (s *state) addLand(owner common.Address, land model.LandID) {
	s.landOwners[land] = owner
	s.userLands[owner] = append(s.userLands[owner], land)
}

// removeLand drops land from the owner's list, keeping the order of the rest.
func (s *state) removeLand(owner common.Address, land model.LandID) {
	delete(s.landOwners, land)
	lands := s.userLands[owner]
	for i, l := range lands {
		if l == land {
			lands = append(lands[:i], lands[i+1:]...)
			break
		}
	}
	if len(lands) == 0 {
		delete(s.userLands, owner)
		return
	}
	s.userLands[owner] = lands
}

func (s *state) addRequest(land model.LandID, id uint64) {
	set, ok := s.landRequests[land]
	if !ok {
		set = make(map[uint64]struct{})
		s.landRequests[land] = set
	}
	set[id] = struct{}{}
}

func (s *state) removeRequest(land model.LandID, id uint64) {
	set, ok := s.landRequests[land]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.landRequests, land)
	}
}
