package model

import "github.com/ethereum/go-ethereum/common"

// Event names as declared by the LandClaim contract.
const (
	EventLandClaimed     = "LandClaimed"
	EventLandReleased    = "LandReleased"
	EventLandTransferred = "LandTransferred"
	EventTradeProposed   = "TradeProposed"
	EventTradeAccepted   = "TradeAccepted"
)

// Event is a state change emitted by the registry.
type Event interface {
	EventName() string
}

// LandClaimed is emitted when an unset land gets its first owner.
type LandClaimed struct {
	User common.Address `json:"user"`
	Land LandID         `json:"words3"`
}

// LandReleased is emitted when an owner gives a land back.
type LandReleased struct {
	User common.Address `json:"user"`
	Land LandID         `json:"words3"`
}

// LandTransferred is emitted for each leg of an accepted trade.
type LandTransferred struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Land LandID         `json:"words3"`
}

type TradeProposed struct {
	TradeID       uint64         `json:"trade_id"`
	Proposer      common.Address `json:"proposer"`
	OfferedLand   LandID         `json:"offered_land"`
	RequestedLand LandID         `json:"requested_land"`
}

type TradeAccepted struct {
	TradeID  uint64         `json:"trade_id"`
	Accepter common.Address `json:"accepter"`
}

func (LandClaimed) EventName() string     { return EventLandClaimed }
func (LandReleased) EventName() string    { return EventLandReleased }
func (LandTransferred) EventName() string { return EventLandTransferred }
func (TradeProposed) EventName() string   { return EventTradeProposed }
func (TradeAccepted) EventName() string   { return EventTradeAccepted }
