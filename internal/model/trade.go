package model

import "github.com/ethereum/go-ethereum/common"

// Trade is a land-for-land barter offer. The counter-party is whoever owns
// RequestedLand when the offer is accepted.
type Trade struct {
	ID            uint64         `json:"id"`
	Proposer      common.Address `json:"proposer"`
	OfferedLand   LandID         `json:"offered_land"`
	RequestedLand LandID         `json:"requested_land"`
	IsActive      bool           `json:"is_active"`
}
