package contract

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const landClaimABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "words3", "type": "string"}
    ],
    "name": "LandClaimed",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "words3", "type": "string"}
    ],
    "name": "LandReleased",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "words3", "type": "string"}
    ],
    "name": "LandTransferred",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "tradeId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "proposer", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "offeredLand", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "requestedLand", "type": "string"}
    ],
    "name": "TradeProposed",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "tradeId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "accepter", "type": "address"}
    ],
    "name": "TradeAccepted",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "string", "name": "words3", "type": "string"}],
    "name": "claimLand",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "string", "name": "words3", "type": "string"}],
    "name": "releaseLand",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "deleteProfile",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "string", "name": "offeredLand", "type": "string"},
      {"internalType": "string", "name": "requestedLand", "type": "string"}
    ],
    "name": "proposeTrade",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tradeId", "type": "uint256"}],
    "name": "acceptTrade",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

// Contract method names, used as operation labels in logs, metrics and tx hashes.
const (
	MethodClaimLand     = "claimLand"
	MethodReleaseLand   = "releaseLand"
	MethodDeleteProfile = "deleteProfile"
	MethodProposeTrade  = "proposeTrade"
	MethodAcceptTrade   = "acceptTrade"
)

var (
	landClaimABI     abi.ABI
	landClaimABIOnce sync.Once
	landClaimABIErr  error
)

// LandClaimABI returns the parsed LandClaim contract ABI.
func LandClaimABI() (abi.ABI, error) {
	landClaimABIOnce.Do(func() {
		landClaimABI, landClaimABIErr = abi.JSON(strings.NewReader(landClaimABIJSON))
	})
	return landClaimABI, landClaimABIErr
}
