package contract

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"landClaim/internal/model"
)

// Codec converts registry events to and from Ethereum-shaped log records of
// a LandClaim deployment.
type Codec struct {
	abi         abi.ABI
	chainID     uint64
	address     common.Address
	topicToName map[common.Hash]string
}

// RecordMeta carries the block-level fields shared by all records of one operation.
type RecordMeta struct {
	BlockNumber uint64
	BlockHash   string
	TxHash      common.Hash
	TxIndex     uint64
	Timestamp   uint64
	IngestedAt  time.Time
}

// NewCodec builds a codec for the contract at address on chainID.
func NewCodec(chainID uint64, address common.Address) (*Codec, error) {
	parsed, err := LandClaimABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	topicToName := make(map[common.Hash]string, len(parsed.Events))
	for name, event := range parsed.Events {
		topicToName[event.ID] = name
	}

	return &Codec{
		abi:         parsed,
		chainID:     chainID,
		address:     address,
		topicToName: topicToName,
	}, nil
}

func (c *Codec) ChainID() uint64 {
	return c.chainID
}

func (c *Codec) Address() common.Address {
	return c.address
}

// Topic0s returns the event ids to filter chain logs by.
func (c *Codec) Topic0s() []common.Hash {
	names := []string{
		model.EventLandClaimed,
		model.EventLandReleased,
		model.EventLandTransferred,
		model.EventTradeProposed,
		model.EventTradeAccepted,
	}
	out := make([]common.Hash, 0, len(names))
	for _, name := range names {
		out = append(out, c.abi.Events[name].ID)
	}
	return out
}

// TxHash derives a deterministic transaction hash for a locally committed
// operation from its sequence number, caller and ABI-encoded call data.
func (c *Codec) TxHash(seq uint64, caller common.Address, method string, args ...interface{}) (common.Hash, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	return crypto.Keccak256Hash(seqBytes[:], caller.Bytes(), input), nil
}

// Encode turns the events of one operation into log records. Log indexes
// follow the event order.
func (c *Codec) Encode(events []model.Event, meta RecordMeta) ([]model.LogRecord, error) {
	records := make([]model.LogRecord, 0, len(events))
	for i, ev := range events {
		topics, data, err := c.EncodeEvent(ev)
		if err != nil {
			return nil, err
		}
		hexTopics := make([]string, 0, len(topics))
		for _, topic := range topics {
			hexTopics = append(hexTopics, topic.Hex())
		}
		records = append(records, model.LogRecord{
			ChainID:     c.chainID,
			BlockNumber: meta.BlockNumber,
			BlockHash:   meta.BlockHash,
			TxHash:      meta.TxHash.Hex(),
			TxIndex:     meta.TxIndex,
			LogIndex:    uint64(i),
			Address:     c.address.Hex(),
			Topics:      hexTopics,
			Data:        hexutil.Encode(data),
			Timestamp:   meta.Timestamp,
			IngestedAt:  meta.IngestedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return records, nil
}

// EncodeEvent returns the topics (topic0 first) and ABI data of one event.
func (c *Codec) EncodeEvent(ev model.Event) ([]common.Hash, []byte, error) {
	event, ok := c.abi.Events[ev.EventName()]
	if !ok {
		return nil, nil, fmt.Errorf("unknown event %s", ev.EventName())
	}

	var indexed []common.Hash
	var values []interface{}
	switch e := ev.(type) {
	case model.LandClaimed:
		indexed = []common.Hash{addressTopic(e.User)}
		values = []interface{}{string(e.Land)}
	case model.LandReleased:
		indexed = []common.Hash{addressTopic(e.User)}
		values = []interface{}{string(e.Land)}
	case model.LandTransferred:
		indexed = []common.Hash{addressTopic(e.From), addressTopic(e.To)}
		values = []interface{}{string(e.Land)}
	case model.TradeProposed:
		indexed = []common.Hash{uintTopic(e.TradeID)}
		values = []interface{}{e.Proposer, string(e.OfferedLand), string(e.RequestedLand)}
	case model.TradeAccepted:
		indexed = []common.Hash{uintTopic(e.TradeID)}
		values = []interface{}{e.Accepter}
	default:
		return nil, nil, fmt.Errorf("unsupported event %T", ev)
	}

	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return nil, nil, fmt.Errorf("pack %s: %w", event.Name, err)
	}
	return append([]common.Hash{event.ID}, indexed...), data, nil
}

// Decode converts a log record back into a registry event.
func (c *Codec) Decode(log model.LogRecord) (model.Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	topic0, err := parseTopicHashes(log.Topics[:1])
	if err != nil {
		return nil, err
	}
	name, ok := c.topicToName[topic0[0]]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	event := c.abi.Events[name]

	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}

	switch name {
	case model.EventLandClaimed, model.EventLandReleased:
		var topics struct {
			User common.Address
		}
		if err := abi.ParseTopics(&topics, indexedArguments(event.Inputs), indexedTopics); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
		land, err := landValue(values, 0)
		if err != nil {
			return nil, err
		}
		if name == model.EventLandClaimed {
			return model.LandClaimed{User: topics.User, Land: land}, nil
		}
		return model.LandReleased{User: topics.User, Land: land}, nil
	case model.EventLandTransferred:
		var topics struct {
			From common.Address
			To   common.Address
		}
		if err := abi.ParseTopics(&topics, indexedArguments(event.Inputs), indexedTopics); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
		land, err := landValue(values, 0)
		if err != nil {
			return nil, err
		}
		return model.LandTransferred{From: topics.From, To: topics.To, Land: land}, nil
	case model.EventTradeProposed:
		id, err := tradeIDTopic(event, indexedTopics)
		if err != nil {
			return nil, err
		}
		if len(values) != 3 {
			return nil, fmt.Errorf("unexpected %s values: %d", name, len(values))
		}
		proposer, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		offered, err := landValue(values, 1)
		if err != nil {
			return nil, err
		}
		requested, err := landValue(values, 2)
		if err != nil {
			return nil, err
		}
		return model.TradeProposed{TradeID: id, Proposer: proposer, OfferedLand: offered, RequestedLand: requested}, nil
	case model.EventTradeAccepted:
		id, err := tradeIDTopic(event, indexedTopics)
		if err != nil {
			return nil, err
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("unexpected %s values: %d", name, len(values))
		}
		accepter, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		return model.TradeAccepted{TradeID: id, Accepter: accepter}, nil
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func tradeIDTopic(event abi.Event, topics []common.Hash) (uint64, error) {
	var indexed struct {
		TradeId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return 0, fmt.Errorf("parse topics: %w", err)
	}
	if indexed.TradeId == nil || !indexed.TradeId.IsUint64() {
		return 0, fmt.Errorf("trade id out of range")
	}
	return indexed.TradeId.Uint64(), nil
}

// landValue reads a string argument verbatim. The contract compares land
// strings byte for byte, so a mirror must not fold case or trim.
func landValue(values []interface{}, i int) (model.LandID, error) {
	if i >= len(values) {
		return "", fmt.Errorf("missing string value at %d", i)
	}
	raw, ok := values[i].(string)
	if !ok {
		return "", fmt.Errorf("unexpected type %T, want string", values[i])
	}
	return model.LandID(raw), nil
}

func asAddress(value interface{}) (common.Address, error) {
	addr, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected type %T, want address", value)
	}
	return addr, nil
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func uintTopic(v uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(v))
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(strings.TrimSpace(topic))
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
