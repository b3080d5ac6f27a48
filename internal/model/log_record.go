package model

// LogRecord is an event in Ethereum log shape, used for the journal, the
// Postgres event table and the Kafka feed. Locally committed operations use
// the operation sequence as BlockNumber.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash,omitempty"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}

// Position returns where this record sits in the event stream.
func (lr LogRecord) Position() Position {
	return Position{Block: lr.BlockNumber, LogIndex: lr.LogIndex}
}

// Position orders records by block, then by log index within the block.
type Position struct {
	Block    uint64 `json:"block"`
	LogIndex uint64 `json:"log_index"`
}

// After reports whether p comes strictly after other.
func (p Position) After(other Position) bool {
	if p.Block != other.Block {
		return p.Block > other.Block
	}
	return p.LogIndex > other.LogIndex
}

// Source tells where a record stream came from. Chain logs carry a block hash;
// locally committed operations do not.
type Source string

const (
	SourceLocal Source = "local"
	SourceChain Source = "chain"
)

func (lr LogRecord) Source() Source {
	if lr.BlockHash != "" {
		return SourceChain
	}
	return SourceLocal
}
