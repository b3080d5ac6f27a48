package storage

import (
	"context"

	"landClaim/internal/model"
)

// Storage defines a sink for committed event records. The journal is one;
// Postgres and Kafka mirrors are others.
type Storage interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}
