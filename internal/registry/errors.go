package registry

import (
	"errors"

	"landClaim/internal/model"
)

// Categorical failures. Each one is terminal for the call that returned it and
// leaves the registry unchanged.
var (
	ErrAlreadyClaimed     = errors.New("land already claimed")
	ErrNotOwner           = errors.New("caller does not own land")
	ErrInvalidTradeTarget = errors.New("invalid trade target")
	ErrTradeNotActive     = errors.New("trade not active")
	ErrStalePreconditions = errors.New("trade preconditions no longer hold")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCaller      = errors.New("invalid caller")
	ErrInvalidLandID      = model.ErrInvalidLandID

	// ErrReadOnlyMirror rejects local operations on a store rebuilt from chain logs.
	ErrReadOnlyMirror = errors.New("registry mirrors a chain deployment and is read-only")
	// ErrHistoryConflict reports records that contradict the applied history.
	ErrHistoryConflict = errors.New("record conflicts with applied history")
)

// ErrorCode maps a registry error to a stable snake_case code. Errors that are
// not categorical map to "internal".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrInvalidTradeTarget):
		return "invalid_trade_target"
	case errors.Is(err, ErrTradeNotActive):
		return "trade_not_active"
	case errors.Is(err, ErrStalePreconditions):
		return "stale_preconditions"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCaller):
		return "invalid_caller"
	case errors.Is(err, ErrInvalidLandID):
		return "invalid_land_id"
	case errors.Is(err, ErrReadOnlyMirror):
		return "read_only_mirror"
	case errors.Is(err, ErrHistoryConflict):
		return "history_conflict"
	default:
		return "internal"
	}
}
