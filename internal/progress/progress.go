// Package progress tracks batch completion counters. Counters are a
// derived, advisory view for polling callers; identity record statuses
// remain the source of truth and counters can be rebuilt from them.
package progress

import "context"

// Field names a counter that can be incremented. Total is only ever set,
// never incremented.
type Field string

const (
	FieldCurrent Field = "current"
	FieldSuccess Field = "success"
	FieldFailed  Field = "failed"
)

// Progress is a point-in-time snapshot of one key's counters.
type Progress struct {
	Total   int64 `json:"total"`
	Current int64 `json:"current"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Percent int64 `json:"percent"`
}

// Tracker is the shared counter abstraction. Implementations must make
// Increment atomic against concurrent callers: many lane consumers
// increment the same key and a read-modify-write cycle would lose counts.
type Tracker interface {
	// SetTotal initializes the key: total = n, all counters zeroed.
	// Callers must invoke this before the first Increment for the key so
	// pollers never observe counts against an uninitialized total.
	SetTotal(ctx context.Context, key string, total int64) error
	// Increment atomically adds one to each named field.
	Increment(ctx context.Context, key string, fields ...Field) error
	// Reset removes the key entirely.
	Reset(ctx context.Context, key string) error
	// Get returns the snapshot for key; unknown keys read as all zeros so
	// callers can poll before a batch starts.
	Get(ctx context.Context, key string) (Progress, error)
}

// Scoped keys, all derived from the canonical upload record id. Chunk
// receipt, row fan-out and ledger activation are tracked independently.
func ChunkKey(uploadID string) string  { return "chunks:" + uploadID }
func RowKey(uploadID string) string    { return "rows:" + uploadID }
func LedgerKey(uploadID string) string { return "ledger:" + uploadID }

func percent(current, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return current * 100 / total
}
