// Package upload owns the chunked roster upload lifecycle: receiving
// fragments, reassembling the file, and the upload record callers use as
// the handle for every later progress query.
package upload

import (
	"time"

	"github.com/google/uuid"
)

// Status is the upload record state machine: Pending until fan-out
// completes, then Sync or Failed. Only the upload store mutates records;
// everything else references them by id.
type Status string

const (
	StatusPending Status = "pending"
	StatusSync    Status = "sync"
	StatusFailed  Status = "failed"
)

// Record is one uploaded roster file.
type Record struct {
	ID                uuid.UUID
	OriginalFileName  string
	AssembledFileName string
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ChunkResult reports the outcome of receiving one chunk.
type ChunkResult struct {
	UploadID          uuid.UUID
	FileName          string
	ChunkIndex        int
	TotalChunks       int
	Complete          bool
	AssembledFileName string
}
