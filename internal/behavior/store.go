package behavior

import (
	"context"
	"time"

	"herd-backend/internal/models"
)

// Store is the durable storage behind the collector: an append-only
// snapshot log plus a per-subject baseline record. The ClickHouse layer
// implements it in production; tests use an in-memory implementation.
//
// Snapshots are immutable once appended, so readers need no coordination
// with writers beyond a consistent view at call time.
type Store interface {
	// AppendSnapshot durably appends one snapshot. It must not return
	// before the write is durable.
	AppendSnapshot(ctx context.Context, snap *models.BehaviorSnapshot) error

	// SnapshotCount returns the total number of snapshots in the log.
	SnapshotCount(ctx context.Context) (uint64, error)

	// Window returns the subject's snapshots with timestamp >= since,
	// ascending. Unknown subjects yield an empty slice.
	Window(ctx context.Context, subjectID string, since time.Time) ([]models.BehaviorSnapshot, error)

	// SpanHours returns max(ts)-min(ts) over all of the subject's
	// snapshots in hours; 0.0 for zero or one snapshot.
	SpanHours(ctx context.Context, subjectID string) (float64, error)

	// ReplaceBaseline stores a baseline, superseding any prior one for
	// the same subject.
	ReplaceBaseline(ctx context.Context, b *models.Baseline) error

	// BaselineFor returns the subject's baseline or nil when none exists.
	BaselineFor(ctx context.Context, subjectID string) (*models.Baseline, error)
}
