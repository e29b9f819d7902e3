package behavior

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"herd-backend/internal/models"
)

// Collector is the write/read surface over the snapshot log. It validates
// incoming payloads at the boundary so malformed records never reach
// storage or the analyzer.
type Collector struct {
	store Store

	// Snapshot ids are append-log positions: a process-wide counter
	// seeded from the stored count on first use.
	seedOnce sync.Once
	seedErr  error
	mu       sync.Mutex
	nextID   uint64
}

// NewCollector creates a collector over the given store.
func NewCollector(store Store) *Collector {
	return &Collector{store: store}
}

// SaveSnapshot validates the payload, durably appends it and returns the
// snapshot id. All five metric fields must be present and finite; the
// lying fraction is clamped into [0,1]. A missing timestamp defaults to now.
func (c *Collector) SaveSnapshot(ctx context.Context, payload *models.SnapshotPayload) (uint64, error) {
	snap, err := validatePayload(payload)
	if err != nil {
		return 0, err
	}

	if err := c.seedCounter(ctx); err != nil {
		return 0, err
	}

	if err := c.store.AppendSnapshot(ctx, snap); err != nil {
		return 0, err
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	return id, nil
}

// Window returns the subject's snapshots from the last `hours` hours,
// sorted ascending by timestamp. Unknown subjects yield an empty slice.
func (c *Collector) Window(ctx context.Context, subjectID string, hours float64) ([]models.BehaviorSnapshot, error) {
	since := time.Now().Add(-time.Duration(hours * float64(time.Hour)))
	return c.store.Window(ctx, subjectID, since)
}

// HasData reports whether the subject has ever produced a snapshot.
// The epoch lower bound keeps the query inside the DateTime range.
func (c *Collector) HasData(ctx context.Context, subjectID string) (bool, error) {
	window, err := c.store.Window(ctx, subjectID, time.Unix(0, 0))
	if err != nil {
		return false, err
	}
	return len(window) > 0, nil
}

// SpanHours returns the time span covered by all of the subject's
// snapshots, in hours. Span, not density: callers must not conflate the
// two.
func (c *Collector) SpanHours(ctx context.Context, subjectID string) (float64, error) {
	return c.store.SpanHours(ctx, subjectID)
}

// Baseline returns the subject's current baseline or nil when none exists.
func (c *Collector) Baseline(ctx context.Context, subjectID string) (*models.Baseline, error) {
	return c.store.BaselineFor(ctx, subjectID)
}

func (c *Collector) seedCounter(ctx context.Context) error {
	c.seedOnce.Do(func() {
		count, err := c.store.SnapshotCount(ctx)
		if err != nil {
			c.seedErr = fmt.Errorf("failed to seed snapshot counter: %w", err)
			return
		}
		c.mu.Lock()
		c.nextID = count
		c.mu.Unlock()
	})
	return c.seedErr
}

func validatePayload(payload *models.SnapshotPayload) (*models.BehaviorSnapshot, error) {
	if payload.SubjectID == "" {
		return nil, &models.ValidationError{Field: "subject_id", Reason: "must not be empty"}
	}
	if payload.Eating == nil {
		return nil, &models.ValidationError{Field: "eating_minutes_per_hour", Reason: "missing"}
	}
	if payload.Lying == nil {
		return nil, &models.ValidationError{Field: "lying_fraction_per_hour", Reason: "missing"}
	}
	if payload.Steps == nil {
		return nil, &models.ValidationError{Field: "steps_per_hour", Reason: "missing"}
	}
	if payload.Rumination == nil {
		return nil, &models.ValidationError{Field: "rumination_minutes_per_hour", Reason: "missing"}
	}
	if payload.Temperature == nil {
		return nil, &models.ValidationError{Field: "temperature_celsius", Reason: "missing"}
	}

	if err := checkFinite("eating_minutes_per_hour", *payload.Eating); err != nil {
		return nil, err
	}
	if err := checkFinite("lying_fraction_per_hour", *payload.Lying); err != nil {
		return nil, err
	}
	if err := checkFinite("rumination_minutes_per_hour", *payload.Rumination); err != nil {
		return nil, err
	}
	if err := checkFinite("temperature_celsius", *payload.Temperature); err != nil {
		return nil, err
	}

	if *payload.Eating < 0 {
		return nil, &models.ValidationError{Field: "eating_minutes_per_hour", Reason: "must be non-negative"}
	}
	if *payload.Rumination < 0 {
		return nil, &models.ValidationError{Field: "rumination_minutes_per_hour", Reason: "must be non-negative"}
	}
	if *payload.Steps < 0 {
		return nil, &models.ValidationError{Field: "steps_per_hour", Reason: "must be non-negative"}
	}

	ts := time.Now()
	if payload.Timestamp != nil {
		ts = *payload.Timestamp
	}

	return &models.BehaviorSnapshot{
		SubjectID:   payload.SubjectID,
		Timestamp:   ts,
		Eating:      *payload.Eating,
		Lying:       clamp01(*payload.Lying),
		Steps:       *payload.Steps,
		Rumination:  *payload.Rumination,
		Temperature: *payload.Temperature,
	}, nil
}

func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &models.ValidationError{Field: field, Reason: "must be a finite number"}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
