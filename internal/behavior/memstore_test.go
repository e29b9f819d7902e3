package behavior

import (
	"context"
	"sort"
	"sync"
	"time"

	"herd-backend/internal/models"
)

// memStore is an in-memory Store used by the package tests.
type memStore struct {
	mu        sync.Mutex
	snapshots []models.BehaviorSnapshot
	baselines map[string]*models.Baseline
}

func newMemStore() *memStore {
	return &memStore{baselines: make(map[string]*models.Baseline)}
}

func (m *memStore) AppendSnapshot(ctx context.Context, snap *models.BehaviorSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, *snap)
	return nil
}

func (m *memStore) SnapshotCount(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.snapshots)), nil
}

func (m *memStore) Window(ctx context.Context, subjectID string, since time.Time) ([]models.BehaviorSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	window := []models.BehaviorSnapshot{}
	for _, snap := range m.snapshots {
		if snap.SubjectID == subjectID && !snap.Timestamp.Before(since) {
			window = append(window, snap)
		}
	}
	sort.Slice(window, func(i, j int) bool {
		return window[i].Timestamp.Before(window[j].Timestamp)
	})
	return window, nil
}

func (m *memStore) SpanHours(ctx context.Context, subjectID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var min, max time.Time
	count := 0
	for _, snap := range m.snapshots {
		if snap.SubjectID != subjectID {
			continue
		}
		if count == 0 || snap.Timestamp.Before(min) {
			min = snap.Timestamp
		}
		if count == 0 || snap.Timestamp.After(max) {
			max = snap.Timestamp
		}
		count++
	}
	if count < 2 {
		return 0, nil
	}
	return max.Sub(min).Hours(), nil
}

func (m *memStore) ReplaceBaseline(ctx context.Context, b *models.Baseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *b
	m.baselines[b.SubjectID] = &copied
	return nil
}

func (m *memStore) BaselineFor(ctx context.Context, subjectID string) (*models.Baseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.baselines[subjectID]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// makePayload builds a complete snapshot payload for tests.
func makePayload(subjectID string, eating, lying float64, steps int64, rumination, temperature float64, ts time.Time) *models.SnapshotPayload {
	return &models.SnapshotPayload{
		SubjectID:   subjectID,
		Eating:      f64(eating),
		Lying:       f64(lying),
		Steps:       i64(steps),
		Rumination:  f64(rumination),
		Temperature: f64(temperature),
		Timestamp:   &ts,
	}
}

// seedSnapshots appends count snapshots with constant metric values, spaced
// by interval and ending at the most recent timestamp.
func seedSnapshots(t interface{ Fatalf(string, ...interface{}) }, c *Collector, subjectID string, count int, interval time.Duration, eating, lying float64, steps int64, rumination, temperature float64) {
	base := time.Now().Add(-time.Duration(count-1) * interval)
	for i := 0; i < count; i++ {
		ts := base.Add(time.Duration(i) * interval)
		payload := makePayload(subjectID, eating, lying, steps, rumination, temperature, ts)
		if _, err := c.SaveSnapshot(context.Background(), payload); err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}
	}
}
