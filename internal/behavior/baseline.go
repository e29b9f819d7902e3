package behavior

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"herd-backend/internal/models"
)

// BaselineBuilder computes per-subject reference profiles from historical
// snapshots. Building is always an explicit operation: ingestion never
// triggers it, and baseline staleness is the caller's responsibility.
type BaselineBuilder struct {
	collector *Collector
	store     Store

	intervalMinutes float64
	densityFactor   float64
}

// NewBaselineBuilder creates a builder. intervalMinutes is the nominal
// snapshot cadence; densityFactor scales the minimum point count (1.0
// requires the full nominal density, lower values relax the sanity check).
func NewBaselineBuilder(collector *Collector, store Store, intervalMinutes, densityFactor float64) *BaselineBuilder {
	return &BaselineBuilder{
		collector:       collector,
		store:           store,
		intervalMinutes: intervalMinutes,
		densityFactor:   densityFactor,
	}
}

// Build computes the median and sample standard deviation of each metric
// over the last `days` days and stores the result as the subject's current
// baseline, replacing any prior one. Fails with InsufficientDataError when
// the window holds fewer points than days*24/intervalHours*densityFactor.
func (b *BaselineBuilder) Build(ctx context.Context, subjectID string, days int) (*models.Baseline, error) {
	window, err := b.collector.Window(ctx, subjectID, float64(days)*24)
	if err != nil {
		return nil, err
	}

	need := b.minPoints(days)
	if len(window) < need {
		if len(window) == 0 {
			known, err := b.collector.HasData(ctx, subjectID)
			if err != nil {
				return nil, err
			}
			if !known {
				return nil, &models.UnknownSubjectError{SubjectID: subjectID}
			}
		}
		return nil, &models.InsufficientDataError{SubjectID: subjectID, Have: len(window), Need: need}
	}

	eating := make([]float64, len(window))
	lying := make([]float64, len(window))
	steps := make([]float64, len(window))
	rumination := make([]float64, len(window))
	temperature := make([]float64, len(window))
	for i, snap := range window {
		eating[i] = snap.Eating
		lying[i] = snap.Lying
		steps[i] = float64(snap.Steps)
		rumination[i] = snap.Rumination
		temperature[i] = snap.Temperature
	}

	baseline := &models.Baseline{
		SubjectID:   subjectID,
		CreatedAt:   time.Now(),
		SampleCount: uint64(len(window)),
		Eating:      models.MetricStats{Median: median(eating), StdDev: sampleStdDev(eating)},
		Lying:       models.MetricStats{Median: median(lying), StdDev: sampleStdDev(lying)},
		Steps:       models.MetricStats{Median: median(steps), StdDev: sampleStdDev(steps)},
		Rumination:  models.MetricStats{Median: median(rumination), StdDev: sampleStdDev(rumination)},
		Temperature: models.MetricStats{Median: median(temperature), StdDev: sampleStdDev(temperature)},
	}

	if err := b.store.ReplaceBaseline(ctx, baseline); err != nil {
		return nil, err
	}

	log.Printf("Built baseline for subject %s from %d snapshots over %d days", subjectID, len(window), days)
	return baseline, nil
}

func (b *BaselineBuilder) minPoints(days int) int {
	intervalHours := b.intervalMinutes / 60
	return int(float64(days) * 24 / intervalHours * b.densityFactor)
}
