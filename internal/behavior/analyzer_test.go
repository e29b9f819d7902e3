package behavior

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"herd-backend/internal/models"
)

func newTestAnalyzer() (*Analyzer, *Collector, *memStore) {
	store := newMemStore()
	collector := NewCollector(store)
	return NewAnalyzer(collector, DefaultAnalyzerConfig()), collector, store
}

func TestAnalyzeHealthySubjectWithBaseline(t *testing.T) {
	analyzer, collector, store := newTestAnalyzer()

	// A full day of healthy behavior at 30-minute cadence
	seedSnapshots(t, collector, "cow-1", 48, 30*time.Minute, 10, 0.5, 180, 20, 38.5)

	builder := NewBaselineBuilder(collector, store, 30, 1.0)
	if _, err := builder.Build(context.Background(), "cow-1", 1); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	result, err := analyzer.Analyze(context.Background(), "cow-1", 24)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Status != models.StatusNormal {
		t.Errorf("Status = %s, want NORMAL", result.Status)
	}
	if len(result.FlaggedMetrics) != 0 {
		t.Errorf("FlaggedMetrics = %v, want none", result.FlaggedMetrics)
	}
	if result.Confidence < 0.8 {
		t.Errorf("Confidence = %v, want >= 0.8 for a clean full-day read", result.Confidence)
	}
	if result.BaselineType != models.BaselineIndividual {
		t.Errorf("BaselineType = %s, want individual", result.BaselineType)
	}
}

func TestAnalyzeSickSubjectAgainstPopulationNorms(t *testing.T) {
	analyzer, collector, _ := newTestAnalyzer()

	// 12 hours of depressed eating/rumination/activity, elevated lying and
	// temperature. No individual baseline, so population norms apply.
	seedSnapshots(t, collector, "cow-2", 25, 30*time.Minute, 5, 0.7, 108, 12, 40.0)

	result, err := analyzer.Analyze(context.Background(), "cow-2", 24)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Status != models.StatusAbnormal {
		t.Errorf("Status = %s, want ABNORMAL", result.Status)
	}
	if len(result.FlaggedMetrics) < 3 {
		t.Errorf("FlaggedMetrics = %v, want at least 3 flags", result.FlaggedMetrics)
	}
	if result.BaselineType != models.BaselinePopulation {
		t.Errorf("BaselineType = %s, want population", result.BaselineType)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("Confidence = %v, want in (0, 1]", result.Confidence)
	}
}

func TestAnalyzeThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name      string
		eating    float64
		wantFlags int
	}{
		{"deviation exactly at threshold stays unflagged", 7.0, 0}, // 30% vs population 10
		{"deviation just past threshold is flagged", 6.9, 1},       // 31%
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer, collector, _ := newTestAnalyzer()
			seedSnapshots(t, collector, "cow-3", 25, 30*time.Minute, tt.eating, 0.5, 180, 20, 38.5)

			result, err := analyzer.Analyze(context.Background(), "cow-3", 24)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if len(result.FlaggedMetrics) != tt.wantFlags {
				t.Errorf("FlaggedMetrics = %v, want %d flags", result.FlaggedMetrics, tt.wantFlags)
			}
		})
	}
}

func TestAnalyzeSingleFlagSeverityRule(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
		wantStatus  string
	}{
		// Temperature score is deviation/2. Exactly 0.5 must stay NORMAL.
		{"single flag at score 0.5 stays normal", 39.5, models.StatusNormal},
		{"single flag above score 0.5 is abnormal", 39.7, models.StatusAbnormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer, collector, _ := newTestAnalyzer()
			seedSnapshots(t, collector, "cow-4", 25, 30*time.Minute, 10, 0.5, 180, 20, tt.temperature)

			result, err := analyzer.Analyze(context.Background(), "cow-4", 24)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if len(result.FlaggedMetrics) != 1 {
				t.Fatalf("FlaggedMetrics = %v, want exactly 1 flag", result.FlaggedMetrics)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", result.Status, tt.wantStatus)
			}
		})
	}
}

func TestAnalyzeNoData(t *testing.T) {
	analyzer, _, _ := newTestAnalyzer()

	result, err := analyzer.Analyze(context.Background(), "ghost", 24)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Status != models.StatusInsufficientData {
		t.Errorf("Status = %s, want INSUFFICIENT_DATA", result.Status)
	}
	if result.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", result.Confidence)
	}
	if result.FlaggedMetrics == nil || len(result.FlaggedMetrics) != 0 {
		t.Errorf("FlaggedMetrics = %v, want empty slice", result.FlaggedMetrics)
	}
}

func TestAnalyzeShortSpan(t *testing.T) {
	analyzer, collector, _ := newTestAnalyzer()

	// Two snapshots six hours apart: below the 12-hour minimum
	base := time.Now()
	collector.SaveSnapshot(context.Background(), makePayload("cow-5", 10, 0.5, 180, 20, 38.5, base.Add(-6*time.Hour)))
	collector.SaveSnapshot(context.Background(), makePayload("cow-5", 10, 0.5, 180, 20, 38.5, base))

	result, err := analyzer.Analyze(context.Background(), "cow-5", 24)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Status != models.StatusInsufficientData {
		t.Errorf("Status = %s, want INSUFFICIENT_DATA", result.Status)
	}
	if math.Abs(result.Confidence-0.5) > 1e-6 {
		t.Errorf("Confidence = %v, want 0.5 (6h of a 12h minimum)", result.Confidence)
	}
	if result.Current.SampleCount != 2 {
		t.Errorf("SampleCount = %d, want 2", result.Current.SampleCount)
	}
}

func TestAnalyzePrefersIndividualBaseline(t *testing.T) {
	analyzer, collector, store := newTestAnalyzer()

	// A light eater: 50% below the population norm, but normal for her
	seedSnapshots(t, collector, "cow-6", 25, 30*time.Minute, 5, 0.5, 180, 20, 38.5)
	store.ReplaceBaseline(context.Background(), &models.Baseline{
		SubjectID:   "cow-6",
		CreatedAt:   time.Now(),
		SampleCount: 48,
		Eating:      models.MetricStats{Median: 5},
		Lying:       models.MetricStats{Median: 0.5},
		Steps:       models.MetricStats{Median: 180},
		Rumination:  models.MetricStats{Median: 20},
		Temperature: models.MetricStats{Median: 38.5},
	})

	result, err := analyzer.Analyze(context.Background(), "cow-6", 24)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.BaselineType != models.BaselineIndividual {
		t.Errorf("BaselineType = %s, want individual", result.BaselineType)
	}
	if result.Status != models.StatusNormal {
		t.Errorf("Status = %s, want NORMAL against her own baseline", result.Status)
	}
	if len(result.FlaggedMetrics) != 0 {
		t.Errorf("FlaggedMetrics = %v, want none", result.FlaggedMetrics)
	}
}

func TestAnalyzeCorruptBaseline(t *testing.T) {
	analyzer, collector, store := newTestAnalyzer()

	seedSnapshots(t, collector, "cow-7", 25, 30*time.Minute, 10, 0.5, 180, 20, 38.5)
	store.ReplaceBaseline(context.Background(), &models.Baseline{
		SubjectID:   "cow-7",
		CreatedAt:   time.Now(),
		SampleCount: 48,
		Eating:      models.MetricStats{Median: 0}, // relative deviation undefined
		Lying:       models.MetricStats{Median: 0.5},
		Steps:       models.MetricStats{Median: 180},
		Rumination:  models.MetricStats{Median: 20},
		Temperature: models.MetricStats{Median: 38.5},
	})

	_, err := analyzer.Analyze(context.Background(), "cow-7", 24)

	var cerr *models.DataCorruptionError
	if !errors.As(err, &cerr) {
		t.Fatalf("Analyze() error = %v, want DataCorruptionError", err)
	}
}

func TestAnalyzeIsPureRead(t *testing.T) {
	analyzer, collector, _ := newTestAnalyzer()
	seedSnapshots(t, collector, "cow-8", 25, 30*time.Minute, 5, 0.7, 108, 12, 40.0)

	first, err := analyzer.Analyze(context.Background(), "cow-8", 24)
	if err != nil {
		t.Fatalf("first Analyze() error = %v", err)
	}
	second, err := analyzer.Analyze(context.Background(), "cow-8", 24)
	if err != nil {
		t.Fatalf("second Analyze() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated analysis differs:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}
