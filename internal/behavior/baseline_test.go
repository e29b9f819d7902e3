package behavior

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"herd-backend/internal/models"
)

func TestBuildInsufficientData(t *testing.T) {
	store := newMemStore()
	collector := NewCollector(store)
	// 30-minute cadence, full density: one day needs 48 points
	builder := NewBaselineBuilder(collector, store, 30, 1.0)

	seedSnapshots(t, collector, "cow-1", 10, 30*time.Minute, 10, 0.5, 180, 20, 38.5)

	_, err := builder.Build(context.Background(), "cow-1", 1)

	var ierr *models.InsufficientDataError
	if !errors.As(err, &ierr) {
		t.Fatalf("Build() error = %v, want InsufficientDataError", err)
	}
	if ierr.Have != 10 {
		t.Errorf("Have = %d, want 10", ierr.Have)
	}
	if ierr.Need != 48 {
		t.Errorf("Need = %d, want 48", ierr.Need)
	}

	// The failed build must not leave a baseline behind
	baseline, _ := store.BaselineFor(context.Background(), "cow-1")
	if baseline != nil {
		t.Error("failed build stored a baseline")
	}
}

func TestBuildUnknownSubject(t *testing.T) {
	store := newMemStore()
	collector := NewCollector(store)
	builder := NewBaselineBuilder(collector, store, 30, 1.0)

	_, err := builder.Build(context.Background(), "ghost", 7)

	var uerr *models.UnknownSubjectError
	if !errors.As(err, &uerr) {
		t.Fatalf("Build() error = %v, want UnknownSubjectError", err)
	}
	if uerr.SubjectID != "ghost" {
		t.Errorf("SubjectID = %q, want %q", uerr.SubjectID, "ghost")
	}
}

func TestBuildMedianAndStdDev(t *testing.T) {
	store := newMemStore()
	collector := NewCollector(store)
	// Relaxed density so a small known data set passes the gate
	builder := NewBaselineBuilder(collector, store, 30, 0.1)

	base := time.Now()
	eatingValues := []float64{8, 9, 10, 11, 12}
	for i, eating := range eatingValues {
		ts := base.Add(-time.Duration(len(eatingValues)-1-i) * time.Hour)
		if _, err := collector.SaveSnapshot(context.Background(), makePayload("cow-1", eating, 0.5, 180, 20, 38.5, ts)); err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}
	}

	baseline, err := builder.Build(context.Background(), "cow-1", 1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if baseline.SampleCount != 5 {
		t.Errorf("SampleCount = %d, want 5", baseline.SampleCount)
	}
	if baseline.Eating.Median != 10 {
		t.Errorf("Eating.Median = %v, want 10", baseline.Eating.Median)
	}
	if math.Abs(baseline.Eating.StdDev-math.Sqrt(2.5)) > 1e-9 {
		t.Errorf("Eating.StdDev = %v, want %v", baseline.Eating.StdDev, math.Sqrt(2.5))
	}
	if baseline.Temperature.Median != 38.5 {
		t.Errorf("Temperature.Median = %v, want 38.5", baseline.Temperature.Median)
	}
	if baseline.Temperature.StdDev != 0 {
		t.Errorf("Temperature.StdDev = %v, want 0 for constant values", baseline.Temperature.StdDev)
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	build := func(order []int) *models.Baseline {
		store := newMemStore()
		collector := NewCollector(store)
		builder := NewBaselineBuilder(collector, store, 30, 0.1)

		base := time.Now()
		eatingValues := []float64{8, 9, 10, 11, 12}
		for _, i := range order {
			ts := base.Add(-time.Duration(len(eatingValues)-1-i) * time.Hour)
			if _, err := collector.SaveSnapshot(context.Background(), makePayload("cow-1", eatingValues[i], 0.5, 180, 20, 38.5, ts)); err != nil {
				t.Fatalf("SaveSnapshot() error = %v", err)
			}
		}

		baseline, err := builder.Build(context.Background(), "cow-1", 1)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		return baseline
	}

	forward := build([]int{0, 1, 2, 3, 4})
	shuffled := build([]int{3, 0, 4, 1, 2})

	if forward.Eating != shuffled.Eating {
		t.Errorf("Eating stats differ by insertion order: %+v vs %+v", forward.Eating, shuffled.Eating)
	}
	if forward.Temperature != shuffled.Temperature {
		t.Errorf("Temperature stats differ by insertion order: %+v vs %+v", forward.Temperature, shuffled.Temperature)
	}
}

func TestBuildReplacesPriorBaseline(t *testing.T) {
	store := newMemStore()
	collector := NewCollector(store)
	builder := NewBaselineBuilder(collector, store, 30, 0.1)

	seedSnapshots(t, collector, "cow-1", 5, time.Hour, 10, 0.5, 180, 20, 38.5)
	first, err := builder.Build(context.Background(), "cow-1", 1)
	if err != nil {
		t.Fatalf("first Build() error = %v", err)
	}

	// More data arrives; a rebuild must supersede the prior baseline
	seedSnapshots(t, collector, "cow-1", 5, 30*time.Minute, 20, 0.5, 180, 20, 38.5)
	second, err := builder.Build(context.Background(), "cow-1", 1)
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}

	if second.SampleCount <= first.SampleCount {
		t.Errorf("rebuild SampleCount = %d, want more than %d", second.SampleCount, first.SampleCount)
	}

	stored, err := store.BaselineFor(context.Background(), "cow-1")
	if err != nil {
		t.Fatalf("BaselineFor() error = %v", err)
	}
	if stored.SampleCount != second.SampleCount {
		t.Errorf("stored baseline SampleCount = %d, want %d (the rebuild)", stored.SampleCount, second.SampleCount)
	}
	if stored.Eating.Median != second.Eating.Median {
		t.Errorf("stored Eating.Median = %v, want %v", stored.Eating.Median, second.Eating.Median)
	}
}
