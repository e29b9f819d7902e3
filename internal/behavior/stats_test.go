package behavior

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", []float64{}, 0},
		{"single value", []float64{5}, 5},
		{"odd count", []float64{3, 1, 2}, 2},
		{"even count averages middle pair", []float64{4, 1, 3, 2}, 2.5},
		{"outlier does not move the median", []float64{10, 10, 10, 10, 1000}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := median(tt.values)
			if got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	median(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("median mutated its input: %v", values)
	}
}

func TestSampleStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", []float64{}, 0},
		{"single value", []float64{5}, 0},
		{"identical values", []float64{7, 7, 7, 7}, 0},
		{"known spread", []float64{8, 9, 10, 11, 12}, math.Sqrt(2.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sampleStdDev(tt.values)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("sampleStdDev(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestMean(t *testing.T) {
	if got := mean([]float64{}); got != 0 {
		t.Errorf("mean(empty) = %v, want 0", got)
	}
	if got := mean([]float64{2, 4, 6}); got != 4 {
		t.Errorf("mean([2 4 6]) = %v, want 4", got)
	}
}
