package behavior

import (
	"context"
	"fmt"
	"math"

	"herd-backend/internal/models"
)

// Thresholds is the canonical per-metric flagging table. The first four
// are relative deviations from the reference value; temperature is an
// absolute deviation in °C.
type Thresholds struct {
	Eating       float64
	Lying        float64
	Steps        float64
	Rumination   float64
	TemperatureC float64
}

// PopulationNorms are the reference values used for subjects without an
// individual baseline.
type PopulationNorms struct {
	Eating      float64 // minutes per hour
	Lying       float64 // fraction of hour
	Steps       float64 // steps per hour
	Rumination  float64 // minutes per hour
	Temperature float64 // °C
}

// AnalyzerConfig holds the analysis tuning knobs.
type AnalyzerConfig struct {
	MinHours         float64 // minimum data span before any assessment
	RecommendedHours float64 // span at which data quality reaches 1.0
	Thresholds       Thresholds
	Population       PopulationNorms
}

// DefaultAnalyzerConfig returns the default analysis configuration.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinHours:         12,
		RecommendedHours: 24,
		Thresholds: Thresholds{
			Eating:       0.30,
			Lying:        0.25,
			Steps:        0.35,
			Rumination:   0.30,
			TemperatureC: 0.5,
		},
		Population: PopulationNorms{
			Eating:      10,
			Lying:       0.5,
			Steps:       180,
			Rumination:  20,
			Temperature: 38.5,
		},
	}
}

// Analyzer classifies a subject's recent behavior as NORMAL, ABNORMAL or
// INSUFFICIENT_DATA by comparing window averages against the subject's
// baseline (individual when one exists, population norms otherwise).
// Analysis is a pure read: two calls with no intervening writes produce
// identical results.
type Analyzer struct {
	collector *Collector
	cfg       AnalyzerConfig
}

// NewAnalyzer creates an analyzer over the given collector.
func NewAnalyzer(collector *Collector, cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{collector: collector, cfg: cfg}
}

// Analyze evaluates the subject's last `hours` hours of snapshots.
func (a *Analyzer) Analyze(ctx context.Context, subjectID string, hours float64) (*models.AnalysisResult, error) {
	window, err := a.collector.Window(ctx, subjectID, hours)
	if err != nil {
		return nil, err
	}

	if len(window) == 0 {
		return &models.AnalysisResult{
			SubjectID:      subjectID,
			Status:         models.StatusInsufficientData,
			Confidence:     0,
			FlaggedMetrics: []string{},
		}, nil
	}

	span, err := a.collector.SpanHours(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if span < a.cfg.MinHours {
		return &models.AnalysisResult{
			SubjectID:      subjectID,
			Status:         models.StatusInsufficientData,
			Confidence:     math.Min(span/a.cfg.MinHours, 1.0),
			FlaggedMetrics: []string{},
			Current: models.CurrentMetrics{
				SampleCount: len(window),
				SpanHours:   span,
			},
		}, nil
	}

	current := windowAverages(window, span)

	reference := a.cfg.Population
	baselineType := models.BaselinePopulation
	baseline, err := a.collector.Baseline(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if baseline != nil {
		reference = PopulationNorms{
			Eating:      baseline.Eating.Median,
			Lying:       baseline.Lying.Median,
			Steps:       baseline.Steps.Median,
			Rumination:  baseline.Rumination.Median,
			Temperature: baseline.Temperature.Median,
		}
		baselineType = models.BaselineIndividual
		if err := checkReference(subjectID, reference); err != nil {
			return nil, err
		}
	}

	var flags []string
	var scores []float64

	// Relative-deviation metrics, strict > comparison against the table
	relative := []struct {
		label     string
		current   float64
		reference float64
		threshold float64
	}{
		{"Eating time", current.Eating, reference.Eating, a.cfg.Thresholds.Eating},
		{"Lying time", current.Lying, reference.Lying, a.cfg.Thresholds.Lying},
		{"Activity level", current.Steps, reference.Steps, a.cfg.Thresholds.Steps},
		{"Rumination", current.Rumination, reference.Rumination, a.cfg.Thresholds.Rumination},
	}
	for _, m := range relative {
		deviation := math.Abs(m.current-m.reference) / m.reference
		if deviation > m.threshold {
			flags = append(flags, fmt.Sprintf("%s %s%.0f%% from baseline", m.label, arrow(m.current, m.reference), deviation*100))
			scores = append(scores, deviation)
		}
	}

	// Temperature is absolute: a 0.5°C shift matters regardless of the
	// reference value. Its score maps a plausible 0-2°C range into 0-1.
	tempDeviation := math.Abs(current.Temperature - reference.Temperature)
	if tempDeviation > a.cfg.Thresholds.TemperatureC {
		flags = append(flags, fmt.Sprintf("Temperature %s%.1f°C from normal", arrow(current.Temperature, reference.Temperature), tempDeviation))
		scores = append(scores, tempDeviation/2.0)
	}

	dataQuality := math.Min(span/a.cfg.RecommendedHours, 1.0)
	baselineQuality := 0.7
	if baselineType == models.BaselineIndividual {
		baselineQuality = 1.0
	}

	var confidence float64
	if len(scores) > 0 {
		confidence = mean(scores) * dataQuality * baselineQuality
	} else {
		confidence = 0.9 * dataQuality * baselineQuality
	}

	status := models.StatusNormal
	if len(flags) >= 2 {
		status = models.StatusAbnormal
	} else if len(flags) == 1 && scores[0] > 0.5 {
		// Single major deviation. Exactly 0.5 stays NORMAL.
		status = models.StatusAbnormal
	}

	if flags == nil {
		flags = []string{}
	}

	return &models.AnalysisResult{
		SubjectID:      subjectID,
		Status:         status,
		Confidence:     confidence,
		FlaggedMetrics: flags,
		Current:        current,
		BaselineType:   baselineType,
	}, nil
}

func windowAverages(window []models.BehaviorSnapshot, span float64) models.CurrentMetrics {
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

	return models.CurrentMetrics{
		Eating:      mean(eating),
		Lying:       mean(lying),
		Steps:       mean(steps),
		Rumination:  mean(rumination),
		Temperature: mean(temperature),
		SampleCount: len(window),
		SpanHours:   span,
	}
}

// checkReference rejects individual baselines whose relative-metric medians
// would make the deviation ratio meaningless.
func checkReference(subjectID string, ref PopulationNorms) error {
	if ref.Eating <= 0 || ref.Lying <= 0 || ref.Steps <= 0 || ref.Rumination <= 0 {
		return &models.DataCorruptionError{SubjectID: subjectID, Detail: "baseline median must be positive for relative metrics"}
	}
	return nil
}

func arrow(current, reference float64) string {
	if current < reference {
		return "↓"
	}
	return "↑"
}
