package models

import "time"

// Analysis status values returned by the behavior analyzer
const (
	StatusNormal           = "NORMAL"
	StatusAbnormal         = "ABNORMAL"
	StatusInsufficientData = "INSUFFICIENT_DATA"
)

// Baseline kinds used for the analysis
const (
	BaselineIndividual = "individual"
	BaselinePopulation = "population"
)

// BehaviorSnapshot is one timestamped behavioral observation for a subject.
// Snapshots are append-only; once stored they are never updated or deleted.
type BehaviorSnapshot struct {
	SubjectID   string    `json:"subject_id"`
	Timestamp   time.Time `json:"timestamp"`
	Eating      float64   `json:"eating_minutes_per_hour"`
	Lying       float64   `json:"lying_fraction_per_hour"` // 0-1
	Steps       int64     `json:"steps_per_hour"`
	Rumination  float64   `json:"rumination_minutes_per_hour"`
	Temperature float64   `json:"temperature_celsius"`
}

// SnapshotPayload is the wire shape for snapshot ingestion (HTTP and MQTT).
// Metric fields are pointers so a missing field is distinguishable from zero.
type SnapshotPayload struct {
	SubjectID   string     `json:"subject_id,omitempty"`
	Eating      *float64   `json:"eating_minutes_per_hour"`
	Lying       *float64   `json:"lying_fraction_per_hour"`
	Steps       *int64     `json:"steps_per_hour"`
	Rumination  *float64   `json:"rumination_minutes_per_hour"`
	Temperature *float64   `json:"temperature_celsius"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// BehaviorAlert is published over MQTT when the monitor loop classifies a
// subject as abnormal.
type BehaviorAlert struct {
	SubjectID      string    `json:"subject_id"`
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
	Confidence     float64   `json:"confidence"`
	FlaggedMetrics []string  `json:"flagged_metrics"`
}

// MetricStats holds the reference statistics for one metric in a baseline.
type MetricStats struct {
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Baseline is a per-subject reference profile built from historical
// snapshots. Only one baseline exists per subject; rebuilds replace it.
type Baseline struct {
	SubjectID   string      `json:"subject_id"`
	CreatedAt   time.Time   `json:"created_at"`
	SampleCount uint64      `json:"sample_count"`
	Eating      MetricStats `json:"eating_minutes_per_hour"`
	Lying       MetricStats `json:"lying_fraction_per_hour"`
	Steps       MetricStats `json:"steps_per_hour"`
	Rumination  MetricStats `json:"rumination_minutes_per_hour"`
	Temperature MetricStats `json:"temperature_celsius"`
}

// CurrentMetrics are the per-metric window averages computed for one
// analysis, plus metadata about the data that backed them.
type CurrentMetrics struct {
	Eating      float64 `json:"eating_minutes_per_hour"`
	Lying       float64 `json:"lying_fraction_per_hour"`
	Steps       float64 `json:"steps_per_hour"`
	Rumination  float64 `json:"rumination_minutes_per_hour"`
	Temperature float64 `json:"temperature_celsius"`
	SampleCount int     `json:"sample_count"`
	SpanHours   float64 `json:"time_span_hours"`
}

// AnalysisResult is the output of one analyzer invocation. It is computed
// fresh per request and never persisted.
type AnalysisResult struct {
	SubjectID      string         `json:"subject_id"`
	Status         string         `json:"status"`
	Confidence     float64        `json:"confidence"`
	FlaggedMetrics []string       `json:"flagged_metrics"`
	Current        CurrentMetrics `json:"current_metrics"`
	BaselineType   string         `json:"baseline_type"`
}
