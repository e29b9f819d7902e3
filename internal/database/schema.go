package database

// SQL schemas for all ClickHouse tables

const (
	// BehaviorSnapshotsTableSQL creates the append-only snapshot log.
	// Snapshots are immutable; the MergeTree order matches the per-subject
	// time-window reads the analyzer performs.
	BehaviorSnapshotsTableSQL = `
		CREATE TABLE IF NOT EXISTS behavior_snapshots (
			timestamp DateTime64(3),
			subject_id String,
			eating_minutes_per_hour Float64,
			lying_fraction_per_hour Float64,
			steps_per_hour Int64,
			rumination_minutes_per_hour Float64,
			temperature_celsius Float64
		) ENGINE = MergeTree()
		ORDER BY (subject_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// BehaviorBaselinesTableSQL creates the per-subject baseline table.
	// ReplacingMergeTree keyed by subject_id gives copy-on-write replacement:
	// a rebuild inserts a new row and the old one is superseded.
	BehaviorBaselinesTableSQL = `
		CREATE TABLE IF NOT EXISTS behavior_baselines (
			subject_id String,
			created_at DateTime64(3),
			sample_count UInt64,
			eating_median Float64,
			eating_std Float64,
			lying_median Float64,
			lying_std Float64,
			steps_median Float64,
			steps_std Float64,
			rumination_median Float64,
			rumination_std Float64,
			temperature_median Float64,
			temperature_std Float64
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY subject_id
	`

	// MonitoringReportsTableSQL creates the monitoring report log. Reports
	// are ephemeral for callers; this table is an audit trail.
	MonitoringReportsTableSQL = `
		CREATE TABLE IF NOT EXISTS monitoring_reports (
			report_id String,
			timestamp DateTime64(3),
			subject_id String,
			workflow_path String,
			disease String,
			disease_confidence Float64,
			severity_level Int8,
			treatment String,
			behavior_status String,
			behavior_confidence Float64
		) ENGINE = MergeTree()
		ORDER BY (subject_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		BehaviorSnapshotsTableSQL,
		BehaviorBaselinesTableSQL,
		MonitoringReportsTableSQL,
	}
}
