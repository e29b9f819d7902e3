package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	log "github.com/sirupsen/logrus"

	"herd-backend/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()

	tables := AllTables()
	for _, tableSQL := range tables {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// Ping checks the connection; used by the health endpoint.
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// AppendSnapshot appends one behavior snapshot to the log. The insert is
// synchronous: when it returns without error the record is durable.
func (db *ClickHouseDB) AppendSnapshot(ctx context.Context, snap *models.BehaviorSnapshot) error {
	query := `
		INSERT INTO behavior_snapshots
			(timestamp, subject_id, eating_minutes_per_hour, lying_fraction_per_hour,
			 steps_per_hour, rumination_minutes_per_hour, temperature_celsius)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		snap.Timestamp,
		snap.SubjectID,
		snap.Eating,
		snap.Lying,
		snap.Steps,
		snap.Rumination,
		snap.Temperature,
	)

	if err != nil {
		return fmt.Errorf("failed to insert behavior snapshot: %w", err)
	}

	return nil
}

// SnapshotCount returns the total number of stored snapshots. Used to seed
// the append-position counter at startup.
func (db *ClickHouseDB) SnapshotCount(ctx context.Context) (uint64, error) {
	var count uint64
	row := db.conn.QueryRow(ctx, `SELECT count() FROM behavior_snapshots`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// Window returns all snapshots for a subject with timestamp >= since,
// sorted ascending. An unknown subject yields an empty slice, not an error.
func (db *ClickHouseDB) Window(ctx context.Context, subjectID string, since time.Time) ([]models.BehaviorSnapshot, error) {
	query := `
		SELECT timestamp, subject_id, eating_minutes_per_hour, lying_fraction_per_hour,
		       steps_per_hour, rumination_minutes_per_hour, temperature_celsius
		FROM behavior_snapshots
		WHERE subject_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`

	rows, err := db.conn.Query(ctx, query, subjectID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot window: %w", err)
	}
	defer rows.Close()

	snapshots := []models.BehaviorSnapshot{}
	for rows.Next() {
		var snap models.BehaviorSnapshot
		if err := rows.Scan(
			&snap.Timestamp,
			&snap.SubjectID,
			&snap.Eating,
			&snap.Lying,
			&snap.Steps,
			&snap.Rumination,
			&snap.Temperature,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot window: %w", err)
	}

	return snapshots, nil
}

// SpanHours returns max(timestamp)-min(timestamp) across all snapshots for
// a subject, in hours. Zero or one snapshot reports 0.0. This is span, not
// density: two snapshots 30 days apart report 720 hours.
func (db *ClickHouseDB) SpanHours(ctx context.Context, subjectID string) (float64, error) {
	query := `
		SELECT min(timestamp), max(timestamp), count()
		FROM behavior_snapshots
		WHERE subject_id = ?
	`

	var first, last time.Time
	var count uint64
	row := db.conn.QueryRow(ctx, query, subjectID)
	if err := row.Scan(&first, &last, &count); err != nil {
		return 0, fmt.Errorf("failed to query snapshot span: %w", err)
	}

	if count < 2 {
		return 0.0, nil
	}
	return last.Sub(first).Hours(), nil
}

// ReplaceBaseline stores a subject's baseline, superseding any prior one.
// The ReplacingMergeTree keeps the row with the newest created_at, so the
// write never blocks concurrent snapshot ingestion.
func (db *ClickHouseDB) ReplaceBaseline(ctx context.Context, b *models.Baseline) error {
	query := `
		INSERT INTO behavior_baselines
			(subject_id, created_at, sample_count,
			 eating_median, eating_std, lying_median, lying_std,
			 steps_median, steps_std, rumination_median, rumination_std,
			 temperature_median, temperature_std)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		b.SubjectID,
		b.CreatedAt,
		b.SampleCount,
		b.Eating.Median, b.Eating.StdDev,
		b.Lying.Median, b.Lying.StdDev,
		b.Steps.Median, b.Steps.StdDev,
		b.Rumination.Median, b.Rumination.StdDev,
		b.Temperature.Median, b.Temperature.StdDev,
	)

	if err != nil {
		return fmt.Errorf("failed to insert baseline: %w", err)
	}

	log.Printf("Stored baseline for subject %s (%d samples)", b.SubjectID, b.SampleCount)
	return nil
}

// BaselineFor returns the subject's current baseline, or nil when none
// exists. Stored rows failing validation surface as DataCorruptionError.
func (db *ClickHouseDB) BaselineFor(ctx context.Context, subjectID string) (*models.Baseline, error) {
	query := `
		SELECT subject_id, created_at, sample_count,
		       eating_median, eating_std, lying_median, lying_std,
		       steps_median, steps_std, rumination_median, rumination_std,
		       temperature_median, temperature_std
		FROM behavior_baselines FINAL
		WHERE subject_id = ?
	`

	var b models.Baseline
	row := db.conn.QueryRow(ctx, query, subjectID)
	err := row.Scan(
		&b.SubjectID,
		&b.CreatedAt,
		&b.SampleCount,
		&b.Eating.Median, &b.Eating.StdDev,
		&b.Lying.Median, &b.Lying.StdDev,
		&b.Steps.Median, &b.Steps.StdDev,
		&b.Rumination.Median, &b.Rumination.StdDev,
		&b.Temperature.Median, &b.Temperature.StdDev,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline for %s: %w", subjectID, err)
	}

	if err := validateBaseline(&b); err != nil {
		return nil, err
	}

	return &b, nil
}

// validateBaseline rejects stored baselines that cannot have been produced
// by the builder.
func validateBaseline(b *models.Baseline) error {
	if b.SampleCount == 0 {
		return &models.DataCorruptionError{SubjectID: b.SubjectID, Detail: "baseline has zero sample count"}
	}
	stats := map[string]models.MetricStats{
		"eating":      b.Eating,
		"lying":       b.Lying,
		"steps":       b.Steps,
		"rumination":  b.Rumination,
		"temperature": b.Temperature,
	}
	for name, s := range stats {
		if math.IsNaN(s.Median) || math.IsInf(s.Median, 0) {
			return &models.DataCorruptionError{SubjectID: b.SubjectID, Detail: "non-finite " + name + " median"}
		}
		if math.IsNaN(s.StdDev) || s.StdDev < 0 {
			return &models.DataCorruptionError{SubjectID: b.SubjectID, Detail: "invalid " + name + " standard deviation"}
		}
	}
	return nil
}

// InsertReport appends one monitoring report to the audit log.
func (db *ClickHouseDB) InsertReport(ctx context.Context, report *models.MonitoringReport) error {
	disease := ""
	diseaseConfidence := 0.0
	if report.Disease != nil {
		disease = report.Disease.Disease
		diseaseConfidence = report.Disease.Confidence
	}

	// -1 marks "no severity assessed" (behavior-only path or healthy label)
	severityLevel := int8(-1)
	if report.Severity != nil {
		severityLevel = int8(report.Severity.Level)
	}

	treatment := ""
	if report.Treatment != nil {
		treatment = report.Treatment.Treatment
	}

	behaviorStatus := ""
	behaviorConfidence := 0.0
	if report.Behavior != nil {
		behaviorStatus = report.Behavior.Status
		behaviorConfidence = report.Behavior.Confidence
	}

	query := `
		INSERT INTO monitoring_reports
			(report_id, timestamp, subject_id, workflow_path, disease, disease_confidence,
			 severity_level, treatment, behavior_status, behavior_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		report.ReportID,
		report.GeneratedAt,
		report.SubjectID,
		report.WorkflowPath,
		disease,
		diseaseConfidence,
		severityLevel,
		treatment,
		behaviorStatus,
		behaviorConfidence,
	)

	if err != nil {
		return fmt.Errorf("failed to insert monitoring report: %w", err)
	}

	return nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
