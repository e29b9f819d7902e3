package cache

import (
	"encoding/json"
	"fmt"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"

	"herd-backend/internal/models"
)

// ReportCache keeps the most recent monitoring report per subject in Redis
// so dashboard reads don't re-run a monitoring cycle. Entries expire; the
// ClickHouse report log is the durable record.
type ReportCache struct {
	pool       *redis.Pool
	ttlSeconds int
}

// NewReportCache creates a cache backed by the Redis server at addr.
func NewReportCache(addr string, maxConns, ttlSeconds int) *ReportCache {
	pool := redis.NewPool(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", addr)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, maxConns)

	log.Printf("Report cache configured for Redis at %s (TTL %ds)", addr, ttlSeconds)
	return &ReportCache{pool: pool, ttlSeconds: ttlSeconds}
}

func reportKey(subjectID string) string {
	return "report:latest:" + subjectID
}

// StoreLatest overwrites the subject's cached report.
func (c *ReportCache) StoreLatest(report *models.MonitoringReport) error {
	serialized, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	conn := c.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SETEX", reportKey(report.SubjectID), c.ttlSeconds, serialized); err != nil {
		return fmt.Errorf("failed to cache report for %s: %w", report.SubjectID, err)
	}
	return nil
}

// Latest returns the subject's cached report, or nil when none is cached.
func (c *ReportCache) Latest(subjectID string) (*models.MonitoringReport, error) {
	conn := c.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", reportKey(subjectID)))
	if err == redis.ErrNil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached report for %s: %w", subjectID, err)
	}

	var report models.MonitoringReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached report for %s: %w", subjectID, err)
	}
	return &report, nil
}

// Ping checks the connection; used by the health endpoint.
func (c *ReportCache) Ping() error {
	conn := c.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *ReportCache) Close() error {
	return c.pool.Close()
}
