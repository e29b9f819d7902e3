package ingest

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"herd-backend/internal/behavior"
	"herd-backend/internal/models"
)

// Tracker is notified when a subject produces data, so the monitor loop
// knows which subjects to poll.
type Tracker interface {
	RegisterSubject(subjectID string)
}

// Service consumes behavior snapshots from the MQTT channel and persists
// them through the collector. HTTP ingestion takes the same path through
// the collector, just without the channel hop.
type Service struct {
	collector *behavior.Collector
	tracker   Tracker

	// Input channel from the MQTT subscriber
	SnapshotChan chan *models.SnapshotPayload
}

// ServiceConfig holds configuration for the ingest service
type ServiceConfig struct {
	SnapshotChannelSize int
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		SnapshotChannelSize: 100,
	}
}

// NewService creates a new ingest service
func NewService(collector *behavior.Collector, tracker Tracker, config ServiceConfig) *Service {
	return &Service{
		collector:    collector,
		tracker:      tracker,
		SnapshotChan: make(chan *models.SnapshotPayload, config.SnapshotChannelSize),
	}
}

// Start begins processing snapshots from the channel.
// Runs until context is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Println("IngestService: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("IngestService: Shutting down...")
			return

		case payload, ok := <-s.SnapshotChan:
			if !ok {
				log.Println("IngestService: Snapshot channel closed, shutting down...")
				return
			}
			s.process(ctx, payload)
		}
	}
}

func (s *Service) process(ctx context.Context, payload *models.SnapshotPayload) {
	id, err := s.collector.SaveSnapshot(ctx, payload)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			log.Printf("IngestService: Rejected snapshot from %s: %v", payload.SubjectID, verr)
		} else {
			log.Printf("IngestService: Error saving snapshot from %s: %v", payload.SubjectID, err)
		}
		return
	}

	if s.tracker != nil {
		s.tracker.RegisterSubject(payload.SubjectID)
	}

	hours, err := s.collector.SpanHours(ctx, payload.SubjectID)
	if err != nil {
		log.Printf("IngestService: Error reading data span for %s: %v", payload.SubjectID, err)
		return
	}

	log.Printf("IngestService: Saved snapshot %d for %s (%.1f hours of data)", id, payload.SubjectID, hours)
}
