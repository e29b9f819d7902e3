package monitor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"herd-backend/internal/diagnosis"
	"herd-backend/internal/models"
)

// AlertPublisher delivers abnormal-behavior alerts (MQTT in production).
type AlertPublisher interface {
	PublishAlert(alert *models.BehaviorAlert) error
}

// Evaluator runs one monitoring cycle for a subject.
type Evaluator interface {
	Evaluate(ctx context.Context, req diagnosis.Request) (*models.MonitoringReport, error)
}

// Service periodically re-evaluates every tracked subject. Each cycle is a
// behavior-only evaluation (no image is available between barn camera
// passes), so the fusion engine takes the NO_DISEASE path and the loop's
// job is alerting on abnormal behavior. Full image-backed cycles arrive
// through the HTTP monitoring endpoint.
type Service struct {
	engine    Evaluator
	publisher AlertPublisher

	pollingInterval time.Duration
	windowHours     float64

	mu              sync.RWMutex
	trackedSubjects map[string]bool
}

// ServiceConfig holds configuration for the monitor service
type ServiceConfig struct {
	PollingIntervalSeconds int
	WindowHours            float64
}

// DefaultServiceConfig returns default configuration: one pass per
// collection interval, a full day of data per assessment.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		PollingIntervalSeconds: 1800,
		WindowHours:            24,
	}
}

// NewService creates a new monitor service
func NewService(engine Evaluator, publisher AlertPublisher, config ServiceConfig) *Service {
	return &Service{
		engine:          engine,
		publisher:       publisher,
		pollingInterval: time.Duration(config.PollingIntervalSeconds) * time.Second,
		windowHours:     config.WindowHours,
		trackedSubjects: make(map[string]bool),
	}
}

// Start begins the polling loop. Runs until context is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Println("MonitorService: Starting polling loop...")
	log.Printf("MonitorService: Polling every %v, analysis window %.0fh", s.pollingInterval, s.windowHours)

	ticker := time.NewTicker(s.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("MonitorService: Shutting down...")
			return
		case <-ticker.C:
			s.pollAllSubjects(ctx)
		}
	}
}

// pollAllSubjects re-evaluates every tracked subject
func (s *Service) pollAllSubjects(ctx context.Context) {
	subjects := s.TrackedSubjects()
	if len(subjects) == 0 {
		return
	}

	log.Printf("MonitorService: Polling %d subjects", len(subjects))

	for _, subjectID := range subjects {
		if ctx.Err() != nil {
			return // Context cancelled
		}
		s.checkSubject(ctx, subjectID)
	}
}

// checkSubject runs one behavior-only cycle and alerts on abnormal status
func (s *Service) checkSubject(ctx context.Context, subjectID string) {
	report, err := s.engine.Evaluate(ctx, diagnosis.Request{
		Profile: models.SubjectProfile{SubjectID: subjectID},
		Verdict: &models.DiseaseVerdict{Found: false, Model: "none"},

		WindowHours: s.windowHours,
	})
	if err != nil {
		log.Printf("MonitorService: Error evaluating subject %s: %v", subjectID, err)
		return
	}

	behavior := report.Behavior
	if behavior.Status != models.StatusAbnormal {
		return
	}

	log.Printf("MonitorService: ABNORMAL behavior for %s (confidence %.2f, %d flags)",
		subjectID, behavior.Confidence, len(behavior.FlaggedMetrics))

	alert := &models.BehaviorAlert{
		SubjectID:      subjectID,
		Timestamp:      report.GeneratedAt,
		Status:         behavior.Status,
		Confidence:     behavior.Confidence,
		FlaggedMetrics: behavior.FlaggedMetrics,
	}

	if err := s.publisher.PublishAlert(alert); err != nil {
		log.Printf("MonitorService: Error publishing alert for %s: %v", subjectID, err)
	}
}

// RegisterSubject adds a subject to the tracking list
func (s *Service) RegisterSubject(subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trackedSubjects[subjectID] {
		s.trackedSubjects[subjectID] = true
		log.Printf("MonitorService: Now tracking subject %s", subjectID)
	}
}

// TrackedSubjects returns all tracked subject IDs
func (s *Service) TrackedSubjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := make([]string, 0, len(s.trackedSubjects))
	for subjectID := range s.trackedSubjects {
		subjects = append(subjects, subjectID)
	}
	return subjects
}
