package diagnosis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"herd-backend/internal/models"
)

// Collaborator names used in DownstreamModelError
const (
	CollaboratorDetector    = "disease detector"
	CollaboratorScorer      = "severity scorer"
	CollaboratorRecommender = "treatment recommender"
)

// DiseaseDetector classifies an image and reports whether a disease was
// found. Backed by the model server in production.
type DiseaseDetector interface {
	Detect(ctx context.Context, subjectID, imageRef string) (*models.DiseaseVerdict, error)
}

// SeverityScorer grades a confirmed disease as Mild/Moderate/Severe.
type SeverityScorer interface {
	Score(ctx context.Context, disease string, profile models.SubjectProfile) (*models.SeverityAssessment, error)
}

// TreatmentRecommender proposes a treatment for a graded disease.
type TreatmentRecommender interface {
	Recommend(ctx context.Context, disease string, severityLevel int, profile models.SubjectProfile) (*models.TreatmentPlan, error)
}

// BehaviorAnalyzer produces the behavior-based assessment for a subject.
type BehaviorAnalyzer interface {
	Analyze(ctx context.Context, subjectID string, hours float64) (*models.AnalysisResult, error)
}

// ReportSink receives finished reports for the audit log.
type ReportSink interface {
	InsertReport(ctx context.Context, report *models.MonitoringReport) error
}

// ReportCache receives finished reports for the latest-report lookups.
type ReportCache interface {
	StoreLatest(report *models.MonitoringReport) error
}

// Request describes one monitoring cycle. Either Verdict is supplied
// pre-computed, or ImageRef names the image the detector should classify.
type Request struct {
	Profile     models.SubjectProfile
	ImageRef    string
	Verdict     *models.DiseaseVerdict
	WindowHours float64 // 0 means the engine default
}

// Engine runs one monitoring cycle: behavior analysis and disease
// detection in parallel (they have no data dependency), then a decision on
// which workflow to follow. A confirmed disease proceeds to severity
// scoring and treatment recommendation; otherwise the report carries the
// behavior assessment alone. Collaborator failures abort the cycle and
// surface as DownstreamModelError; no partial report is fabricated.
type Engine struct {
	analyzer    BehaviorAnalyzer
	detector    DiseaseDetector
	scorer      SeverityScorer
	recommender TreatmentRecommender

	windowHours float64
	sink        ReportSink
	cache       ReportCache
}

// NewEngine creates a fusion engine. windowHours is the default behavior
// analysis window.
func NewEngine(
	analyzer BehaviorAnalyzer,
	detector DiseaseDetector,
	scorer SeverityScorer,
	recommender TreatmentRecommender,
	windowHours float64,
) *Engine {
	return &Engine{
		analyzer:    analyzer,
		detector:    detector,
		scorer:      scorer,
		recommender: recommender,
		windowHours: windowHours,
	}
}

// SetReportSink enables best-effort report persistence.
func (e *Engine) SetReportSink(sink ReportSink) {
	e.sink = sink
}

// SetReportCache enables best-effort latest-report caching.
func (e *Engine) SetReportCache(cache ReportCache) {
	e.cache = cache
}

// Evaluate runs one monitoring cycle and assembles the report.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*models.MonitoringReport, error) {
	subjectID := req.Profile.SubjectID

	hours := req.WindowHours
	if hours <= 0 {
		hours = e.windowHours
	}

	// Detection runs concurrently with the behavior analysis when no
	// pre-computed verdict was supplied.
	verdict := req.Verdict
	var detectErr error
	detected := make(chan struct{})
	if verdict == nil {
		go func() {
			defer close(detected)
			verdict, detectErr = e.detector.Detect(ctx, subjectID, req.ImageRef)
		}()
	} else {
		close(detected)
	}

	analysis, analyzeErr := e.analyzer.Analyze(ctx, subjectID, hours)
	<-detected

	if analyzeErr != nil {
		return nil, analyzeErr
	}
	if detectErr != nil {
		return nil, e.downstream(CollaboratorDetector, subjectID, detectErr)
	}

	report := &models.MonitoringReport{
		ReportID:      uuid.NewString(),
		SubjectID:     subjectID,
		GeneratedAt:   time.Now(),
		Disease:       verdict,
		Behavior:      analysis,
		NeedsMoreData: analysis.Status == models.StatusInsufficientData,
	}

	if verdict.Found {
		report.WorkflowPath = models.WorkflowDiseaseDetected

		if strings.EqualFold(verdict.Disease, "healthy") {
			// The classifier has a "Healthy" label; nothing to grade or treat.
			report.Treatment = &models.TreatmentPlan{Treatment: "No treatment needed", Confidence: 1.0}
		} else {
			severity, err := e.scorer.Score(ctx, verdict.Disease, req.Profile)
			if err != nil {
				return nil, e.downstream(CollaboratorScorer, subjectID, err)
			}
			report.Severity = severity

			treatment, err := e.recommender.Recommend(ctx, verdict.Disease, severity.Level, req.Profile)
			if err != nil {
				return nil, e.downstream(CollaboratorRecommender, subjectID, err)
			}
			report.Treatment = treatment
		}
	} else {
		report.WorkflowPath = models.WorkflowBehaviorOnly
	}

	e.record(ctx, report)
	return report, nil
}

// record persists and caches the finished report. Failures here do not
// fail the cycle; the report has already been assembled for the caller.
func (e *Engine) record(ctx context.Context, report *models.MonitoringReport) {
	if e.sink != nil {
		if err := e.sink.InsertReport(ctx, report); err != nil {
			log.Printf("Error persisting monitoring report %s: %v", report.ReportID, err)
		}
	}
	if e.cache != nil {
		if err := e.cache.StoreLatest(report); err != nil {
			log.Printf("Error caching monitoring report %s: %v", report.ReportID, err)
		}
	}
}

func (e *Engine) downstream(collaborator, subjectID string, err error) error {
	var dme *models.DownstreamModelError
	if errors.As(err, &dme) {
		return err
	}
	return &models.DownstreamModelError{Collaborator: collaborator, SubjectID: subjectID, Err: err}
}
