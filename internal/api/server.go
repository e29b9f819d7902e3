package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"herd-backend/internal/behavior"
	"herd-backend/internal/cache"
	"herd-backend/internal/diagnosis"
	"herd-backend/internal/models"
)

// Pinger reports reachability of a backing service for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubjectTracker mirrors the monitor loop's registration hook so subjects
// ingested over HTTP are polled too.
type SubjectTracker interface {
	RegisterSubject(subjectID string)
}

// ModelHealthChecker reports model server reachability.
type ModelHealthChecker interface {
	Health(ctx context.Context) error
}

// Server exposes the behavior-monitoring core over REST.
type Server struct {
	collector *behavior.Collector
	builder   *behavior.BaselineBuilder
	analyzer  *behavior.Analyzer
	engine    *diagnosis.Engine
	reports   *cache.ReportCache
	tracker   SubjectTracker
	db        Pinger
	model     ModelHealthChecker

	defaultWindowHours  float64
	defaultBaselineDays int
}

// ServerConfig holds the request defaults.
type ServerConfig struct {
	DefaultWindowHours  float64
	DefaultBaselineDays int
}

// NewServer creates the API server.
func NewServer(
	collector *behavior.Collector,
	builder *behavior.BaselineBuilder,
	analyzer *behavior.Analyzer,
	engine *diagnosis.Engine,
	reports *cache.ReportCache,
	tracker SubjectTracker,
	db Pinger,
	model ModelHealthChecker,
	config ServerConfig,
) *Server {
	return &Server{
		collector:           collector,
		builder:             builder,
		analyzer:            analyzer,
		engine:              engine,
		reports:             reports,
		tracker:             tracker,
		db:                  db,
		model:               model,
		defaultWindowHours:  config.DefaultWindowHours,
		defaultBaselineDays: config.DefaultBaselineDays,
	}
}

// Router builds the gin router with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	// Static and param segments must not share a prefix level; gin's
	// router rejects that at registration time.
	v1 := router.Group("/api/v1")
	{
		v1.POST("/snapshots", s.saveSnapshot)
		v1.GET("/subjects/:subject_id/analysis", s.analyzeBehavior)
		v1.POST("/subjects/:subject_id/baseline", s.buildBaseline)
		v1.GET("/subjects/:subject_id/baseline", s.getBaseline)
		v1.POST("/monitor", s.monitor)
		v1.GET("/monitor/:subject_id/latest", s.latestReport)
		v1.GET("/health", s.health)
	}

	return router
}

// saveSnapshot ingests one behavior snapshot.
func (s *Server) saveSnapshot(c *gin.Context) {
	var payload models.SnapshotPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed snapshot payload: " + err.Error(), "error_kind": "validation"})
		return
	}

	id, err := s.collector.SaveSnapshot(c.Request.Context(), &payload)
	if err != nil {
		respondError(c, err)
		return
	}

	if s.tracker != nil {
		s.tracker.RegisterSubject(payload.SubjectID)
	}

	hours, err := s.collector.SpanHours(c.Request.Context(), payload.SubjectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"snapshot_id":   id,
		"subject_id":    payload.SubjectID,
		"hours_of_data": hours,
	})
}

// analyzeBehavior runs the anomaly analyzer for one subject.
func (s *Server) analyzeBehavior(c *gin.Context) {
	subjectID := c.Param("subject_id")

	hours := s.defaultWindowHours
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive number", "error_kind": "validation"})
			return
		}
		hours = parsed
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), subjectID, hours)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type buildBaselineRequest struct {
	Days int `json:"days"`
}

// buildBaseline explicitly (re)builds a subject's baseline.
func (s *Server) buildBaseline(c *gin.Context) {
	subjectID := c.Param("subject_id")

	req := buildBaselineRequest{Days: s.defaultBaselineDays}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed baseline request: " + err.Error(), "error_kind": "validation"})
			return
		}
	}
	if req.Days <= 0 {
		req.Days = s.defaultBaselineDays
	}

	baseline, err := s.builder.Build(c.Request.Context(), subjectID, req.Days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, baseline)
}

// getBaseline returns a subject's current baseline.
func (s *Server) getBaseline(c *gin.Context) {
	subjectID := c.Param("subject_id")

	baseline, err := s.collector.Baseline(c.Request.Context(), subjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	if baseline == nil {
		known, err := s.collector.HasData(c.Request.Context(), subjectID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !known {
			respondError(c, &models.UnknownSubjectError{SubjectID: subjectID})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "no baseline for subject " + subjectID, "error_kind": "not_found"})
		return
	}

	c.JSON(http.StatusOK, baseline)
}

type monitorRequest struct {
	SubjectID       string                 `json:"subject_id" binding:"required"`
	WeightKg        float64                `json:"weight_kg"`
	AgeMonths       int                    `json:"age_months"`
	TemperatureC    float64                `json:"temperature_celsius"`
	PreviousDisease string                 `json:"previous_disease"`
	ImageRef        string                 `json:"image_ref"`
	Verdict         *models.DiseaseVerdict `json:"verdict"`
	Hours           float64                `json:"hours"`
}

// monitor runs one full monitoring cycle for a subject.
func (s *Server) monitor(c *gin.Context) {
	var req monitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed monitor request: " + err.Error(), "error_kind": "validation"})
		return
	}
	if req.Verdict == nil && req.ImageRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either image_ref or verdict is required", "error_kind": "validation"})
		return
	}

	report, err := s.engine.Evaluate(c.Request.Context(), diagnosis.Request{
		Profile: models.SubjectProfile{
			SubjectID:       req.SubjectID,
			WeightKg:        req.WeightKg,
			AgeMonths:       req.AgeMonths,
			TemperatureC:    req.TemperatureC,
			PreviousDisease: req.PreviousDisease,
		},
		ImageRef:    req.ImageRef,
		Verdict:     req.Verdict,
		WindowHours: req.Hours,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if s.tracker != nil {
		s.tracker.RegisterSubject(req.SubjectID)
	}

	c.JSON(http.StatusOK, report)
}

// latestReport returns the most recent cached report for a subject.
func (s *Server) latestReport(c *gin.Context) {
	subjectID := c.Param("subject_id")

	report, err := s.reports.Latest(subjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recent report for subject " + subjectID, "error_kind": "not_found"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// health reports service and backing-store status.
func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	components := gin.H{"database": "ok", "cache": "ok", "model_server": "ok"}

	if err := s.db.Ping(c.Request.Context()); err != nil {
		components["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := s.reports.Ping(); err != nil {
		components["cache"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := s.model.Health(c.Request.Context()); err != nil {
		components["model_server"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "components": components})
}

// respondError maps each domain error kind to a distinguishable HTTP
// response so callers can branch programmatically.
func respondError(c *gin.Context, err error) {
	var (
		validationErr   *models.ValidationError
		insufficientErr *models.InsufficientDataError
		unknownErr      *models.UnknownSubjectError
		corruptionErr   *models.DataCorruptionError
		downstreamErr   *models.DownstreamModelError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_kind": "validation"})
	case errors.As(err, &insufficientErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_kind": "insufficient_data"})
	case errors.As(err, &unknownErr):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_kind": "unknown_subject"})
	case errors.As(err, &corruptionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_kind": "data_corruption"})
	case errors.As(err, &downstreamErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "error_kind": "downstream_model"})
	default:
		log.Printf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "error_kind": "internal"})
	}
}
