package ml

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"herd-backend/internal/models"
)

// ModelServerClient talks to the Python model server hosting the disease
// classifier, the severity model and the treatment model. The models are
// opaque scoring functions to this service; every failure is surfaced as a
// DownstreamModelError naming the collaborator, never converted into a
// default prediction.
type ModelServerClient struct {
	http *resty.Client
}

// NewModelServerClient creates a client for the model server at baseURL.
func NewModelServerClient(baseURL string, timeout time.Duration) *ModelServerClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	log.Printf("Model server client configured for %s (timeout %v)", baseURL, timeout)
	return &ModelServerClient{http: client}
}

type errorResponse struct {
	Error string `json:"error"`
}

type detectRequest struct {
	SubjectID string `json:"subject_id"`
	ImageRef  string `json:"image_ref"`
}

type detectResponse struct {
	Found      bool    `json:"found"`
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// Detect runs the disease classifier against the referenced image.
func (c *ModelServerClient) Detect(ctx context.Context, subjectID, imageRef string) (*models.DiseaseVerdict, error) {
	var result detectResponse
	var apiErr errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(detectRequest{SubjectID: subjectID, ImageRef: imageRef}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/v1/disease/detect")

	if err := c.check("disease detector", subjectID, resp, err, apiErr); err != nil {
		return nil, err
	}

	return &models.DiseaseVerdict{
		Found:      result.Found,
		Disease:    result.Disease,
		Confidence: result.Confidence,
		Model:      result.Model,
	}, nil
}

type severityRequest struct {
	Disease         string  `json:"disease"`
	WeightKg        float64 `json:"weight_kg"`
	AgeMonths       int     `json:"age_months"`
	TemperatureC    float64 `json:"temperature_celsius"`
	PreviousDisease string  `json:"previous_disease,omitempty"`
}

type severityResponse struct {
	Level         int                `json:"level"`
	Name          string             `json:"name"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Score grades a confirmed disease as Mild/Moderate/Severe.
func (c *ModelServerClient) Score(ctx context.Context, disease string, profile models.SubjectProfile) (*models.SeverityAssessment, error) {
	var result severityResponse
	var apiErr errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(severityRequest{
			Disease:         disease,
			WeightKg:        profile.WeightKg,
			AgeMonths:       profile.AgeMonths,
			TemperatureC:    profile.TemperatureC,
			PreviousDisease: profile.PreviousDisease,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/v1/severity/assess")

	if err := c.check("severity scorer", profile.SubjectID, resp, err, apiErr); err != nil {
		return nil, err
	}

	return &models.SeverityAssessment{
		Level:         result.Level,
		Name:          result.Name,
		Confidence:    result.Confidence,
		Probabilities: result.Probabilities,
	}, nil
}

type treatmentRequest struct {
	Disease         string  `json:"disease"`
	SeverityLevel   int     `json:"severity_level"`
	WeightKg        float64 `json:"weight_kg"`
	AgeMonths       int     `json:"age_months"`
	TemperatureC    float64 `json:"temperature_celsius"`
	PreviousDisease string  `json:"previous_disease,omitempty"`
}

type treatmentResponse struct {
	Treatment    string  `json:"treatment"`
	Confidence   float64 `json:"confidence"`
	Alternatives []struct {
		Treatment   string  `json:"treatment"`
		Probability float64 `json:"probability"`
	} `json:"alternatives"`
}

// Recommend proposes a treatment protocol for a graded disease.
func (c *ModelServerClient) Recommend(ctx context.Context, disease string, severityLevel int, profile models.SubjectProfile) (*models.TreatmentPlan, error) {
	var result treatmentResponse
	var apiErr errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(treatmentRequest{
			Disease:         disease,
			SeverityLevel:   severityLevel,
			WeightKg:        profile.WeightKg,
			AgeMonths:       profile.AgeMonths,
			TemperatureC:    profile.TemperatureC,
			PreviousDisease: profile.PreviousDisease,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/v1/treatment/recommend")

	if err := c.check("treatment recommender", profile.SubjectID, resp, err, apiErr); err != nil {
		return nil, err
	}

	plan := &models.TreatmentPlan{
		Treatment:  result.Treatment,
		Confidence: result.Confidence,
	}
	for _, alt := range result.Alternatives {
		plan.Alternatives = append(plan.Alternatives, models.TreatmentAlternative{
			Treatment:   alt.Treatment,
			Probability: alt.Probability,
		})
	}
	return plan, nil
}

// Health checks model server reachability; used by the health endpoint.
func (c *ModelServerClient) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return fmt.Errorf("model server unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("model server unhealthy: status %d", resp.StatusCode())
	}
	return nil
}

func (c *ModelServerClient) check(collaborator, subjectID string, resp *resty.Response, err error, apiErr errorResponse) error {
	if err != nil {
		return &models.DownstreamModelError{Collaborator: collaborator, SubjectID: subjectID, Err: err}
	}
	if resp.IsError() {
		detail := apiErr.Error
		if detail == "" {
			detail = resp.Status()
		}
		return &models.DownstreamModelError{
			Collaborator: collaborator,
			SubjectID:    subjectID,
			Err:          fmt.Errorf("model server returned %d: %s", resp.StatusCode(), detail),
		}
	}
	return nil
}
