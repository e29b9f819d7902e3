package models

import "time"

// Workflow paths selected by the decision fusion engine
const (
	WorkflowDiseaseDetected = "DISEASE_DETECTED"
	WorkflowBehaviorOnly    = "NO_DISEASE_BEHAVIOR_ONLY"
)

// Severity levels produced by the severity scorer
const (
	SeverityMild     = 0
	SeverityModerate = 1
	SeveritySevere   = 2
)

// DiseaseVerdict is the result of one disease-detection call against the
// model server (or a pre-computed verdict supplied by the caller).
type DiseaseVerdict struct {
	Found      bool    `json:"found"`
	Disease    string  `json:"disease,omitempty"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// SeverityAssessment is the result of one severity-scoring call.
type SeverityAssessment struct {
	Level         int                `json:"level"` // 0=Mild, 1=Moderate, 2=Severe
	Name          string             `json:"name"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
}

// TreatmentAlternative is one ranked treatment option.
type TreatmentAlternative struct {
	Treatment   string  `json:"treatment"`
	Probability float64 `json:"probability"`
}

// TreatmentPlan is the result of one treatment-recommendation call.
type TreatmentPlan struct {
	Treatment    string                 `json:"treatment"`
	Confidence   float64                `json:"confidence"`
	Alternatives []TreatmentAlternative `json:"alternatives,omitempty"`
}

// SubjectProfile carries the clinical inputs the severity and treatment
// models need alongside the disease name.
type SubjectProfile struct {
	SubjectID       string  `json:"subject_id"`
	WeightKg        float64 `json:"weight_kg"`
	AgeMonths       int     `json:"age_months"`
	TemperatureC    float64 `json:"temperature_celsius"`
	PreviousDisease string  `json:"previous_disease,omitempty"`
}

// MonitoringReport is the assembled output of one monitoring cycle.
// Severity and Treatment are nil on the behavior-only path and for
// subjects classified as healthy by the detector.
type MonitoringReport struct {
	ReportID      string              `json:"report_id"`
	SubjectID     string              `json:"subject_id"`
	GeneratedAt   time.Time           `json:"generated_at"`
	WorkflowPath  string              `json:"workflow_path"`
	Disease       *DiseaseVerdict     `json:"disease,omitempty"`
	Severity      *SeverityAssessment `json:"severity,omitempty"`
	Treatment     *TreatmentPlan      `json:"treatment,omitempty"`
	Behavior      *AnalysisResult     `json:"behavior"`
	NeedsMoreData bool                `json:"needs_more_data"`
}
