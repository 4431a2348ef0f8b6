package models

import (
	"errors"
	"time"
)

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// Patient records
type Patient struct {
	ID              uint      `json:"id"`
	ReferenceNumber string    `json:"reference_number"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreatePatientRequest struct {
	Name            string `json:"name"`
	ReferenceNumber string `json:"reference_number,omitempty"`
}

// ParsedText is nil when nothing was extracted. A failed parse still stores
// the diagnostic string here.
type Document struct {
	ID           uint      `json:"id"`
	PatientID    uint      `json:"patient_id"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"-"`
	ParsedText   *string   `json:"parsed_text"`
	DocumentType string    `json:"document_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type Vital struct {
	ID                     uint      `json:"id"`
	PatientID              uint      `json:"patient_id"`
	Temperature            *float64  `json:"temperature"`
	Weight                 *float64  `json:"weight"`
	Height                 *float64  `json:"height"`
	BloodPressureSystolic  *int      `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *int      `json:"blood_pressure_diastolic"`
	HeartRate              *int      `json:"heart_rate"`
	RespiratoryRate        *int      `json:"respiratory_rate"`
	OxygenSaturation       *float64  `json:"oxygen_saturation"`
	RecordedAt             time.Time `json:"recorded_at"`
}

type FamilyHistory struct {
	ID        uint   `json:"id"`
	PatientID uint   `json:"patient_id"`
	Condition string `json:"condition"`
	// ConditionCode is the ICD-10 code when the condition is in the catalog.
	ConditionCode string    `json:"condition_code,omitempty"`
	Relation      string    `json:"relation,omitempty"`
	AgeOfOnset    *int      `json:"age_of_onset"`
	Notes         string    `json:"notes,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type MedicalImage struct {
	ID          uint                   `json:"id"`
	PatientID   uint                   `json:"patient_id"`
	Filename    string                 `json:"filename"`
	FilePath    string                 `json:"-"`
	ImageType   string                 `json:"image_type"`
	Description string                 `json:"description,omitempty"`
	Info        map[string]interface{} `json:"info,omitempty"`
	UploadedAt  time.Time              `json:"uploaded_at"`
}

// DentalFinding is a single tooth annotation. A tooth with no finding has no row.
type DentalFinding struct {
	ID        uint      `json:"id"`
	PatientID uint      `json:"patient_id"`
	ToothID   string    `json:"tooth_id"`
	Condition string    `json:"condition"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PatientContext is assembled per request and never cached.
type PatientContext struct {
	Patient       Patient         `json:"patient"`
	Documents     []Document      `json:"documents"`
	Vitals        []Vital         `json:"vitals"`
	FamilyHistory []FamilyHistory `json:"family_history"`
	Images        []MedicalImage  `json:"images"`
	DentalRecords []DentalFinding `json:"dental_records"`
}

// Chat
type ChatRequest struct {
	Question string `json:"question"`
}

type ChatResponse struct {
	Question           string `json:"question"`
	Response           string `json:"response"`
	Source             string `json:"source"`
	PatientContextUsed bool   `json:"patient_context_used"`
}

type ChatTurn struct {
	Question string    `json:"question"`
	Response string    `json:"response"`
	Source   string    `json:"source"`
	AskedAt  time.Time `json:"asked_at"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // document.uploaded, vitals.recorded, tooth.updated, ...
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
