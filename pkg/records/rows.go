package records

import (
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"gorm.io/datatypes"
)

type PatientRow struct {
	ID              uint   `gorm:"primaryKey"`
	ReferenceNumber string `gorm:"size:50;uniqueIndex;not null"`
	Name            string `gorm:"size:200;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Documents     []DocumentRow      `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
	Vitals        []VitalRow         `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
	FamilyHistory []FamilyHistoryRow `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
	Images        []ImageRow         `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
	DentalRecords []DentalRow        `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (PatientRow) TableName() string {
	return "patients"
}

type DocumentRow struct {
	ID           uint    `gorm:"primaryKey"`
	PatientID    uint    `gorm:"index;not null"`
	Filename     string  `gorm:"size:255;not null"`
	FilePath     string  `gorm:"size:500;not null"`
	ParsedText   *string `gorm:"type:text"`
	DocumentType string  `gorm:"size:100"`
	UploadedAt   time.Time
}

func (DocumentRow) TableName() string {
	return "documents"
}

type VitalRow struct {
	ID                     uint `gorm:"primaryKey"`
	PatientID              uint `gorm:"index;not null"`
	Temperature            *float64
	Weight                 *float64
	Height                 *float64
	BloodPressureSystolic  *int
	BloodPressureDiastolic *int
	HeartRate              *int
	RespiratoryRate        *int
	OxygenSaturation       *float64
	RecordedAt             time.Time
}

func (VitalRow) TableName() string {
	return "vitals"
}

type FamilyHistoryRow struct {
	ID            uint   `gorm:"primaryKey"`
	PatientID     uint   `gorm:"index;not null"`
	Condition     string `gorm:"size:200;not null"`
	ConditionCode string `gorm:"size:20"`
	Relation      string `gorm:"size:100"`
	AgeOfOnset    *int
	Notes         string `gorm:"type:text"`
	RecordedAt    time.Time
}

func (FamilyHistoryRow) TableName() string {
	return "family_history"
}

type ImageRow struct {
	ID          uint              `gorm:"primaryKey"`
	PatientID   uint              `gorm:"index;not null"`
	Filename    string            `gorm:"size:255;not null"`
	FilePath    string            `gorm:"size:500;not null"`
	ImageType   string            `gorm:"size:100"`
	Description string            `gorm:"type:text"`
	Info        datatypes.JSONMap `gorm:"type:jsonb"`
	UploadedAt  time.Time
}

func (ImageRow) TableName() string {
	return "medical_images"
}

type DentalRow struct {
	ID        uint   `gorm:"primaryKey"`
	PatientID uint   `gorm:"not null;uniqueIndex:idx_patient_tooth"`
	ToothID   string `gorm:"size:10;not null;uniqueIndex:idx_patient_tooth"`
	Condition string `gorm:"size:20;not null"`
	UpdatedAt time.Time
}

func (DentalRow) TableName() string {
	return "dental_assessments"
}

func toPatient(r PatientRow) models.Patient {
	return models.Patient{
		ID:              r.ID,
		ReferenceNumber: r.ReferenceNumber,
		Name:            r.Name,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toDocument(r DocumentRow) models.Document {
	return models.Document{
		ID:           r.ID,
		PatientID:    r.PatientID,
		Filename:     r.Filename,
		FilePath:     r.FilePath,
		ParsedText:   r.ParsedText,
		DocumentType: r.DocumentType,
		UploadedAt:   r.UploadedAt,
	}
}

func toVital(r VitalRow) models.Vital {
	return models.Vital{
		ID:                     r.ID,
		PatientID:              r.PatientID,
		Temperature:            r.Temperature,
		Weight:                 r.Weight,
		Height:                 r.Height,
		BloodPressureSystolic:  r.BloodPressureSystolic,
		BloodPressureDiastolic: r.BloodPressureDiastolic,
		HeartRate:              r.HeartRate,
		RespiratoryRate:        r.RespiratoryRate,
		OxygenSaturation:       r.OxygenSaturation,
		RecordedAt:             r.RecordedAt,
	}
}

func fromVital(v *models.Vital) VitalRow {
	return VitalRow{
		PatientID:              v.PatientID,
		Temperature:            v.Temperature,
		Weight:                 v.Weight,
		Height:                 v.Height,
		BloodPressureSystolic:  v.BloodPressureSystolic,
		BloodPressureDiastolic: v.BloodPressureDiastolic,
		HeartRate:              v.HeartRate,
		RespiratoryRate:        v.RespiratoryRate,
		OxygenSaturation:       v.OxygenSaturation,
		RecordedAt:             v.RecordedAt,
	}
}

func toFamilyHistory(r FamilyHistoryRow) models.FamilyHistory {
	return models.FamilyHistory{
		ID:            r.ID,
		PatientID:     r.PatientID,
		Condition:     r.Condition,
		ConditionCode: r.ConditionCode,
		Relation:      r.Relation,
		AgeOfOnset:    r.AgeOfOnset,
		Notes:         r.Notes,
		RecordedAt:    r.RecordedAt,
	}
}

func toImage(r ImageRow) models.MedicalImage {
	return models.MedicalImage{
		ID:          r.ID,
		PatientID:   r.PatientID,
		Filename:    r.Filename,
		FilePath:    r.FilePath,
		ImageType:   r.ImageType,
		Description: r.Description,
		Info:        map[string]interface{}(r.Info),
		UploadedAt:  r.UploadedAt,
	}
}

func toDental(r DentalRow) models.DentalFinding {
	return models.DentalFinding{
		ID:        r.ID,
		PatientID: r.PatientID,
		ToothID:   r.ToothID,
		Condition: r.Condition,
		UpdatedAt: r.UpdatedAt,
	}
}
