package patientctx

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
)

type Repository interface {
	GetPatient(ctx context.Context, id uint) (*models.Patient, error)
	ListDocuments(ctx context.Context, patientID uint) ([]models.Document, error)
	ListVitals(ctx context.Context, patientID uint) ([]models.Vital, error)
	ListFamilyHistory(ctx context.Context, patientID uint) ([]models.FamilyHistory, error)
	ListImages(ctx context.Context, patientID uint) ([]models.MedicalImage, error)
	ListTeeth(ctx context.Context, patientID uint) ([]models.DentalFinding, error)
}

// Aggregator assembles a fresh PatientContext on every call.
type Aggregator struct {
	repo Repository
}

func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// BuildContext returns models.ErrPatientNotFound when the patient does not
// exist. A patient without records yields empty, non-nil collections.
func (a *Aggregator) BuildContext(ctx context.Context, patientID uint) (*models.PatientContext, error) {
	patient, err := a.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	pc := &models.PatientContext{Patient: *patient}

	if pc.Documents, err = a.repo.ListDocuments(ctx, patientID); err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	if pc.Vitals, err = a.repo.ListVitals(ctx, patientID); err != nil {
		return nil, fmt.Errorf("loading vitals: %w", err)
	}
	if pc.FamilyHistory, err = a.repo.ListFamilyHistory(ctx, patientID); err != nil {
		return nil, fmt.Errorf("loading family history: %w", err)
	}
	if pc.Images, err = a.repo.ListImages(ctx, patientID); err != nil {
		return nil, fmt.Errorf("loading images: %w", err)
	}
	if pc.DentalRecords, err = a.repo.ListTeeth(ctx, patientID); err != nil {
		return nil, fmt.Errorf("loading dental records: %w", err)
	}

	ensureSlices(pc)
	return pc, nil
}

func ensureSlices(pc *models.PatientContext) {
	if pc.Documents == nil {
		pc.Documents = []models.Document{}
	}
	if pc.Vitals == nil {
		pc.Vitals = []models.Vital{}
	}
	if pc.FamilyHistory == nil {
		pc.FamilyHistory = []models.FamilyHistory{}
	}
	if pc.Images == nil {
		pc.Images = []models.MedicalImage{}
	}
	if pc.DentalRecords == nil {
		pc.DentalRecords = []models.DentalFinding{}
	}
}
