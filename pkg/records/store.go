package records

import (
	"context"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
)

// Store is the persistence collaborator for the Patient aggregate. Every call
// commits atomically; deleting a patient removes all of its child records.
type Store interface {
	CreatePatient(ctx context.Context, patient *models.Patient) error
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	GetPatient(ctx context.Context, id uint) (*models.Patient, error)
	ListPatients(ctx context.Context) ([]models.Patient, error)
	DeletePatient(ctx context.Context, id uint) error

	CreateDocument(ctx context.Context, doc *models.Document) error
	ListDocuments(ctx context.Context, patientID uint) ([]models.Document, error)

	CreateVital(ctx context.Context, vital *models.Vital) error
	ListVitals(ctx context.Context, patientID uint) ([]models.Vital, error)

	CreateFamilyHistory(ctx context.Context, entry *models.FamilyHistory) error
	ListFamilyHistory(ctx context.Context, patientID uint) ([]models.FamilyHistory, error)

	CreateImage(ctx context.Context, img *models.MedicalImage) error
	ListImages(ctx context.Context, patientID uint) ([]models.MedicalImage, error)

	UpsertTooth(ctx context.Context, patientID uint, toothID, condition string) (*models.DentalFinding, error)
	DeleteTooth(ctx context.Context, patientID uint, toothID string) error
	ListTeeth(ctx context.Context, patientID uint) ([]models.DentalFinding, error)
}
