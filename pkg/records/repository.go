package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	db *gorm.DB
}

var _ Store = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&PatientRow{},
		&DocumentRow{},
		&VitalRow{},
		&FamilyHistoryRow{},
		&ImageRow{},
		&DentalRow{},
	)
}

func (r *Repository) CreatePatient(ctx context.Context, patient *models.Patient) error {
	now := time.Now().UTC()
	row := PatientRow{
		ReferenceNumber: patient.ReferenceNumber,
		Name:            patient.Name,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*patient = toPatient(row)
	return nil
}

func (r *Repository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PatientRow{}).
		Where("reference_number = ?", reference).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) GetPatient(ctx context.Context, id uint) (*models.Patient, error) {
	var row PatientRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	p := toPatient(row)
	return &p, nil
}

func (r *Repository) ListPatients(ctx context.Context) ([]models.Patient, error) {
	var rows []PatientRow
	if err := r.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Patient, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPatient(row))
	}
	return out, nil
}

// DeletePatient removes children explicitly inside the transaction so the
// cascade holds even on schemas created without ON DELETE CASCADE.
func (r *Repository) DeletePatient(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&PatientRow{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrPatientNotFound
		}
		for _, child := range []interface{}{&DocumentRow{}, &VitalRow{}, &FamilyHistoryRow{}, &ImageRow{}, &DentalRow{}} {
			if err := tx.Where("patient_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("cascading delete: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) ensurePatient(ctx context.Context, id uint) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&PatientRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.ErrPatientNotFound
	}
	return nil
}

func (r *Repository) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := r.ensurePatient(ctx, doc.PatientID); err != nil {
		return err
	}
	row := DocumentRow{
		PatientID:    doc.PatientID,
		Filename:     doc.Filename,
		FilePath:     doc.FilePath,
		ParsedText:   doc.ParsedText,
		DocumentType: doc.DocumentType,
		UploadedAt:   doc.UploadedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*doc = toDocument(row)
	return nil
}

func (r *Repository) ListDocuments(ctx context.Context, patientID uint) ([]models.Document, error) {
	var rows []DocumentRow
	if err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDocument(row))
	}
	return out, nil
}

func (r *Repository) CreateVital(ctx context.Context, vital *models.Vital) error {
	if err := r.ensurePatient(ctx, vital.PatientID); err != nil {
		return err
	}
	row := fromVital(vital)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*vital = toVital(row)
	return nil
}

func (r *Repository) ListVitals(ctx context.Context, patientID uint) ([]models.Vital, error) {
	var rows []VitalRow
	if err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Vital, 0, len(rows))
	for _, row := range rows {
		out = append(out, toVital(row))
	}
	return out, nil
}

func (r *Repository) CreateFamilyHistory(ctx context.Context, entry *models.FamilyHistory) error {
	if err := r.ensurePatient(ctx, entry.PatientID); err != nil {
		return err
	}
	row := FamilyHistoryRow{
		PatientID:     entry.PatientID,
		Condition:     entry.Condition,
		ConditionCode: entry.ConditionCode,
		Relation:      entry.Relation,
		AgeOfOnset:    entry.AgeOfOnset,
		Notes:         entry.Notes,
		RecordedAt:    entry.RecordedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*entry = toFamilyHistory(row)
	return nil
}

func (r *Repository) ListFamilyHistory(ctx context.Context, patientID uint) ([]models.FamilyHistory, error) {
	var rows []FamilyHistoryRow
	if err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.FamilyHistory, 0, len(rows))
	for _, row := range rows {
		out = append(out, toFamilyHistory(row))
	}
	return out, nil
}

func (r *Repository) CreateImage(ctx context.Context, img *models.MedicalImage) error {
	if err := r.ensurePatient(ctx, img.PatientID); err != nil {
		return err
	}
	row := ImageRow{
		PatientID:   img.PatientID,
		Filename:    img.Filename,
		FilePath:    img.FilePath,
		ImageType:   img.ImageType,
		Description: img.Description,
		Info:        datatypes.JSONMap(img.Info),
		UploadedAt:  img.UploadedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*img = toImage(row)
	return nil
}

func (r *Repository) ListImages(ctx context.Context, patientID uint) ([]models.MedicalImage, error) {
	var rows []ImageRow
	if err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.MedicalImage, 0, len(rows))
	for _, row := range rows {
		out = append(out, toImage(row))
	}
	return out, nil
}

func (r *Repository) UpsertTooth(ctx context.Context, patientID uint, toothID, condition string) (*models.DentalFinding, error) {
	if err := r.ensurePatient(ctx, patientID); err != nil {
		return nil, err
	}
	row := DentalRow{
		PatientID: patientID,
		ToothID:   toothID,
		Condition: condition,
		UpdatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient_id"}, {Name: "tooth_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"condition", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	var saved DentalRow
	if err := r.db.WithContext(ctx).
		Where("patient_id = ? AND tooth_id = ?", patientID, toothID).
		First(&saved).Error; err != nil {
		return nil, err
	}
	finding := toDental(saved)
	return &finding, nil
}

func (r *Repository) DeleteTooth(ctx context.Context, patientID uint, toothID string) error {
	return r.db.WithContext(ctx).
		Where("patient_id = ? AND tooth_id = ?", patientID, toothID).
		Delete(&DentalRow{}).Error
}

func (r *Repository) ListTeeth(ctx context.Context, patientID uint) ([]models.DentalFinding, error) {
	var rows []DentalRow
	if err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("tooth_id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.DentalFinding, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDental(row))
	}
	return out, nil
}
