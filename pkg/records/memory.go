package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
)

// MemoryStore keeps the Patient aggregate in process memory. It backs the
// "memory" storage driver for local runs and the package tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID uint

	patients      map[uint]models.Patient
	documents     map[uint][]models.Document
	vitals        map[uint][]models.Vital
	familyHistory map[uint][]models.FamilyHistory
	images        map[uint][]models.MedicalImage
	teeth         map[uint]map[string]models.DentalFinding
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients:      make(map[uint]models.Patient),
		documents:     make(map[uint][]models.Document),
		vitals:        make(map[uint][]models.Vital),
		familyHistory: make(map[uint][]models.FamilyHistory),
		images:        make(map[uint][]models.MedicalImage),
		teeth:         make(map[uint]map[string]models.DentalFinding),
	}
}

func (m *MemoryStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) CreatePatient(_ context.Context, patient *models.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.patients {
		if existing.ReferenceNumber == patient.ReferenceNumber {
			return ErrDuplicateReference
		}
	}
	now := time.Now().UTC()
	patient.ID = m.id()
	patient.CreatedAt = now
	patient.UpdatedAt = now
	m.patients[patient.ID] = *patient
	return nil
}

func (m *MemoryStore) ReferenceExists(_ context.Context, reference string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.ReferenceNumber == reference {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) GetPatient(_ context.Context, id uint) (*models.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, models.ErrPatientNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListPatients(_ context.Context) ([]models.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeletePatient(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return models.ErrPatientNotFound
	}
	delete(m.patients, id)
	delete(m.documents, id)
	delete(m.vitals, id)
	delete(m.familyHistory, id)
	delete(m.images, id)
	delete(m.teeth, id)
	return nil
}

func (m *MemoryStore) exists(id uint) error {
	if _, ok := m.patients[id]; !ok {
		return models.ErrPatientNotFound
	}
	return nil
}

func (m *MemoryStore) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(doc.PatientID); err != nil {
		return err
	}
	doc.ID = m.id()
	m.documents[doc.PatientID] = append(m.documents[doc.PatientID], *doc)
	return nil
}

func (m *MemoryStore) ListDocuments(_ context.Context, patientID uint) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Document{}, m.documents[patientID]...), nil
}

func (m *MemoryStore) CreateVital(_ context.Context, vital *models.Vital) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(vital.PatientID); err != nil {
		return err
	}
	vital.ID = m.id()
	m.vitals[vital.PatientID] = append(m.vitals[vital.PatientID], *vital)
	return nil
}

func (m *MemoryStore) ListVitals(_ context.Context, patientID uint) ([]models.Vital, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Vital{}, m.vitals[patientID]...), nil
}

func (m *MemoryStore) CreateFamilyHistory(_ context.Context, entry *models.FamilyHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(entry.PatientID); err != nil {
		return err
	}
	entry.ID = m.id()
	m.familyHistory[entry.PatientID] = append(m.familyHistory[entry.PatientID], *entry)
	return nil
}

func (m *MemoryStore) ListFamilyHistory(_ context.Context, patientID uint) ([]models.FamilyHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.FamilyHistory{}, m.familyHistory[patientID]...), nil
}

func (m *MemoryStore) CreateImage(_ context.Context, img *models.MedicalImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(img.PatientID); err != nil {
		return err
	}
	img.ID = m.id()
	m.images[img.PatientID] = append(m.images[img.PatientID], *img)
	return nil
}

func (m *MemoryStore) ListImages(_ context.Context, patientID uint) ([]models.MedicalImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.MedicalImage{}, m.images[patientID]...), nil
}

func (m *MemoryStore) UpsertTooth(_ context.Context, patientID uint, toothID, condition string) (*models.DentalFinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(patientID); err != nil {
		return nil, err
	}
	teeth, ok := m.teeth[patientID]
	if !ok {
		teeth = make(map[string]models.DentalFinding)
		m.teeth[patientID] = teeth
	}
	finding, ok := teeth[toothID]
	if !ok {
		finding = models.DentalFinding{ID: m.id(), PatientID: patientID, ToothID: toothID}
	}
	finding.Condition = condition
	finding.UpdatedAt = time.Now().UTC()
	teeth[toothID] = finding
	return &finding, nil
}

func (m *MemoryStore) DeleteTooth(_ context.Context, patientID uint, toothID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.teeth[patientID], toothID)
	return nil
}

func (m *MemoryStore) ListTeeth(_ context.Context, patientID uint) ([]models.DentalFinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DentalFinding, 0, len(m.teeth[patientID]))
	for _, f := range m.teeth[patientID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToothID < out[j].ToothID })
	return out, nil
}
