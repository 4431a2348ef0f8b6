package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/validation"
)

var ErrDuplicateReference = errors.New("reference number already registered")

// GenerateReference builds a code of the form PAT-20240131-1A2B3C4D.
func GenerateReference(now time.Time) string {
	return fmt.Sprintf("PAT-%s-%s", now.Format("20060102"), shortID(8))
}

// Disambiguate appends a short suffix to a reference that is already taken.
func Disambiguate(reference string) string {
	return fmt.Sprintf("%s-%s", reference, shortID(4))
}

func shortID(n int) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return id[:n]
}

// RegisterPatient creates a patient, generating a reference number when none
// is supplied and suffixing it when it collides with an existing one.
func RegisterPatient(ctx context.Context, store Store, req models.CreatePatientRequest) (*models.Patient, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validation.New("Patient name is required")
	}

	reference := strings.TrimSpace(req.ReferenceNumber)
	if reference == "" {
		reference = GenerateReference(time.Now())
	}

	taken, err := store.ReferenceExists(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("checking reference number: %w", err)
	}
	if taken {
		reference = Disambiguate(reference)
	}

	patient := &models.Patient{ReferenceNumber: reference, Name: name}
	if err := store.CreatePatient(ctx, patient); err != nil {
		return nil, fmt.Errorf("creating patient: %w", err)
	}
	return patient, nil
}
