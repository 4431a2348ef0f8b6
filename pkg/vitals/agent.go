package vitals

import (
	"context"
	"fmt"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/kafka"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/validation"
)

type Repository interface {
	CreateVital(ctx context.Context, vital *models.Vital) error
	ListVitals(ctx context.Context, patientID uint) ([]models.Vital, error)
}

type Agent struct {
	repo   Repository
	events kafka.Publisher
}

func NewAgent(repo Repository, events kafka.Publisher) *Agent {
	return &Agent{repo: repo, events: events}
}

func (a *Agent) Validate(fields map[string]interface{}) []string {
	return Validate(fields)
}

// Store validates and appends a snapshot. Blank fields are stored as null.
func (a *Agent) Store(ctx context.Context, patientID uint, fields map[string]interface{}) (*models.Vital, error) {
	if violations := Validate(fields); len(violations) > 0 {
		return nil, validation.New(violations...)
	}

	vital, err := build(fields)
	if err != nil {
		return nil, err
	}
	vital.PatientID = patientID
	vital.RecordedAt = time.Now().UTC()

	if err := a.repo.CreateVital(ctx, vital); err != nil {
		return nil, fmt.Errorf("persisting vitals: %w", err)
	}

	logger.ForPatient("vitals", patientID).WithField("vital_id", vital.ID).Info("vitals recorded")
	kafka.Notify(ctx, a.events, kafka.EventVitalsRecorded, patientID, map[string]interface{}{
		"vital_id": vital.ID,
	})
	return vital, nil
}

func (a *Agent) List(ctx context.Context, patientID uint) ([]models.Vital, error) {
	return a.repo.ListVitals(ctx, patientID)
}

// Latest returns the last snapshot by insertion order, or nil.
func Latest(vitals []models.Vital) *models.Vital {
	if len(vitals) == 0 {
		return nil
	}
	return &vitals[len(vitals)-1]
}

func build(fields map[string]interface{}) (*models.Vital, error) {
	v := &models.Vital{}
	var err error
	floatField := func(key string) *float64 {
		raw, ok := present(fields, key)
		if !ok || err != nil {
			return nil
		}
		f, perr := parseNumber(raw, false)
		if perr != nil {
			err = validation.New(fmt.Sprintf("%s must be a valid number", key))
			return nil
		}
		return &f
	}
	intField := func(key string) *int {
		raw, ok := present(fields, key)
		if !ok || err != nil {
			return nil
		}
		f, perr := parseNumber(raw, true)
		if perr != nil {
			err = validation.New(fmt.Sprintf("%s must be a valid number", key))
			return nil
		}
		n := int(f)
		return &n
	}

	v.Temperature = floatField(FieldTemperature)
	v.Weight = floatField(FieldWeight)
	v.Height = floatField(FieldHeight)
	v.BloodPressureSystolic = intField(FieldBloodPressureSystolic)
	v.BloodPressureDiastolic = intField(FieldBloodPressureDiastolic)
	v.HeartRate = intField(FieldHeartRate)
	v.RespiratoryRate = intField(FieldRespiratoryRate)
	v.OxygenSaturation = floatField(FieldOxygenSaturation)
	if err != nil {
		return nil, err
	}
	return v, nil
}
