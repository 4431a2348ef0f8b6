package vitals

import (
	"context"
	"strings"
	"testing"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/validation"
	"github.com/synaptica-ai/clinical-assistant/pkg/records"
)

func TestValidateTemperatureOutOfRange(t *testing.T) {
	violations := Validate(map[string]interface{}{"temperature": "46"})
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if !strings.Contains(violations[0], "Temperature") {
		t.Fatalf("expected temperature violation, got %q", violations[0])
	}
}

func TestValidateAcceptsNormalReadings(t *testing.T) {
	violations := Validate(map[string]interface{}{"heart_rate": "72", "temperature": "37.5"})
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestValidateAccumulatesViolations(t *testing.T) {
	violations := Validate(map[string]interface{}{
		"temperature":              29.0,
		"blood_pressure_systolic":  300.0,
		"blood_pressure_diastolic": "20",
		"respiratory_rate":         "41",
		"oxygen_saturation":        "101",
	})
	if len(violations) != 5 {
		t.Fatalf("expected 5 violations, got %d: %v", len(violations), violations)
	}
}

func TestValidateNonNumericIsViolation(t *testing.T) {
	violations := Validate(map[string]interface{}{
		"weight":     "heavy",
		"heart_rate": "72.5",
		"height":     true,
	})
	if len(violations) != 3 {
		t.Fatalf("expected 3 violations, got %v", violations)
	}
	for _, v := range violations {
		if !strings.Contains(v, "valid number") {
			t.Fatalf("expected type violation, got %q", v)
		}
	}
}

func TestValidateSkipsBlankFields(t *testing.T) {
	violations := Validate(map[string]interface{}{"temperature": "", "weight": nil, "height": "  "})
	if len(violations) != 0 {
		t.Fatalf("expected blank fields to be skipped, got %v", violations)
	}
}

func TestValidateBoundariesInclusive(t *testing.T) {
	violations := Validate(map[string]interface{}{
		"temperature":       "30",
		"weight":            "500",
		"heart_rate":        220.0,
		"oxygen_saturation": 0.0,
	})
	if len(violations) != 0 {
		t.Fatalf("expected boundary values to pass, got %v", violations)
	}
}

func TestStoreConvertsBlankToNull(t *testing.T) {
	store := records.NewMemoryStore()
	ctx := context.Background()
	p, err := records.RegisterPatient(ctx, store, models.CreatePatientRequest{Name: "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	agent := NewAgent(store, nil)
	vital, err := agent.Store(ctx, p.ID, map[string]interface{}{
		"temperature": "37.2",
		"weight":      "",
		"heart_rate":  "80",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vital.Temperature == nil || *vital.Temperature != 37.2 {
		t.Fatalf("expected temperature 37.2, got %v", vital.Temperature)
	}
	if vital.Weight != nil {
		t.Fatalf("expected weight to be null, got %v", *vital.Weight)
	}
	if vital.HeartRate == nil || *vital.HeartRate != 80 {
		t.Fatalf("expected heart rate 80, got %v", vital.HeartRate)
	}
}

func TestStoreRejectsInvalidWithoutPersisting(t *testing.T) {
	store := records.NewMemoryStore()
	ctx := context.Background()
	p, _ := records.RegisterPatient(ctx, store, models.CreatePatientRequest{Name: "Ada"})

	_, err := NewAgent(store, nil).Store(ctx, p.ID, map[string]interface{}{"temperature": "50"})
	if !validation.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	vitals, _ := store.ListVitals(ctx, p.ID)
	if len(vitals) != 0 {
		t.Fatalf("expected nothing persisted, got %d vitals", len(vitals))
	}
}
