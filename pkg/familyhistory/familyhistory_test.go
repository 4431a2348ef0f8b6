package familyhistory

import (
	"context"
	"strings"
	"testing"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/records"
	"github.com/synaptica-ai/clinical-assistant/pkg/terminology"
)

func TestValidateRequiresCondition(t *testing.T) {
	violations := Validate(map[string]interface{}{"relation": "Mother"})
	if len(violations) != 1 || violations[0] != "Condition is required" {
		t.Fatalf("expected missing condition violation, got %v", violations)
	}
}

func TestValidateAgeOfOnset(t *testing.T) {
	cases := []struct {
		name  string
		age   interface{}
		valid bool
	}{
		{"string in range", "45", true},
		{"json number", 60.0, true},
		{"zero", "0", true},
		{"upper bound", "150", true},
		{"too old", "151", false},
		{"negative", -1.0, false},
		{"not a number", "forty", false},
		{"fractional", 12.5, false},
		{"blank skipped", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			violations := Validate(map[string]interface{}{"condition": "Diabetes", "age_of_onset": tc.age})
			if tc.valid && len(violations) != 0 {
				t.Fatalf("expected no violations, got %v", violations)
			}
			if !tc.valid && len(violations) != 1 {
				t.Fatalf("expected one violation, got %v", violations)
			}
		})
	}
}

func TestStoreAndSummarize(t *testing.T) {
	store := records.NewMemoryStore()
	ctx := context.Background()
	p, err := records.RegisterPatient(ctx, store, models.CreatePatientRequest{Name: "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	agent := NewAgent(store, nil)

	summary, err := agent.Summary(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != NoHistorySummary {
		t.Fatalf("expected empty summary sentinel, got %q", summary)
	}

	if _, err := agent.Store(ctx, p.ID, map[string]interface{}{
		"condition":    "Hypertension",
		"relation":     "Father",
		"age_of_onset": "52",
		"notes":        "controlled with medication",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := agent.Store(ctx, p.ID, map[string]interface{}{"condition": "Asthma"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err = agent.Summary(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Family History:\n" +
		"- Hypertension (Father) - Onset at age 52 - Notes: controlled with medication\n" +
		"- Asthma\n"
	if summary != want {
		t.Fatalf("unexpected summary:\n%s", summary)
	}
}

func TestStoreRejectsMissingCondition(t *testing.T) {
	store := records.NewMemoryStore()
	ctx := context.Background()
	p, _ := records.RegisterPatient(ctx, store, models.CreatePatientRequest{Name: "Ada"})

	_, err := NewAgent(store, nil).Store(ctx, p.ID, map[string]interface{}{"age_of_onset": "10"})
	if err == nil || !strings.Contains(err.Error(), "Condition is required") {
		t.Fatalf("expected condition error, got %v", err)
	}
}

func TestStoreCodesKnownConditions(t *testing.T) {
	ctx := context.Background()
	store := records.NewMemoryStore()
	p, _ := records.RegisterPatient(ctx, store, models.CreatePatientRequest{Name: "Ada"})
	agent := NewAgent(store, nil).WithCatalog(terminology.DefaultCatalog())

	coded, err := agent.Store(ctx, p.ID, map[string]interface{}{"condition": "High Blood Pressure", "relation": "Father"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coded.ConditionCode != "I10" {
		t.Fatalf("expected I10, got %q", coded.ConditionCode)
	}
	if coded.Condition != "High Blood Pressure" {
		t.Fatalf("condition text should be kept as entered, got %q", coded.Condition)
	}

	uncoded, err := agent.Store(ctx, p.ID, map[string]interface{}{"condition": "Colour blindness"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uncoded.ConditionCode != "" {
		t.Fatalf("expected no code, got %q", uncoded.ConditionCode)
	}
}
