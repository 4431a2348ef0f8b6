package teeth

import (
	"context"
	"errors"
	"testing"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/records"
)

func newManager(t *testing.T) (*Manager, uint) {
	t.Helper()
	store := records.NewMemoryStore()
	p, err := records.RegisterPatient(context.Background(), store, models.CreatePatientRequest{Name: "Ada"})
	if err != nil {
		t.Fatalf("failed to register patient: %v", err)
	}
	return NewManager(store, nil), p.ID
}

func TestUpdateRejectsUnknownTeethWithoutMutation(t *testing.T) {
	m, patientID := newManager(t)
	ctx := context.Background()

	for _, tooth := range []string{"t0", "t33", "5", "", "tooth5", "t-1"} {
		for _, condition := range []string{"root", "cavity", "both", "", "garbage"} {
			res, err := m.Update(ctx, patientID, tooth, condition)
			if !errors.Is(err, ErrInvalidTooth) {
				t.Fatalf("tooth %q condition %q: expected ErrInvalidTooth, got %v", tooth, condition, err)
			}
			if res.Action != ActionRejected {
				t.Fatalf("expected rejected action, got %s", res.Action)
			}
		}
	}

	teeth, err := m.GetAll(ctx, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(teeth) != 0 {
		t.Fatalf("expected no findings, got %v", teeth)
	}
}

func TestUpdateNormalizesCondition(t *testing.T) {
	m, patientID := newManager(t)
	ctx := context.Background()

	res, err := m.Update(ctx, patientID, "t5", "CAVITY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != ActionSaved || res.Condition == nil || *res.Condition != "cavity" {
		t.Fatalf("unexpected result %+v", res)
	}

	teeth, err := m.GetAll(ctx, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(teeth) != 1 || teeth["t5"] != "cavity" {
		t.Fatalf("expected {t5: cavity}, got %v", teeth)
	}
}

func TestUpdateOverwritesExistingFinding(t *testing.T) {
	m, patientID := newManager(t)
	ctx := context.Background()

	if _, err := m.Update(ctx, patientID, " T12 ", " root "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Update(ctx, patientID, "t12", "Both"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	teeth, _ := m.GetAll(ctx, patientID)
	if len(teeth) != 1 || teeth["t12"] != "both" {
		t.Fatalf("expected single overwritten finding, got %v", teeth)
	}
}

func TestUpdateRemovalIsIdempotent(t *testing.T) {
	m, patientID := newManager(t)
	ctx := context.Background()

	if _, err := m.Update(ctx, patientID, "t5", "CAVITY"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		res, err := m.Update(ctx, patientID, "t5", "")
		if err != nil {
			t.Fatalf("removal %d: unexpected error: %v", i, err)
		}
		if res.Action != ActionRemoved || res.Condition != nil {
			t.Fatalf("removal %d: unexpected result %+v", i, res)
		}
	}

	teeth, _ := m.GetAll(ctx, patientID)
	if len(teeth) != 0 {
		t.Fatalf("expected no findings, got %v", teeth)
	}
}

func TestUnknownConditionRemoves(t *testing.T) {
	m, patientID := newManager(t)
	ctx := context.Background()

	_, _ = m.Update(ctx, patientID, "t3", "root")
	res, err := m.Update(ctx, patientID, "t3", "filling")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != ActionRemoved {
		t.Fatalf("expected removed, got %s", res.Action)
	}
}

func TestSummarize(t *testing.T) {
	m, patientID := newManager(t)
	ctx := context.Background()

	summary, err := m.Summarize(ctx, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != NoFindingsSummary {
		t.Fatalf("expected sentinel, got %q", summary)
	}

	_, _ = m.Update(ctx, patientID, "t8", "root")
	_, _ = m.Update(ctx, patientID, "t14", "both")
	_, _ = m.Update(ctx, patientID, "t3", "cavity")

	summary, err = m.Summarize(ctx, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Dental Findings:\nT14: both\nT3: cavity\nT8: root"
	if summary != want {
		t.Fatalf("unexpected summary:\n%s", summary)
	}
}
