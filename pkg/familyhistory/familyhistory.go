package familyhistory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/kafka"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/validation"
	"github.com/synaptica-ai/clinical-assistant/pkg/terminology"
)

const NoHistorySummary = "No family history recorded."

// CommonRelations is the suggested vocabulary offered to clients; relation
// remains free text.
var CommonRelations = []string{
	"Mother", "Father", "Sister", "Brother",
	"Maternal Grandmother", "Maternal Grandfather",
	"Paternal Grandmother", "Paternal Grandfather",
	"Aunt", "Uncle", "Cousin", "Other",
}

type Repository interface {
	CreateFamilyHistory(ctx context.Context, entry *models.FamilyHistory) error
	ListFamilyHistory(ctx context.Context, patientID uint) ([]models.FamilyHistory, error)
}

type Agent struct {
	repo    Repository
	events  kafka.Publisher
	catalog *terminology.Catalog
}

func NewAgent(repo Repository, events kafka.Publisher) *Agent {
	return &Agent{repo: repo, events: events}
}

// WithCatalog codes stored conditions that the catalog recognizes.
func (a *Agent) WithCatalog(catalog *terminology.Catalog) *Agent {
	a.catalog = catalog
	return a
}

// Validate requires a condition and, when present, an age of onset in 0-150.
func Validate(fields map[string]interface{}) []string {
	var violations []string

	if stringField(fields, "condition") == "" {
		violations = append(violations, "Condition is required")
	}

	if _, ok := present(fields, "age_of_onset"); ok {
		age, err := ageOfOnset(fields)
		if err != nil {
			violations = append(violations, "Age of onset must be a valid number")
		} else if *age < 0 || *age > 150 {
			violations = append(violations, "Age of onset should be between 0-150 years")
		}
	}

	return violations
}

func (a *Agent) Validate(fields map[string]interface{}) []string {
	return Validate(fields)
}

func (a *Agent) Store(ctx context.Context, patientID uint, fields map[string]interface{}) (*models.FamilyHistory, error) {
	if violations := Validate(fields); len(violations) > 0 {
		return nil, validation.New(violations...)
	}

	age, _ := ageOfOnset(fields)
	entry := &models.FamilyHistory{
		PatientID:  patientID,
		Condition:  stringField(fields, "condition"),
		Relation:   stringField(fields, "relation"),
		AgeOfOnset: age,
		Notes:      stringField(fields, "notes"),
		RecordedAt: time.Now().UTC(),
	}
	if concept, ok := a.catalog.Lookup(entry.Condition); ok {
		entry.ConditionCode = concept.ICD10
	}
	if err := a.repo.CreateFamilyHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("persisting family history: %w", err)
	}

	logger.ForPatient("family_history", patientID).WithField("entry_id", entry.ID).Info("family history recorded")
	kafka.Notify(ctx, a.events, kafka.EventFamilyHistoryRecorded, patientID, map[string]interface{}{
		"entry_id":  entry.ID,
		"condition": entry.Condition,
		"icd10":     entry.ConditionCode,
	})
	return entry, nil
}

func (a *Agent) List(ctx context.Context, patientID uint) ([]models.FamilyHistory, error) {
	return a.repo.ListFamilyHistory(ctx, patientID)
}

func (a *Agent) Summary(ctx context.Context, patientID uint) (string, error) {
	entries, err := a.repo.ListFamilyHistory(ctx, patientID)
	if err != nil {
		return "", err
	}
	return Summarize(entries), nil
}

// FormatEntry renders "Condition (Relation) - Onset at age N - Notes: ...",
// leaving out the parts that are not recorded.
func FormatEntry(e models.FamilyHistory) string {
	var b strings.Builder
	b.WriteString(e.Condition)
	if e.Relation != "" {
		fmt.Fprintf(&b, " (%s)", e.Relation)
	}
	if e.AgeOfOnset != nil {
		fmt.Fprintf(&b, " - Onset at age %d", *e.AgeOfOnset)
	}
	if e.Notes != "" {
		fmt.Fprintf(&b, " - Notes: %s", e.Notes)
	}
	return b.String()
}

func Summarize(entries []models.FamilyHistory) string {
	if len(entries) == 0 {
		return NoHistorySummary
	}
	var b strings.Builder
	b.WriteString("Family History:\n")
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(FormatEntry(e))
		b.WriteString("\n")
	}
	return b.String()
}

func present(fields map[string]interface{}, key string) (interface{}, bool) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return nil, false
	}
	if s, isString := raw.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return raw, true
}

func stringField(fields map[string]interface{}, key string) string {
	raw, ok := present(fields, key)
	if !ok {
		return ""
	}
	if s, isString := raw.(string); isString {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}

func ageOfOnset(fields map[string]interface{}) (*int, error) {
	raw, ok := present(fields, "age_of_onset")
	if !ok {
		return nil, nil
	}
	var age int
	switch v := raw.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		age = n
	case float64:
		if v != float64(int(v)) {
			return nil, fmt.Errorf("age of onset %v is not an integer", v)
		}
		age = int(v)
	case int:
		age = v
	default:
		return nil, fmt.Errorf("unsupported age of onset type %T", raw)
	}
	return &age, nil
}
