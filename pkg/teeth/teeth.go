package teeth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/kafka"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
)

const (
	ConditionRoot   = "root"
	ConditionCavity = "cavity"
	ConditionBoth   = "both"

	NoFindingsSummary = "No dental findings recorded."
)

type Action string

const (
	ActionSaved    Action = "saved"
	ActionRemoved  Action = "removed"
	ActionRejected Action = "rejected"
)

var ErrInvalidTooth = errors.New("invalid tooth identifier")

var allowedConditions = map[string]struct{}{
	ConditionRoot:   {},
	ConditionCavity: {},
	ConditionBoth:   {},
}

// validTeeth is the canonical identifier set t1..t32.
var validTeeth = func() map[string]struct{} {
	ids := make(map[string]struct{}, 32)
	for i := 1; i <= 32; i++ {
		ids[fmt.Sprintf("t%d", i)] = struct{}{}
	}
	return ids
}()

type Repository interface {
	UpsertTooth(ctx context.Context, patientID uint, toothID, condition string) (*models.DentalFinding, error)
	DeleteTooth(ctx context.Context, patientID uint, toothID string) error
	ListTeeth(ctx context.Context, patientID uint) ([]models.DentalFinding, error)
}

// Result mirrors what the caller reports back. Condition is nil when the
// finding was removed.
type Result struct {
	ToothID   string  `json:"tooth_id"`
	Condition *string `json:"condition"`
	Action    Action  `json:"action"`
}

type Manager struct {
	repo   Repository
	events kafka.Publisher
}

func NewManager(repo Repository, events kafka.Publisher) *Manager {
	return &Manager{repo: repo, events: events}
}

// IsValidTooth reports whether id names one of the 32 canonical teeth.
func IsValidTooth(id string) bool {
	_, ok := validTeeth[normalizeTooth(id)]
	return ok
}

// NormalizeCondition returns the canonical condition, or "" when the input is
// blank or not one of root, cavity, both.
func NormalizeCondition(condition string) string {
	c := strings.ToLower(strings.TrimSpace(condition))
	if _, ok := allowedConditions[c]; ok {
		return c
	}
	return ""
}

func normalizeTooth(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Update saves, overwrites or removes the finding for one tooth. An empty or
// unknown condition removes the row; removing a missing row still succeeds.
func (m *Manager) Update(ctx context.Context, patientID uint, toothID, condition string) (Result, error) {
	if !IsValidTooth(toothID) {
		return Result{ToothID: toothID, Action: ActionRejected}, ErrInvalidTooth
	}
	tooth := normalizeTooth(toothID)
	normalized := NormalizeCondition(condition)

	if normalized == "" {
		if err := m.repo.DeleteTooth(ctx, patientID, tooth); err != nil {
			return Result{}, fmt.Errorf("removing tooth finding: %w", err)
		}
		m.notify(ctx, patientID, tooth, "", ActionRemoved)
		return Result{ToothID: tooth, Condition: nil, Action: ActionRemoved}, nil
	}

	finding, err := m.repo.UpsertTooth(ctx, patientID, tooth, normalized)
	if err != nil {
		return Result{}, fmt.Errorf("saving tooth finding: %w", err)
	}
	saved := finding.Condition
	m.notify(ctx, patientID, tooth, saved, ActionSaved)
	return Result{ToothID: tooth, Condition: &saved, Action: ActionSaved}, nil
}

// GetAll maps tooth id to condition for every recorded finding.
func (m *Manager) GetAll(ctx context.Context, patientID uint) (map[string]string, error) {
	findings, err := m.repo.ListTeeth(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(findings))
	for _, f := range findings {
		out[f.ToothID] = f.Condition
	}
	return out, nil
}

func (m *Manager) Summarize(ctx context.Context, patientID uint) (string, error) {
	teeth, err := m.GetAll(ctx, patientID)
	if err != nil {
		return "", err
	}
	return Summary(teeth), nil
}

// Summary renders one "T<n>: condition" line per tooth, sorted by tooth id.
func Summary(teeth map[string]string) string {
	if len(teeth) == 0 {
		return NoFindingsSummary
	}
	ids := make([]string, 0, len(teeth))
	for id := range teeth {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(id), teeth[id]))
	}
	return "Dental Findings:\n" + strings.Join(lines, "\n")
}

func (m *Manager) notify(ctx context.Context, patientID uint, tooth, condition string, action Action) {
	logger.ForPatient("teeth", patientID).WithFields(map[string]interface{}{
		"tooth_id": tooth,
		"action":   action,
	}).Info("tooth finding updated")
	kafka.Notify(ctx, m.events, kafka.EventToothUpdated, patientID, map[string]interface{}{
		"tooth_id":  tooth,
		"condition": condition,
		"action":    string(action),
	})
}
