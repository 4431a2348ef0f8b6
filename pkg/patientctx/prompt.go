package patientctx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/familyhistory"
)

// DocumentExcerptLength caps how much of each document reaches the prompt.
const DocumentExcerptLength = 500

// BuildPromptContext flattens pc into the text block handed to the response
// engine. Sections appear in a fixed order and are left out when empty.
func BuildPromptContext(pc *models.PatientContext) string {
	if pc == nil {
		return ""
	}
	parts := []string{fmt.Sprintf("Patient: %s (Ref: %s)", pc.Patient.Name, pc.Patient.ReferenceNumber)}

	var docs []string
	for _, doc := range pc.Documents {
		if doc.ParsedText == nil || *doc.ParsedText == "" {
			continue
		}
		label := doc.DocumentType
		if label == "" {
			label = "Document"
		}
		docs = append(docs, fmt.Sprintf("- %s: %s...", label, Truncate(*doc.ParsedText, DocumentExcerptLength)))
	}
	if len(docs) > 0 {
		parts = append(parts, "\nMedical Documents:")
		parts = append(parts, docs...)
	}

	if len(pc.Vitals) > 0 {
		if lines := vitalLines(pc.Vitals[len(pc.Vitals)-1]); len(lines) > 0 {
			parts = append(parts, "\nLatest Vital Signs:")
			parts = append(parts, lines...)
		}
	}

	if len(pc.FamilyHistory) > 0 {
		parts = append(parts, "\nFamily History:")
		for _, fh := range pc.FamilyHistory {
			parts = append(parts, "- "+familyhistory.FormatEntry(fh))
		}
	}

	return strings.Join(parts, "\n")
}

func vitalLines(v models.Vital) []string {
	var lines []string
	if v.Temperature != nil {
		lines = append(lines, fmt.Sprintf("Temperature: %s°C", formatFloat(*v.Temperature)))
	}
	if v.Weight != nil {
		lines = append(lines, fmt.Sprintf("Weight: %s kg", formatFloat(*v.Weight)))
	}
	if v.Height != nil {
		lines = append(lines, fmt.Sprintf("Height: %s cm", formatFloat(*v.Height)))
	}
	switch {
	case v.BloodPressureSystolic != nil && v.BloodPressureDiastolic != nil:
		lines = append(lines, fmt.Sprintf("Blood Pressure: %d/%d mmHg", *v.BloodPressureSystolic, *v.BloodPressureDiastolic))
	case v.BloodPressureSystolic != nil:
		lines = append(lines, fmt.Sprintf("Systolic Blood Pressure: %d mmHg", *v.BloodPressureSystolic))
	case v.BloodPressureDiastolic != nil:
		lines = append(lines, fmt.Sprintf("Diastolic Blood Pressure: %d mmHg", *v.BloodPressureDiastolic))
	}
	if v.HeartRate != nil {
		lines = append(lines, fmt.Sprintf("Heart Rate: %d bpm", *v.HeartRate))
	}
	if v.RespiratoryRate != nil {
		lines = append(lines, fmt.Sprintf("Respiratory Rate: %d breaths/min", *v.RespiratoryRate))
	}
	if v.OxygenSaturation != nil {
		lines = append(lines, fmt.Sprintf("Oxygen Saturation: %s%%", formatFloat(*v.OxygenSaturation)))
	}
	return lines
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
