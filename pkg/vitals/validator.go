package vitals

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	FieldTemperature            = "temperature"
	FieldWeight                 = "weight"
	FieldHeight                 = "height"
	FieldBloodPressureSystolic  = "blood_pressure_systolic"
	FieldBloodPressureDiastolic = "blood_pressure_diastolic"
	FieldHeartRate              = "heart_rate"
	FieldRespiratoryRate        = "respiratory_rate"
	FieldOxygenSaturation       = "oxygen_saturation"
)

var errNotNumeric = errors.New("not a number")

type rangeRule struct {
	field   string
	label   string
	min     float64
	max     float64
	integer bool
	message string
}

// rules are checked in this order so violations come back in a stable order.
var rules = []rangeRule{
	{FieldTemperature, "Temperature", 30, 45, false, "Temperature should be between 30-45°C"},
	{FieldWeight, "Weight", 0, 500, false, "Weight should be between 0-500 kg"},
	{FieldHeight, "Height", 0, 300, false, "Height should be between 0-300 cm"},
	{FieldBloodPressureSystolic, "Systolic BP", 50, 250, true, "Systolic BP should be between 50-250 mmHg"},
	{FieldBloodPressureDiastolic, "Diastolic BP", 30, 150, true, "Diastolic BP should be between 30-150 mmHg"},
	{FieldHeartRate, "Heart rate", 30, 220, true, "Heart rate should be between 30-220 bpm"},
	{FieldRespiratoryRate, "Respiratory rate", 8, 40, true, "Respiratory rate should be between 8-40 per minute"},
	{FieldOxygenSaturation, "Oxygen saturation", 0, 100, false, "Oxygen saturation should be between 0-100%"},
}

// Fields lists every vital the agent understands.
func Fields() []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.field)
	}
	return out
}

// Validate range-checks every present field and returns one message per
// offending field. Absent or blank fields are skipped.
func Validate(fields map[string]interface{}) []string {
	var violations []string
	for _, rule := range rules {
		raw, ok := present(fields, rule.field)
		if !ok {
			continue
		}
		value, err := parseNumber(raw, rule.integer)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s must be a valid number", rule.label))
			continue
		}
		if value < rule.min || value > rule.max {
			violations = append(violations, rule.message)
		}
	}
	return violations
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

func parseNumber(raw interface{}, integer bool) (float64, error) {
	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if integer {
			n, err := strconv.Atoi(s)
			if err != nil {
				return 0, errNotNumeric
			}
			return float64(n), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errNotNumeric
		}
		value = f
	default:
		return 0, errNotNumeric
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errNotNumeric
	}
	if integer && value != math.Trunc(value) {
		return 0, errNotNumeric
	}
	return value, nil
}
