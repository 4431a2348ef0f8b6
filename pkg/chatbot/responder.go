package chatbot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/synaptica-ai/clinical-assistant/pkg/patientctx"
	"gopkg.in/yaml.v3"
)

// GenericContextExcerpt is how much of the prompt context the generic reply echoes.
const GenericContextExcerpt = 200

// Bucket routes a question to a canned reply when any keyword is a substring
// of the lowercased question.
type Bucket struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Reply    string   `yaml:"reply" json:"reply"`
}

type BucketsConfig struct {
	Buckets []Bucket `yaml:"buckets" json:"buckets"`
}

// LoadBuckets reads responder buckets from a YAML file. An empty path yields
// the built-in buckets.
func LoadBuckets(path string) (BucketsConfig, error) {
	if path == "" {
		return DefaultBuckets(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultBuckets(), err
	}

	var cfg BucketsConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return BucketsConfig{}, err
	}
	if len(cfg.Buckets) == 0 {
		return BucketsConfig{}, errors.New("no responder buckets configured")
	}
	for i, b := range cfg.Buckets {
		if len(b.Keywords) == 0 || strings.TrimSpace(b.Reply) == "" {
			return BucketsConfig{}, fmt.Errorf("responder bucket %d (%q) needs keywords and a reply", i, b.Name)
		}
	}
	return cfg, nil
}

func DefaultBuckets() BucketsConfig {
	return BucketsConfig{Buckets: []Bucket{
		{
			Name:     "temperature",
			Keywords: []string{"temperature", "fever", "temp"},
			Reply:    "Based on the patient's vital signs, I can see their temperature readings. Please review the latest vitals for current temperature status.",
		},
		{
			Name:     "weight",
			Keywords: []string{"weight", "bmi", "body mass"},
			Reply:    "The patient's weight and height measurements are available in their vital signs. You can calculate BMI using weight (kg) / height (m)².",
		},
		{
			Name:     "blood_pressure",
			Keywords: []string{"blood pressure", "bp", "hypertension"},
			Reply:    "Blood pressure readings are recorded in the patient's vital signs. Please check the latest measurements for current status.",
		},
		{
			Name:     "family_history",
			Keywords: []string{"family history", "genetic", "hereditary"},
			Reply:    "Family history information is available in the patient's records. Please review the family history section for details.",
		},
		{
			Name:     "documents",
			Keywords: []string{"document", "report", "test result"},
			Reply:    "Medical documents and reports have been uploaded and parsed. Please review the documents section for detailed information.",
		},
	}}
}

// Responder is the deterministic answer path. Buckets are tried in order and
// the first match wins.
type Responder struct {
	buckets []Bucket
}

func NewResponder(cfg BucketsConfig) *Responder {
	buckets := make([]Bucket, 0, len(cfg.Buckets))
	for _, b := range cfg.Buckets {
		kw := make([]string, 0, len(b.Keywords))
		for _, k := range b.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		buckets = append(buckets, Bucket{Name: b.Name, Keywords: kw, Reply: b.Reply})
	}
	return &Responder{buckets: buckets}
}

// Match returns the first bucket whose keywords hit the question.
func (r *Responder) Match(question string) (Bucket, bool) {
	q := strings.ToLower(question)
	for _, b := range r.buckets {
		for _, k := range b.Keywords {
			if strings.Contains(q, k) {
				return b, true
			}
		}
	}
	return Bucket{}, false
}

// Respond answers from the buckets, or with a generic reply that echoes the
// start of the prompt context.
func (r *Responder) Respond(question, promptContext string) string {
	if b, ok := r.Match(question); ok {
		return b.Reply
	}
	return fmt.Sprintf(
		"I have access to the patient's medical records including documents, vital signs, and family history. Based on the context: %s... How can I help you with this patient's care?",
		patientctx.Truncate(promptContext, GenericContextExcerpt),
	)
}
