package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Concept is a coded condition. Aliases are extra spellings that resolve to it.
type Concept struct {
	Display string   `yaml:"display" json:"display"`
	SNOMED  string   `yaml:"snomed" json:"snomed,omitempty"`
	ICD10   string   `yaml:"icd10" json:"icd10,omitempty"`
	Aliases []string `yaml:"aliases" json:"aliases,omitempty"`
}

// Catalog maps free-text condition names onto codes.
type Catalog struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
	index    map[string]Concept
}

func Load(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return nil, err
	}
	if len(cat.Concepts) == 0 {
		return nil, fmt.Errorf("terminology catalog empty")
	}
	cat.buildIndex()
	return &cat, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (c *Catalog) buildIndex() {
	c.index = make(map[string]Concept, len(c.Concepts))
	for key, concept := range c.Concepts {
		c.index[normalize(key)] = concept
		c.index[normalize(concept.Display)] = concept
		for _, alias := range concept.Aliases {
			c.index[normalize(alias)] = concept
		}
	}
}

// Lookup matches a condition by key, display name or alias, ignoring case and
// repeated whitespace.
func (c *Catalog) Lookup(condition string) (Concept, bool) {
	if c == nil {
		return Concept{}, false
	}
	if c.index == nil {
		c.buildIndex()
	}
	concept, ok := c.index[normalize(condition)]
	return concept, ok
}

func DefaultCatalog() *Catalog {
	cat := &Catalog{Concepts: map[string]Concept{
		"diabetes": {
			Display: "Type 2 diabetes mellitus",
			SNOMED:  "44054006",
			ICD10:   "E11",
			Aliases: []string{"type 2 diabetes", "diabetes mellitus", "t2dm"},
		},
		"hypertension": {
			Display: "Essential hypertension",
			SNOMED:  "59621000",
			ICD10:   "I10",
			Aliases: []string{"high blood pressure", "htn"},
		},
		"coronary artery disease": {
			Display: "Coronary artery disease",
			SNOMED:  "53741008",
			ICD10:   "I25.10",
			Aliases: []string{"cad", "heart disease"},
		},
		"breast cancer": {
			Display: "Malignant neoplasm of breast",
			SNOMED:  "254837009",
			ICD10:   "C50.919",
		},
		"stroke": {
			Display: "Cerebrovascular accident",
			SNOMED:  "230690007",
			ICD10:   "I63.9",
		},
		"asthma": {
			Display: "Asthma",
			SNOMED:  "195967001",
			ICD10:   "J45.909",
		},
		"alzheimer's disease": {
			Display: "Alzheimer's disease",
			SNOMED:  "26929004",
			ICD10:   "G30.9",
			Aliases: []string{"alzheimers", "alzheimer disease"},
		},
		"glaucoma": {
			Display: "Glaucoma",
			SNOMED:  "23986001",
			ICD10:   "H40.9",
		},
	}}
	cat.buildIndex()
	return cat
}
