package categorize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WeightedTerm is a trigger phrase and the weight of each occurrence
type WeightedTerm struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// Dictionary is the versioned category trigger table.
// Priority declares the closed category set and the tie-break order.
type Dictionary struct {
	Version  string                    `yaml:"version"`
	Priority []string                  `yaml:"priority"`
	Terms    map[string][]WeightedTerm `yaml:"terms"`
}

// DefaultDictionary returns the built-in research dictionary
func DefaultDictionary() *Dictionary {
	return &Dictionary{
		Version: "research-v1",
		Priority: []string{
			"clinical_trial",
			"preclinical_models",
			"cellular_studies",
			"meta_analysis",
			"review_article",
		},
		Terms: map[string][]WeightedTerm{
			"clinical_trial": {
				{"clinical trial", 3},
				{"randomized controlled trial", 3},
				{"rct", 2},
				{"randomized", 1.5},
				{"placebo", 2},
				{"double blind", 2},
				{"human participants", 2},
				{"participants", 1},
				{"intervention", 1},
				{"efficacy", 1},
				{"safety", 0.5},
				{"treatment", 0.5},
				{"therapeutic", 0.5},
			},
			"meta_analysis": {
				{"meta analysis", 3},
				{"systematic review", 3},
				{"pooled analysis", 2},
				{"forest plot", 2},
				{"heterogeneity", 1.5},
				{"odds ratio", 1},
				{"risk ratio", 1},
				{"confidence interval", 0.5},
				{"cochrane", 2},
				{"prisma", 2},
			},
			"preclinical_models": {
				{"preclinical", 3},
				{"animal model", 3},
				{"animal models", 3},
				{"disease model", 2},
				{"in vivo", 2},
				{"transgenic", 2},
				{"knockout", 2},
				{"mouse", 1.5},
				{"mice", 1.5},
				{"rat", 1.5},
				{"rats", 1.5},
				{"behavioral", 1},
				{"pharmacokinetics", 1},
				{"toxicity", 1},
			},
			"cellular_studies": {
				{"cell culture", 3},
				{"cell line", 2.5},
				{"cell lines", 2.5},
				{"in vitro", 2},
				{"primary cells", 2},
				{"stem cells", 2},
				{"organoid", 2},
				{"organoids", 2},
				{"tissue culture", 2},
				{"western blot", 2},
				{"flow cytometry", 2},
				{"gene expression", 1.5},
				{"protein", 0.5},
			},
			"review_article": {
				{"literature review", 3},
				{"narrative review", 3},
				{"state of the art", 2},
				{"recent advances", 2},
				{"future directions", 1.5},
				{"current understanding", 1.5},
				{"commentary", 1.5},
				{"review", 1},
				{"perspective", 1},
				{"overview", 1},
			},
		},
	}
}

// LoadDictionary reads a YAML dictionary file
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category dictionary: %w", err)
	}
	d, err := ParseDictionary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseDictionary decodes and validates a YAML dictionary
func ParseDictionary(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse category dictionary: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks that the priority list is the closed category set
func (d *Dictionary) Validate() error {
	if len(d.Priority) == 0 {
		return fmt.Errorf("category dictionary %q declares no categories", d.Version)
	}
	seen := make(map[string]bool, len(d.Priority))
	for _, name := range d.Priority {
		if name == "" {
			return fmt.Errorf("category dictionary %q has an empty category name", d.Version)
		}
		if seen[name] {
			return fmt.Errorf("category %q listed twice in priority", name)
		}
		seen[name] = true
	}
	for name, terms := range d.Terms {
		if !seen[name] {
			return fmt.Errorf("category %q has terms but is missing from priority", name)
		}
		for _, t := range terms {
			if len(tokenize(t.Term)) == 0 {
				return fmt.Errorf("category %q has an empty term", name)
			}
			if t.Weight <= 0 {
				return fmt.Errorf("term %q in category %q must have a positive weight", t.Term, name)
			}
		}
	}
	return nil
}

// Categories returns the category names in priority order
func (d *Dictionary) Categories() []string {
	out := make([]string, len(d.Priority))
	copy(out, d.Priority)
	return out
}

// clone returns a deep copy of d
func (d *Dictionary) clone() *Dictionary {
	c := &Dictionary{
		Version:  d.Version,
		Priority: append([]string(nil), d.Priority...),
		Terms:    make(map[string][]WeightedTerm, len(d.Terms)),
	}
	for name, terms := range d.Terms {
		c.Terms[name] = append([]WeightedTerm(nil), terms...)
	}
	return c
}
