package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/mindcare/internal/analysis/crisis"
	"github.com/PabloGalante/mindcare/internal/analysis/lexicon"
	"github.com/PabloGalante/mindcare/internal/analysis/sentiment"
	"github.com/PabloGalante/mindcare/internal/domain"
)

// TablesFile is the on-disk shape of the tables YAML. Every section is
// optional; what it names replaces the built-in entry with the same key.
type TablesFile struct {
	Retention []domain.RetentionPolicy `yaml:"retention"`
	Sentiment sentiment.Tables         `yaml:"sentiment"`
	Lexicon   []lexicon.Table          `yaml:"lexicon"`
	Crisis    crisis.Phrases           `yaml:"crisis"`
}

// Tables holds the validated analysis components and retention policies.
type Tables struct {
	Policies   domain.RetentionPolicies
	Scorer     *sentiment.Scorer
	Scanner    *lexicon.Scanner
	Classifier *crisis.Classifier
}

// DefaultTables returns the built-in tables.
func DefaultTables() *Tables {
	return &Tables{
		Policies:   domain.DefaultRetentionPolicies(),
		Scorer:     sentiment.Default(),
		Scanner:    lexicon.Default(),
		Classifier: crisis.Default(),
	}
}

// LoadTables reads path and builds the components from it. An empty path
// yields the defaults. Any invalid entry fails the whole load.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %v: %w", err, domain.ErrConfiguration)
	}
	return ParseTables(data)
}

// ParseTables builds the components from YAML bytes.
func ParseTables(data []byte) (*Tables, error) {
	var f TablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tables file: %v: %w", err, domain.ErrConfiguration)
	}
	return f.Build()
}

// Build merges f over the defaults and validates the result.
func (f TablesFile) Build() (*Tables, error) {
	policies, err := mergePolicies(domain.DefaultRetentionPolicies(), f.Retention)
	if err != nil {
		return nil, err
	}
	scorer, err := sentiment.New(f.Sentiment)
	if err != nil {
		return nil, err
	}
	scanner, err := lexicon.NewScanner(lexicon.Merge(lexicon.DefaultTables(), f.Lexicon))
	if err != nil {
		return nil, err
	}
	classifier, err := crisis.NewClassifier(f.Crisis)
	if err != nil {
		return nil, err
	}
	return &Tables{
		Policies:   policies,
		Scorer:     scorer,
		Scanner:    scanner,
		Classifier: classifier,
	}, nil
}

func mergePolicies(base domain.RetentionPolicies, overrides []domain.RetentionPolicy) (domain.RetentionPolicies, error) {
	seen := make(map[domain.DataCategory]bool, len(overrides))
	for _, p := range overrides {
		if seen[p.Category] {
			return nil, fmt.Errorf("duplicate retention policy for %s: %w", p.Category, domain.ErrConfiguration)
		}
		seen[p.Category] = true
	}

	merged := make([]domain.RetentionPolicy, 0, len(base)+len(overrides))
	for _, cat := range base.Categories() {
		if !seen[cat] {
			merged = append(merged, base[cat])
		}
	}
	merged = append(merged, overrides...)
	return domain.NewRetentionPolicies(merged...)
}
