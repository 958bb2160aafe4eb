// Package lexicon detects categorical indicators in free text using
// table-driven, case-insensitive pattern alternatives.
package lexicon

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// Category is one named indicator with its ordered pattern alternatives.
type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// Table groups the categories of one namespace.
type Table struct {
	Namespace  domain.Namespace `yaml:"namespace" json:"namespace"`
	Categories []Category       `yaml:"categories" json:"categories"`
}

type compiledCategory struct {
	name     string
	patterns []*regexp.Regexp
}

type compiledTable struct {
	namespace  domain.Namespace
	categories []compiledCategory
}

// Scanner is immutable after construction and safe for concurrent use.
type Scanner struct {
	tables []compiledTable
	index  map[domain.Namespace]int
}

// NewScanner compiles the given tables. A namespace may appear only once.
func NewScanner(tables []Table) (*Scanner, error) {
	s := &Scanner{index: make(map[domain.Namespace]int, len(tables))}
	for _, t := range tables {
		if t.Namespace == "" {
			return nil, fmt.Errorf("lexicon: table without namespace: %w", domain.ErrConfiguration)
		}
		if _, dup := s.index[t.Namespace]; dup {
			return nil, fmt.Errorf("lexicon: duplicate namespace %s: %w", t.Namespace, domain.ErrConfiguration)
		}

		ct := compiledTable{namespace: t.Namespace}
		seen := make(map[string]bool, len(t.Categories))
		for _, c := range t.Categories {
			if c.Name == "" || len(c.Patterns) == 0 {
				return nil, fmt.Errorf("lexicon: %s: category needs a name and patterns: %w", t.Namespace, domain.ErrConfiguration)
			}
			if seen[c.Name] {
				return nil, fmt.Errorf("lexicon: %s: duplicate category %s: %w", t.Namespace, c.Name, domain.ErrConfiguration)
			}
			seen[c.Name] = true

			cc := compiledCategory{name: c.Name}
			for _, p := range c.Patterns {
				re, err := regexp.Compile("(?i)" + p)
				if err != nil {
					return nil, fmt.Errorf("lexicon: %s/%s: pattern %q: %v: %w", t.Namespace, c.Name, p, err, domain.ErrConfiguration)
				}
				cc.patterns = append(cc.patterns, re)
			}
			ct.categories = append(ct.categories, cc)
		}

		s.index[t.Namespace] = len(s.tables)
		s.tables = append(s.tables, ct)
	}
	return s, nil
}

var defaultScanner = mustScanner(DefaultTables())

// Default returns the scanner built from DefaultTables.
func Default() *Scanner {
	return defaultScanner
}

func mustScanner(tables []Table) *Scanner {
	s, err := NewScanner(tables)
	if err != nil {
		panic(err)
	}
	return s
}

// Scan matches text against every namespace.
func (s *Scanner) Scan(text string) domain.SignalSet {
	return s.scan(text, nil)
}

// ScanNamespaces matches text against the given namespaces only.
func (s *Scanner) ScanNamespaces(text string, namespaces ...domain.Namespace) domain.SignalSet {
	return s.scan(text, namespaces)
}

func (s *Scanner) scan(text string, namespaces []domain.Namespace) domain.SignalSet {
	out := domain.SignalSet{}
	folded := Fold(text)
	if strings.TrimSpace(folded) == "" {
		return out
	}

	for _, t := range s.selected(namespaces) {
		var matched []string
		for _, c := range t.categories {
			for _, re := range c.patterns {
				if re.MatchString(folded) {
					matched = append(matched, c.name)
					break
				}
			}
		}
		if len(matched) > 0 {
			out[t.namespace] = matched
		}
	}
	return out
}

// MatchesAny reports whether any category of namespace matches text.
func (s *Scanner) MatchesAny(text string, namespace domain.Namespace) bool {
	i, ok := s.index[namespace]
	if !ok {
		return false
	}
	folded := Fold(text)
	for _, c := range s.tables[i].categories {
		for _, re := range c.patterns {
			if re.MatchString(folded) {
				return true
			}
		}
	}
	return false
}

// Namespaces lists the namespaces this scanner knows, in table order.
func (s *Scanner) Namespaces() []domain.Namespace {
	out := make([]domain.Namespace, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t.namespace)
	}
	return out
}

func (s *Scanner) selected(namespaces []domain.Namespace) []compiledTable {
	if len(namespaces) == 0 {
		return s.tables
	}
	out := make([]compiledTable, 0, len(namespaces))
	for _, ns := range namespaces {
		if i, ok := s.index[ns]; ok {
			out = append(out, s.tables[i])
		}
	}
	return out
}

var quoteFolder = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
)

// Fold applies NFKC normalization, Unicode case folding and straightens
// typographic quotes so "Can’t" and "can't" match the same pattern.
func Fold(text string) string {
	// cases.Caser is stateful; one per call.
	return quoteFolder.Replace(cases.Fold().String(norm.NFKC.String(text)))
}

// Merge returns base with every table of overrides replacing the base table
// of the same namespace; new namespaces are appended.
func Merge(base, overrides []Table) []Table {
	out := make([]Table, len(base))
	copy(out, base)
	for _, o := range overrides {
		replaced := false
		for i := range out {
			if out[i].Namespace == o.Namespace {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}
