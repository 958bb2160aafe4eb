// Package crisis decides the message-level urgency that gates emergency handling.
//
// This path is independent of the stress aggregator's levels: message triage
// uses Classify, the stress report uses stress.LevelFor. They use different
// phrase sets and thresholds and may disagree on the same text.
package crisis

import (
	"fmt"
	"slices"
	"strings"

	"github.com/PabloGalante/mindcare/internal/analysis/lexicon"
	"github.com/PabloGalante/mindcare/internal/domain"
)

// Phrases are matched as case-insensitive substrings of the folded text.
type Phrases struct {
	ImmediateDanger []string `yaml:"immediate_danger" json:"immediate_danger"`
	HighDistress    []string `yaml:"high_distress" json:"high_distress"`

	// Used by CrisisLevel only.
	Emergency       []string `yaml:"emergency" json:"emergency"`
	SelfHarm        []string `yaml:"self_harm" json:"self_harm"`
	SevereDistress  []string `yaml:"severe_distress" json:"severe_distress"`
	SubstanceCrisis []string `yaml:"substance_crisis" json:"substance_crisis"`
}

// DefaultPhrases returns the built-in phrase lists.
func DefaultPhrases() Phrases {
	return Phrases{
		ImmediateDanger: []string{
			"suicide", "kill myself", "end it all", "no point", "hopeless",
			"harm myself", "want to die", "can't go on", "giving up",
		},
		HighDistress: []string{
			"panic attack", "can't breathe", "heart racing", "overwhelming",
			"breaking down", "falling apart", "can't cope",
		},
		Emergency: []string{
			"kill myself", "end my life", "suicide", "want to die",
			"better off dead", "no point living", "taking my life",
			"ending it all", "can't go on", "giving up on life",
		},
		SelfHarm: []string{
			"hurt myself", "harm myself", "cut myself", "injure myself",
			"self harm", "self injury", "want to hurt", "cutting myself",
		},
		SevereDistress: []string{
			"can't take it anymore", "breaking point", "falling apart",
			"losing control", "going crazy", "can't handle", "overwhelmed completely",
			"nothing matters", "hopeless", "trapped", "no way out",
		},
		SubstanceCrisis: []string{
			"overdose", "too many pills", "drinking to forget",
			"using drugs to cope", "can't stop drinking", "substance abuse",
		},
	}
}

// Classifier is immutable and safe for concurrent use.
type Classifier struct {
	phrases Phrases
}

// NewClassifier folds every phrase once. Empty lists fall back to defaults;
// the two triage lists must not contain blank phrases.
func NewClassifier(p Phrases) (*Classifier, error) {
	def := DefaultPhrases()
	lists := []struct {
		name string
		dst  *[]string
		def  []string
	}{
		{"immediate_danger", &p.ImmediateDanger, def.ImmediateDanger},
		{"high_distress", &p.HighDistress, def.HighDistress},
		{"emergency", &p.Emergency, def.Emergency},
		{"self_harm", &p.SelfHarm, def.SelfHarm},
		{"severe_distress", &p.SevereDistress, def.SevereDistress},
		{"substance_crisis", &p.SubstanceCrisis, def.SubstanceCrisis},
	}
	for _, l := range lists {
		if len(*l.dst) == 0 {
			*l.dst = l.def
		}
		folded := make([]string, 0, len(*l.dst))
		for _, phrase := range *l.dst {
			f := strings.TrimSpace(lexicon.Fold(phrase))
			if f == "" {
				return nil, fmt.Errorf("crisis: blank phrase in %s: %w", l.name, domain.ErrConfiguration)
			}
			folded = append(folded, f)
		}
		*l.dst = folded
	}
	return &Classifier{phrases: p}, nil
}

var defaultClassifier = mustClassifier(DefaultPhrases())

func mustClassifier(p Phrases) *Classifier {
	c, err := NewClassifier(p)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the classifier built from DefaultPhrases.
func Default() *Classifier {
	return defaultClassifier
}

// Classify returns exactly one urgency level. The first matching rule wins:
// immediate-danger phrase, high-distress phrase, strongly negative sentiment
// or three stress signals, mildly negative sentiment or any stress signal.
func (c *Classifier) Classify(text string, sent domain.SentimentResult, stressSignals []string) domain.UrgencyLevel {
	folded := lexicon.Fold(text)

	switch {
	case containsAny(folded, c.phrases.ImmediateDanger):
		return domain.UrgencyEmergency
	case containsAny(folded, c.phrases.HighDistress):
		return domain.UrgencyHigh
	case sent.Compound < -0.7 || len(stressSignals) >= 3:
		return domain.UrgencyHigh
	case sent.Compound < -0.3 || len(stressSignals) >= 1:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// ImmediateDanger reports whether text contains an immediate-danger phrase.
func (c *Classifier) ImmediateDanger(text string) bool {
	return containsAny(lexicon.Fold(text), c.phrases.ImmediateDanger)
}

// CrisisLevel is the emergency handler's own five-state assessment. It can
// return UrgencyNone, which Classify never does. Medium reads as "moderate".
func (c *Classifier) CrisisLevel(text string, sent domain.SentimentResult) domain.UrgencyLevel {
	folded := lexicon.Fold(text)
	severe := countAny(folded, c.phrases.SevereDistress)

	switch {
	case containsAny(folded, c.phrases.Emergency) || slices.Contains(sent.Risks, "suicidal_ideation"):
		return domain.UrgencyEmergency
	case containsAny(folded, c.phrases.SelfHarm) || slices.Contains(sent.Risks, "self_harm"):
		return domain.UrgencyHigh
	case severe >= 2 || sent.Compound < -0.8 || containsAny(folded, c.phrases.SubstanceCrisis):
		return domain.UrgencyMedium
	case severe >= 1 || sent.Compound < -0.5:
		return domain.UrgencyLow
	default:
		return domain.UrgencyNone
	}
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func countAny(text string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}
