package crisis_test

import (
	"errors"
	"testing"

	"github.com/PabloGalante/mindcare/internal/analysis/crisis"
	"github.com/PabloGalante/mindcare/internal/domain"
)

func TestClassifyPriorityOrder(t *testing.T) {
	c := crisis.Default()

	cases := []struct {
		name     string
		text     string
		compound float64
		signals  []string
		want     domain.UrgencyLevel
	}{
		{"kill myself", "I want to kill myself", 0, nil, domain.UrgencyEmergency},
		{"typographic apostrophe", "I can’t go on like this", 0, nil, domain.UrgencyEmergency},
		{"danger beats positive sentiment", "Great day, but honestly I want to die", 0.9, nil, domain.UrgencyEmergency},
		{"high distress phrase", "I had a panic attack at work", 0.2, nil, domain.UrgencyHigh},
		{"very negative", "meh", -0.75, nil, domain.UrgencyHigh},
		{"three signals", "meh", 0, []string{"a", "b", "c"}, domain.UrgencyHigh},
		{"mildly negative", "meh", -0.35, nil, domain.UrgencyMedium},
		{"one signal", "meh", 0, []string{"work_stress"}, domain.UrgencyMedium},
		{"boundary -0.3 is not medium", "meh", -0.3, nil, domain.UrgencyLow},
		{"calm", "had a nice walk", 0.4, nil, domain.UrgencyLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.text, domain.SentimentResult{Compound: tc.compound}, tc.signals)
			if got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
			}
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	c := crisis.Default()
	inputs := []string{"", " ", "\x00", "😀😀", "NO POINT", "a very long message about nothing in particular"}
	compounds := []float64{-1, -0.5, 0, 0.5, 1}

	for _, in := range inputs {
		for _, comp := range compounds {
			got := c.Classify(in, domain.SentimentResult{Compound: comp}, nil)
			if !got.Valid() || got == domain.UrgencyNone {
				t.Fatalf("Classify(%q, %v) = %v, want one of low..emergency", in, comp, got)
			}
		}
	}
}

func TestEmergencyDominatesAnySentiment(t *testing.T) {
	c := crisis.Default()
	for _, comp := range []float64{-1, 0, 1} {
		for _, sig := range [][]string{nil, {"a", "b", "c", "d"}} {
			if got := c.Classify("i think about suicide", domain.SentimentResult{Compound: comp}, sig); got != domain.UrgencyEmergency {
				t.Fatalf("compound %v signals %v: got %s", comp, sig, got)
			}
		}
	}
}

func TestCrisisLevel(t *testing.T) {
	c := crisis.Default()

	cases := []struct {
		name string
		text string
		sent domain.SentimentResult
		want domain.UrgencyLevel
	}{
		{"end my life", "I want to end my life", domain.SentimentResult{}, domain.UrgencyEmergency},
		{"risk indicator", "hmm", domain.SentimentResult{Risks: []string{"suicidal_ideation"}}, domain.UrgencyEmergency},
		{"self harm", "I want to hurt someone, maybe myself", domain.SentimentResult{}, domain.UrgencyHigh},
		{"two severe", "I feel trapped, no way out", domain.SentimentResult{}, domain.UrgencyMedium},
		{"substance", "I took too many pills", domain.SentimentResult{}, domain.UrgencyMedium},
		{"one severe", "I'm at my breaking point", domain.SentimentResult{}, domain.UrgencyLow},
		{"negative", "bad day", domain.SentimentResult{Compound: -0.6}, domain.UrgencyLow},
		{"none", "bad day", domain.SentimentResult{Compound: -0.2}, domain.UrgencyNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.CrisisLevel(tc.text, tc.sent); got != tc.want {
				t.Fatalf("CrisisLevel(%q) = %s, want %s", tc.text, got, tc.want)
			}
		})
	}
}

func TestNewClassifierCustomPhrases(t *testing.T) {
	c, err := crisis.NewClassifier(crisis.Phrases{ImmediateDanger: []string{"Red Flag"}})
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	if got := c.Classify("this is a RED FLAG", domain.SentimentResult{}, nil); got != domain.UrgencyEmergency {
		t.Fatalf("custom phrase: got %s", got)
	}
	if got := c.Classify("I want to kill myself", domain.SentimentResult{}, nil); got == domain.UrgencyEmergency {
		t.Fatalf("replaced list still matched default phrase")
	}

	_, err = crisis.NewClassifier(crisis.Phrases{HighDistress: []string{"  "}})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCrisisLevelUsesConfiguredEmergencyPhrases(t *testing.T) {
	c, err := crisis.NewClassifier(crisis.Phrases{Emergency: []string{"Last Goodbye"}})
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	if got := c.CrisisLevel("this is my last goodbye", domain.SentimentResult{}); got != domain.UrgencyEmergency {
		t.Fatalf("custom emergency phrase: got %s", got)
	}
	if got := c.CrisisLevel("I want to end my life", domain.SentimentResult{}); got == domain.UrgencyEmergency {
		t.Fatalf("replaced emergency list still matched a default phrase")
	}
}
