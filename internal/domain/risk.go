package domain

import (
	"fmt"
	"strings"
)

// UrgencyLevel is the ordered message-level triage result.
// The zero value is UrgencyNone.
type UrgencyLevel int

const (
	UrgencyNone UrgencyLevel = iota
	UrgencyLow
	UrgencyMedium
	UrgencyHigh
	UrgencyEmergency
)

var urgencyNames = [...]string{"none", "low", "medium", "high", "emergency"}

func (u UrgencyLevel) String() string {
	if u < UrgencyNone || u > UrgencyEmergency {
		return fmt.Sprintf("urgency(%d)", int(u))
	}
	return urgencyNames[u]
}

// Valid reports whether u is one of the five defined levels.
func (u UrgencyLevel) Valid() bool {
	return u >= UrgencyNone && u <= UrgencyEmergency
}

// IsCrisis reports whether u requires crisis handling (audit trail, retried persistence).
func (u UrgencyLevel) IsCrisis() bool {
	return u >= UrgencyHigh
}

// ParseUrgency accepts the canonical names plus "moderate" as an alias of medium.
func ParseUrgency(s string) (UrgencyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return UrgencyNone, nil
	case "low":
		return UrgencyLow, nil
	case "medium", "moderate":
		return UrgencyMedium, nil
	case "high":
		return UrgencyHigh, nil
	case "emergency":
		return UrgencyEmergency, nil
	}
	return UrgencyNone, fmt.Errorf("unknown urgency level %q: %w", s, ErrInvalidInput)
}

func (u UrgencyLevel) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("invalid urgency level %d", int(u))
	}
	return []byte(u.String()), nil
}

func (u *UrgencyLevel) UnmarshalText(b []byte) error {
	v, err := ParseUrgency(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// StressLevel is the discrete result of the stress aggregator.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressMild     StressLevel = "mild"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
	StressCritical StressLevel = "critical"
)

// BurnoutLevel is the per-message burnout assessment.
type BurnoutLevel string

const (
	BurnoutLow      BurnoutLevel = "low"
	BurnoutMild     BurnoutLevel = "mild"
	BurnoutModerate BurnoutLevel = "moderate"
	BurnoutHigh     BurnoutLevel = "high"
)

// BurnoutRisk is the rolling burnout classification kept on a risk profile.
type BurnoutRisk string

const (
	BurnoutRiskLow    BurnoutRisk = "low"
	BurnoutRiskMedium BurnoutRisk = "medium"
	BurnoutRiskHigh   BurnoutRisk = "high"
)

// Namespace partitions indicator categories.
type Namespace string

const (
	NSStressDomain     Namespace = "stress_domain"
	NSPhysicalSymptom  Namespace = "physical_symptom"
	NSEmotionalMarker  Namespace = "emotional_marker"
	NSBehavioralMarker Namespace = "behavioral_marker"
	NSCrisisMarker     Namespace = "crisis_marker"
	NSPositiveCoping   Namespace = "positive_coping"
	NSBurnoutMarker    Namespace = "burnout_marker"
	NSAnxietyType      Namespace = "anxiety_type"
	NSAnxietyIntensity Namespace = "anxiety_intensity"
)

// StressNamespaces are the four namespaces whose matches count as stress signals.
var StressNamespaces = []Namespace{
	NSStressDomain,
	NSPhysicalSymptom,
	NSEmotionalMarker,
	NSBehavioralMarker,
}

// SignalSet maps a namespace to the categories matched in it, in table order.
// A category appears at most once per namespace.
type SignalSet map[Namespace][]string

// Get returns the matched categories of the given namespaces, concatenated in argument order.
func (s SignalSet) Get(namespaces ...Namespace) []string {
	var out []string
	for _, ns := range namespaces {
		out = append(out, s[ns]...)
	}
	return out
}

// Count returns the number of matched categories across the given namespaces.
func (s SignalSet) Count(namespaces ...Namespace) int {
	n := 0
	for _, ns := range namespaces {
		n += len(s[ns])
	}
	return n
}

// Has reports whether category was matched in namespace.
func (s SignalSet) Has(ns Namespace, category string) bool {
	for _, c := range s[ns] {
		if c == category {
			return true
		}
	}
	return false
}

// Empty reports whether no namespace has a match.
func (s SignalSet) Empty() bool {
	for _, cats := range s {
		if len(cats) > 0 {
			return false
		}
	}
	return true
}

// SentimentResult is the output of the sentiment scorer.
type SentimentResult struct {
	Compound      float64        `json:"compound"`
	General       float64        `json:"general"`
	Lexical       float64        `json:"lexical"`
	Domain        float64        `json:"domain"`
	Subjectivity  float64        `json:"subjectivity"`
	Emotions      map[string]int `json:"emotions"`
	Risks         []string       `json:"risk_indicators,omitempty"`
	TextLength    int            `json:"text_length"`
	SentenceCount int            `json:"sentence_count"`
}
