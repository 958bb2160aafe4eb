// Package stress turns lexical signals into a discrete stress level, a
// burnout risk and an anxiety profile.
package stress

import (
	"slices"

	"github.com/PabloGalante/mindcare/internal/analysis/lexicon"
	"github.com/PabloGalante/mindcare/internal/domain"
)

const (
	defaultHistoryWindow    = 10
	defaultChronicThreshold = 5
)

// Assessment is the result of one stress report.
type Assessment struct {
	Level           domain.StressLevel `json:"stress_level"`
	Score           float64            `json:"stress_score"`
	Signals         []string           `json:"stress_signals"`
	CrisisSignals   []string           `json:"crisis_signals"`
	CopingSignals   []string           `json:"coping_signals"`
	SignalCount     int                `json:"signal_count"`
	Recommendations []string           `json:"recommendations"`

	Burnout Burnout `json:"burnout_analysis"`
	Anxiety Anxiety `json:"anxiety_analysis"`

	// RequiresImmediateAttention is set for critical level or any crisis signal.
	RequiresImmediateAttention bool `json:"requires_immediate_attention"`

	// Matched holds every namespace scanned for this text.
	Matched domain.SignalSet `json:"-"`
}

// Burnout is the independent burnout assessment.
type Burnout struct {
	Risk            domain.BurnoutLevel `json:"burnout_risk"`
	Indicators      []string            `json:"burnout_indicators"`
	ChronicStress   bool                `json:"chronic_stress_detected"`
	Recommendations []string            `json:"recommendations"`
}

// Anxiety lists detected anxiety types and their severity.
type Anxiety struct {
	Types         []string `json:"anxiety_types"`
	HighIntensity bool     `json:"high_intensity"`
	Severity      string   `json:"severity"`
}

// Aggregator is stateless apart from its immutable scanner.
type Aggregator struct {
	scanner          *lexicon.Scanner
	historyWindow    int
	chronicThreshold int
}

type Option func(*Aggregator)

// WithHistoryWindow sets how many trailing history turns feed the chronic-stress flag.
func WithHistoryWindow(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.historyWindow = n
		}
	}
}

// NewAggregator returns an aggregator over scanner, or the default scanner when nil.
func NewAggregator(scanner *lexicon.Scanner, opts ...Option) *Aggregator {
	if scanner == nil {
		scanner = lexicon.Default()
	}
	a := &Aggregator{
		scanner:          scanner,
		historyWindow:    defaultHistoryWindow,
		chronicThreshold: defaultChronicThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess scores text and, when history is given, checks it for chronic stress.
func (a *Aggregator) Assess(text string, history []string) Assessment {
	set := a.scanner.Scan(text)

	signals := set.Get(domain.StressNamespaces...)
	crisis := set.Get(domain.NSCrisisMarker)
	coping := set.Get(domain.NSPositiveCoping)

	score := Score(len(signals), len(crisis), len(coping))
	level := LevelFor(score, len(crisis))

	return Assessment{
		Level:                      level,
		Score:                      score,
		Signals:                    nonNil(signals),
		CrisisSignals:              nonNil(crisis),
		CopingSignals:              nonNil(coping),
		SignalCount:                len(signals),
		Recommendations:            Recommendations(level, signals),
		Burnout:                    a.burnout(set, history),
		Anxiety:                    anxiety(set),
		RequiresImmediateAttention: level == domain.StressCritical || len(crisis) > 0,
		Matched:                    set,
	}
}

// Score weighs crisis markers three times and lets each coping marker offset half a signal.
func Score(signals, crisis, coping int) float64 {
	return float64(signals) + 3*float64(crisis) - 0.5*float64(coping)
}

// LevelFor maps a score to a level, most severe first. A single crisis
// marker forces critical whatever the score.
func LevelFor(score float64, crisis int) domain.StressLevel {
	switch {
	case crisis > 0 || score >= 8:
		return domain.StressCritical
	case score >= 5:
		return domain.StressHigh
	case score >= 3:
		return domain.StressModerate
	case score >= 1:
		return domain.StressMild
	default:
		return domain.StressLow
	}
}

// Burnout assesses burnout risk on its own.
func (a *Aggregator) Burnout(text string, history []string) Burnout {
	return a.burnout(a.scanner.ScanNamespaces(text, domain.NSBurnoutMarker), history)
}

func (a *Aggregator) burnout(set domain.SignalSet, history []string) Burnout {
	indicators := set.Get(domain.NSBurnoutMarker)
	chronic := a.chronicStress(history)

	var risk domain.BurnoutLevel
	switch n := len(indicators); {
	case n >= 3 || chronic:
		risk = domain.BurnoutHigh
	case n >= 2:
		risk = domain.BurnoutModerate
	case n >= 1:
		risk = domain.BurnoutMild
	default:
		risk = domain.BurnoutLow
	}

	return Burnout{
		Risk:            risk,
		Indicators:      nonNil(indicators),
		ChronicStress:   chronic,
		Recommendations: BurnoutRecommendations(risk),
	}
}

// chronicStress reports whether enough of the trailing history window
// mentions any stress domain.
func (a *Aggregator) chronicStress(history []string) bool {
	if len(history) > a.historyWindow {
		history = history[len(history)-a.historyWindow:]
	}
	mentions := 0
	for _, msg := range history {
		if a.scanner.MatchesAny(msg, domain.NSStressDomain) {
			mentions++
		}
	}
	return mentions >= a.chronicThreshold
}

// Anxiety reports detected anxiety types and intensity.
func (a *Aggregator) Anxiety(text string) Anxiety {
	return anxiety(a.scanner.ScanNamespaces(text, domain.NSAnxietyType, domain.NSAnxietyIntensity))
}

func anxiety(set domain.SignalSet) Anxiety {
	types := set.Get(domain.NSAnxietyType)
	high := set.Count(domain.NSAnxietyIntensity) > 0

	severity := "low"
	switch {
	case high:
		severity = "high"
	case len(types) > 0:
		severity = "moderate"
	}
	return Anxiety{Types: nonNil(types), HighIntensity: high, Severity: severity}
}

// Recommendations returns level advice followed by advice for specific signals.
func Recommendations(level domain.StressLevel, signals []string) []string {
	var out []string
	switch level {
	case domain.StressCritical:
		out = append(out,
			"Please consider reaching out to a mental health professional immediately",
			"Contact a crisis helpline if you're having thoughts of self-harm",
			"Reach out to a trusted friend or family member for support",
		)
	case domain.StressHigh:
		out = append(out,
			"Consider speaking with a therapist or counselor",
			"Practice deep breathing or meditation techniques",
			"Prioritize rest and sleep",
		)
	case domain.StressModerate:
		out = append(out,
			"Try stress-reduction techniques like mindfulness or yoga",
			"Ensure you're getting adequate sleep and exercise",
			"Consider talking to someone you trust about your concerns",
		)
	}

	if slices.Contains(signals, "work_stress") {
		out = append(out, "Consider setting boundaries at work and taking regular breaks")
	}
	if slices.Contains(signals, "sleep_issues") {
		out = append(out, "Focus on improving sleep hygiene and establishing a bedtime routine")
	}
	if slices.Contains(signals, "social_stress") {
		out = append(out, "Practice gradual exposure to social situations you find comfortable")
	}
	return nonNil(out)
}

// BurnoutRecommendations returns advice for a burnout risk level.
func BurnoutRecommendations(risk domain.BurnoutLevel) []string {
	switch risk {
	case domain.BurnoutHigh:
		return []string{
			"Consider taking time off work if possible",
			"Speak with a healthcare provider about burnout",
			"Reassess your workload and priorities",
			"Engage in activities that bring you joy and meaning",
		}
	case domain.BurnoutModerate:
		return []string{
			"Set clearer boundaries between work and personal time",
			"Practice regular self-care activities",
			"Consider delegating tasks when possible",
		}
	default:
		return []string{
			"Maintain work-life balance",
			"Continue practicing stress management techniques",
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
