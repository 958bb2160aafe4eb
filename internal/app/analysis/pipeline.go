// Package analysis runs the scoring components over one message and produces
// the triage result consumed by the conversation layer.
package analysis

import (
	"context"
	"fmt"

	"github.com/PabloGalante/mindcare/internal/analysis/crisis"
	"github.com/PabloGalante/mindcare/internal/analysis/sentiment"
	"github.com/PabloGalante/mindcare/internal/analysis/stress"
	"github.com/PabloGalante/mindcare/internal/domain"
	"github.com/PabloGalante/mindcare/internal/observability"
)

// Result is everything derived from one message.
type Result struct {
	Sentiment domain.SentimentResult `json:"sentiment"`
	Stress    stress.Assessment      `json:"stress"`
	// Urgency is the message-level triage that gates emergency handling.
	Urgency domain.UrgencyLevel `json:"urgency"`
	// CrisisLevel is the emergency handler's own assessment, informational only.
	CrisisLevel    domain.UrgencyLevel `json:"crisis_level"`
	EmotionalState string              `json:"emotional_state"`
	// Degraded is set when scoring failed and conservative defaults were used.
	Degraded bool `json:"degraded,omitempty"`
}

// Indicators returns the stress signals appended to a risk profile.
func (r Result) Indicators() []string {
	return r.Stress.Signals
}

// SentimentScorer scores one message.
type SentimentScorer interface {
	Score(text string) domain.SentimentResult
}

// StressAssessor produces the stress report of one message.
type StressAssessor interface {
	Assess(text string, history []string) stress.Assessment
}

// UrgencyClassifier decides message-level urgency.
type UrgencyClassifier interface {
	Classify(text string, sent domain.SentimentResult, stressSignals []string) domain.UrgencyLevel
	CrisisLevel(text string, sent domain.SentimentResult) domain.UrgencyLevel
}

// Pipeline wires scorer, aggregator and classifier. It holds no mutable state.
type Pipeline struct {
	scorer     SentimentScorer
	aggregator StressAssessor
	classifier UrgencyClassifier
	metrics    *observability.Metrics
}

// NewPipeline uses the package defaults for any nil component.
func NewPipeline(scorer SentimentScorer, aggregator StressAssessor, classifier UrgencyClassifier, metrics *observability.Metrics) *Pipeline {
	if scorer == nil {
		scorer = sentiment.Default()
	}
	if aggregator == nil {
		aggregator = stress.NewAggregator(nil)
	}
	if classifier == nil {
		classifier = crisis.Default()
	}
	return &Pipeline{scorer: scorer, aggregator: aggregator, classifier: classifier, metrics: metrics}
}

// Analyze scores text against the trailing history. It never fails: an
// internal fault yields a degraded result at high urgency and critical stress.
func (p *Pipeline) Analyze(ctx context.Context, text string, history []string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			observability.LoggerFromContext(ctx).Error("analysis panicked, using conservative defaults",
				"panic", fmt.Sprint(r),
				"text_length", len(text),
			)
			p.metrics.RecordScoringFault()
			res = conservative(res)
		}
		p.metrics.RecordClassification(res.Urgency.String())
	}()

	res.Sentiment = p.scorer.Score(text)
	res.Stress = p.aggregator.Assess(text, history)
	// Message-level triage. The stress report endpoint uses res.Stress.Level instead.
	res.Urgency = p.classifier.Classify(text, res.Sentiment, res.Stress.Signals)
	res.CrisisLevel = p.classifier.CrisisLevel(text, res.Sentiment)
	res.EmotionalState = sentiment.EmotionalState(res.Sentiment)
	return res
}

// StressReport runs only the stress aggregator.
func (p *Pipeline) StressReport(text string, history []string) stress.Assessment {
	return p.aggregator.Assess(text, history)
}

// conservative keeps whatever was computed and never lowers the urgency.
func conservative(partial Result) Result {
	partial.Degraded = true
	if partial.Urgency < domain.UrgencyHigh {
		partial.Urgency = domain.UrgencyHigh
	}
	if partial.CrisisLevel < domain.UrgencyHigh {
		partial.CrisisLevel = domain.UrgencyHigh
	}
	partial.Stress.Level = domain.StressCritical
	partial.Stress.RequiresImmediateAttention = true
	if partial.Stress.Recommendations == nil {
		partial.Stress.Recommendations = stress.Recommendations(domain.StressCritical, nil)
	}
	if partial.EmotionalState == "" {
		partial.EmotionalState = sentiment.StateHighRisk
	}
	return partial
}
