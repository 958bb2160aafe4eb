package sentiment

import (
	"slices"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// Label maps a compound score to positive, negative or neutral.
func Label(compound float64) string {
	switch {
	case compound >= 0.05:
		return "positive"
	case compound <= -0.05:
		return "negative"
	default:
		return "neutral"
	}
}

// Emotional states, most severe first.
const (
	StateCrisis         = "crisis"
	StateHighRisk       = "high_risk"
	StateAtRisk         = "at_risk"
	StateSevereDistress = "severe_distress"
	StateMildDistress   = "mild_distress"
	StatePositive       = "positive"
	StateNeutral        = "neutral"
)

// EmotionalState summarizes a result. Risk indicators take precedence over
// the compound score.
func EmotionalState(r domain.SentimentResult) string {
	if len(r.Risks) > 0 {
		switch {
		case slices.Contains(r.Risks, "suicidal_ideation"), slices.Contains(r.Risks, "self_harm"):
			return StateCrisis
		case len(r.Risks) >= 2:
			return StateHighRisk
		default:
			return StateAtRisk
		}
	}

	switch {
	case r.Compound <= -0.7:
		return StateSevereDistress
	case r.Compound <= -0.3:
		return StateMildDistress
	case r.Compound >= 0.3:
		return StatePositive
	default:
		return StateNeutral
	}
}

// TrendResult describes how sentiment moved across a window of messages.
type TrendResult struct {
	Trend        string  `json:"trend"`
	Average      float64 `json:"average_sentiment"`
	Variance     float64 `json:"sentiment_variance"`
	Slope        float64 `json:"slope"`
	MessageCount int     `json:"message_count"`
}

// Trend scores each message and fits a least-squares line through the
// compounds: slope above 0.1 is improving, below -0.1 declining.
func (s *Scorer) Trend(messages []string) TrendResult {
	if len(messages) == 0 {
		return TrendResult{Trend: "stable"}
	}

	ys := make([]float64, len(messages))
	for i, m := range messages {
		ys[i] = s.Score(m).Compound
	}
	return TrendOf(ys)
}

// TrendOf is Trend over already computed compound scores.
func TrendOf(ys []float64) TrendResult {
	res := TrendResult{Trend: "stable", MessageCount: len(ys)}
	if len(ys) == 0 {
		return res
	}

	avg := mean(ys)
	variance := 0.0
	for _, y := range ys {
		variance += (y - avg) * (y - avg)
	}
	res.Average = avg
	res.Variance = variance / float64(len(ys))

	if len(ys) < 2 {
		res.Trend = "insufficient_data"
		return res
	}

	xMean := float64(len(ys)-1) / 2
	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - avg)
		den += dx * dx
	}
	res.Slope = num / den

	switch {
	case res.Slope > 0.1:
		res.Trend = "improving"
	case res.Slope < -0.1:
		res.Trend = "declining"
	}
	return res
}
