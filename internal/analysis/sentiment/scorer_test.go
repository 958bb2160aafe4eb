package sentiment_test

import (
	"errors"
	"math"
	"testing"

	"github.com/PabloGalante/mindcare/internal/analysis/sentiment"
	"github.com/PabloGalante/mindcare/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreEmptyText(t *testing.T) {
	s := sentiment.Default()

	for _, text := range []string{"", "   \n"} {
		res := s.Score(text)
		if res.Compound != 0 || len(res.Emotions) != 0 || len(res.Risks) != 0 {
			t.Fatalf("Score(%q) = %+v, want neutral zero result", text, res)
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s := sentiment.Default()
	text := "I'm extremely stressed about work but my friends make me very happy!"

	first := s.Score(text)
	for i := 0; i < 50; i++ {
		again := s.Score(text)
		if math.Float64bits(again.Compound) != math.Float64bits(first.Compound) {
			t.Fatalf("run %d: compound %v != %v", i, again.Compound, first.Compound)
		}
	}

	other, err := sentiment.New(sentiment.DefaultTables())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if math.Float64bits(other.Score(text).Compound) != math.Float64bits(first.Compound) {
		t.Fatalf("identical tables produced a different compound")
	}
}

func TestCompoundStaysInRange(t *testing.T) {
	s := sentiment.Default()
	inputs := []string{
		"hopeless hopeless hopeless worthless empty depressed!!!!!!",
		"extremely extremely happy joy joy grateful wonderful amazing!!!!",
		"I am not not not fine",
		"?!.,",
		"ok",
	}
	for _, in := range inputs {
		c := s.Score(in).Compound
		if c < -1 || c > 1 {
			t.Errorf("Score(%q).Compound = %v, outside [-1,1]", in, c)
		}
	}
}

func TestNegationFusion(t *testing.T) {
	if got := sentiment.Normalize("I am  NOT   happy"); got != "i am not_happy" {
		t.Fatalf("Normalize = %q", got)
	}

	s := sentiment.Default()
	pos := s.Score("I am happy")
	neg := s.Score("I am not happy")
	if pos.Compound <= 0 {
		t.Fatalf("expected positive compound, got %v", pos.Compound)
	}
	if neg.Compound >= 0 {
		t.Fatalf("expected negated compound below zero, got %v", neg.Compound)
	}
	if _, ok := neg.Emotions["joy"]; ok {
		t.Fatalf("negated word must not count as joy: %v", neg.Emotions)
	}
}

func TestDomainModifiers(t *testing.T) {
	s := sentiment.Default()

	cases := []struct {
		text string
		want float64
	}{
		{"I feel sad", -0.6},
		{"I feel very sad", -0.6 * 1.3},
		{"I feel slightly sad", -0.6 * 0.7},
		{"I feel a bit sad", -0.6 * 0.7},
		{"I feel kind of sad", -0.6 * 0.8},
		{"sad and happy", (-0.6 + 0.7) / 2},
		{"nothing to report", 0},
	}
	for _, tc := range cases {
		if got := s.Score(tc.text).Domain; !almostEqual(got, tc.want) {
			t.Errorf("Score(%q).Domain = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestCustomWeights(t *testing.T) {
	s, err := sentiment.New(sentiment.Tables{Weights: sentiment.Weights{Domain: 1}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res := s.Score("I feel very sad")
	if !almostEqual(res.Compound, res.Domain) {
		t.Fatalf("compound %v, want domain score %v", res.Compound, res.Domain)
	}
}

func TestNewRejectsInvalidTables(t *testing.T) {
	bad := []sentiment.Tables{
		{Weights: sentiment.Weights{General: -1, Lexical: 1}},
		{Keywords: map[string]float64{"doom": -2}},
		{Modifiers: map[string]float64{"very": 0}},
	}
	for i, tb := range bad {
		if _, err := sentiment.New(tb); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("case %d: expected ErrConfiguration, got %v", i, err)
		}
	}
}

func TestEmotionCounts(t *testing.T) {
	res := sentiment.Default().Score("I'm anxious and worried, so anxious. Also lonely.")

	if res.Emotions["anxiety"] != 3 {
		t.Fatalf("anxiety = %d, want 3 (%v)", res.Emotions["anxiety"], res.Emotions)
	}
	if res.Emotions["loneliness"] != 1 {
		t.Fatalf("loneliness = %d, want 1", res.Emotions["loneliness"])
	}
	if res.SentenceCount != 2 {
		t.Fatalf("sentence count = %d, want 2", res.SentenceCount)
	}
}

func TestRiskIndicatorsAndState(t *testing.T) {
	s := sentiment.Default()

	res := s.Score("Honestly there is no point living anymore")
	if len(res.Risks) == 0 || res.Risks[0] != "suicidal_ideation" {
		t.Fatalf("expected suicidal_ideation, got %v", res.Risks)
	}
	if got := sentiment.EmotionalState(res); got != sentiment.StateCrisis {
		t.Fatalf("state = %q, want crisis", got)
	}

	two := s.Score("I can't sleep and I keep avoiding people")
	if got := sentiment.EmotionalState(two); got != sentiment.StateHighRisk {
		t.Fatalf("state = %q, want high_risk (%v)", got, two.Risks)
	}

	if got := sentiment.EmotionalState(domain.SentimentResult{Compound: -0.8}); got != sentiment.StateSevereDistress {
		t.Fatalf("state = %q, want severe_distress", got)
	}
	if got := sentiment.EmotionalState(domain.SentimentResult{Compound: 0.1}); got != sentiment.StateNeutral {
		t.Fatalf("state = %q, want neutral", got)
	}
}

func TestLabel(t *testing.T) {
	cases := map[float64]string{0.05: "positive", 0.5: "positive", -0.05: "negative", 0.0: "neutral", 0.049: "neutral"}
	for in, want := range cases {
		if got := sentiment.Label(in); got != want {
			t.Errorf("Label(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTrendOf(t *testing.T) {
	cases := []struct {
		name string
		ys   []float64
		want string
	}{
		{"empty", nil, "stable"},
		{"single", []float64{0.3}, "insufficient_data"},
		{"improving", []float64{-0.8, -0.4, 0, 0.4}, "improving"},
		{"declining", []float64{0.6, 0.2, -0.3}, "declining"},
		{"flat", []float64{0.1, 0.12, 0.09, 0.11}, "stable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sentiment.TrendOf(tc.ys)
			if got.Trend != tc.want {
				t.Fatalf("trend = %q (slope %v), want %q", got.Trend, got.Slope, tc.want)
			}
			if got.MessageCount != len(tc.ys) {
				t.Fatalf("message count = %d", got.MessageCount)
			}
		})
	}
}
