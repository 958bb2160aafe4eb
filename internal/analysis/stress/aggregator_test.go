package stress_test

import (
	"testing"

	"github.com/PabloGalante/mindcare/internal/analysis/stress"
	"github.com/PabloGalante/mindcare/internal/domain"
)

func TestAssessCasualTiredness(t *testing.T) {
	a := stress.NewAggregator(nil)

	got := a.Assess("I'm a bit tired but okay", nil)
	if got.Level != domain.StressLow {
		t.Fatalf("level = %s, want low (signals %v)", got.Level, got.Signals)
	}
	if len(got.CrisisSignals) != 0 {
		t.Fatalf("crisis signals = %v, want none", got.CrisisSignals)
	}
	if got.RequiresImmediateAttention {
		t.Fatalf("did not expect immediate attention")
	}
}

func TestAssessCrisisForcesCritical(t *testing.T) {
	a := stress.NewAggregator(nil)

	got := a.Assess("I want to die", nil)
	if got.Level != domain.StressCritical {
		t.Fatalf("level = %s, want critical", got.Level)
	}
	if got.Score != 3 {
		t.Fatalf("score = %v, want 3", got.Score)
	}
	if !got.RequiresImmediateAttention {
		t.Fatalf("expected immediate attention")
	}
}

func TestScoreMonotoneInCrisisMatches(t *testing.T) {
	a := stress.NewAggregator(nil)

	texts := []string{
		"my boss is awful",
		"my boss is awful and I want to die",
		"my boss is awful and I want to die, I could hurt myself",
		"my boss is awful and I want to die, I could hurt myself, there is no way out",
	}

	prev := -1000.0
	prevCrisis := -1
	for _, text := range texts {
		got := a.Assess(text, nil)
		if len(got.CrisisSignals) <= prevCrisis {
			t.Fatalf("%q: crisis count %d did not grow", text, len(got.CrisisSignals))
		}
		if got.Score < prev {
			t.Fatalf("%q: score %v decreased from %v", text, got.Score, prev)
		}
		prev, prevCrisis = got.Score, len(got.CrisisSignals)
	}

	for crisis := 0; crisis < 5; crisis++ {
		if stress.Score(2, crisis+1, 1) < stress.Score(2, crisis, 1) {
			t.Fatalf("Score not monotone at crisis=%d", crisis)
		}
	}
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score  float64
		crisis int
		want   domain.StressLevel
	}{
		{0, 0, domain.StressLow},
		{0.5, 0, domain.StressLow},
		{1, 0, domain.StressMild},
		{3, 0, domain.StressModerate},
		{5, 0, domain.StressHigh},
		{8, 0, domain.StressCritical},
		{-1, 1, domain.StressCritical},
	}
	for _, tc := range cases {
		if got := stress.LevelFor(tc.score, tc.crisis); got != tc.want {
			t.Errorf("LevelFor(%v, %d) = %s, want %s", tc.score, tc.crisis, got, tc.want)
		}
	}
}

func TestCopingLowersScore(t *testing.T) {
	a := stress.NewAggregator(nil)

	without := a.Assess("work has me anxious", nil)
	with := a.Assess("work has me anxious but therapy and meditation help", nil)
	if with.Score >= without.Score {
		t.Fatalf("coping did not lower score: %v >= %v", with.Score, without.Score)
	}
	if len(with.CopingSignals) != 2 {
		t.Fatalf("coping signals = %v", with.CopingSignals)
	}
}

func TestRecommendationsForSignals(t *testing.T) {
	recs := stress.Recommendations(domain.StressMild, []string{"work_stress", "sleep_issues"})
	if len(recs) != 2 {
		t.Fatalf("recommendations = %v", recs)
	}
	if len(stress.Recommendations(domain.StressCritical, nil)) != 3 {
		t.Fatalf("critical level must carry three recommendations")
	}
}

func TestBurnout(t *testing.T) {
	a := stress.NewAggregator(nil)

	cases := []struct {
		text string
		want domain.BurnoutLevel
	}{
		{"lovely day", domain.BurnoutLow},
		{"I feel drained", domain.BurnoutMild},
		{"I feel drained and useless", domain.BurnoutModerate},
		{"drained, useless, running on autopilot", domain.BurnoutHigh},
	}
	for _, tc := range cases {
		if got := a.Burnout(tc.text, nil); got.Risk != tc.want {
			t.Errorf("Burnout(%q) = %s, want %s (%v)", tc.text, got.Risk, tc.want, got.Indicators)
		}
	}
}

func TestChronicStressFromHistory(t *testing.T) {
	a := stress.NewAggregator(nil)

	history := []string{
		"deadline again", "my boss called", "rent is due", "exam tomorrow", "the project slipped",
	}
	got := a.Burnout("just checking in", history)
	if !got.ChronicStress || got.Risk != domain.BurnoutHigh {
		t.Fatalf("expected chronic stress and high risk, got %+v", got)
	}

	// Only the last ten turns count.
	padded := append(append([]string{}, history...), make([]string, 10)...)
	for i := range padded[5:] {
		padded[5+i] = "nice weather"
	}
	if a.Burnout("just checking in", padded).ChronicStress {
		t.Fatalf("turns outside the window must not count")
	}
}

func TestAnxiety(t *testing.T) {
	a := stress.NewAggregator(nil)

	got := a.Anxiety("I had a panic attack before my presentation, it was unbearable")
	if got.Severity != "high" || !got.HighIntensity {
		t.Fatalf("anxiety = %+v, want high", got)
	}
	if len(got.Types) == 0 || got.Types[0] != "panic_anxiety" {
		t.Fatalf("types = %v", got.Types)
	}

	if a.Anxiety("what if I mess up").Severity != "moderate" {
		t.Fatalf("expected moderate severity")
	}
	if a.Anxiety("all good").Severity != "low" {
		t.Fatalf("expected low severity")
	}
}
