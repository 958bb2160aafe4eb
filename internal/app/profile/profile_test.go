package profile_test

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/PabloGalante/mindcare/internal/app/profile"
	"github.com/PabloGalante/mindcare/internal/domain"
)

func TestApplyClampsStress(t *testing.T) {
	p := profile.New("s1")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, compound := range []float64{-1, -5, math.Inf(-1), -1, -1, -1, -1, -1, -1, -1} {
		p.Apply(compound, nil, now)
		if p.StressLevel < 0 || p.StressLevel > 10 {
			t.Fatalf("stress %v outside [0,10]", p.StressLevel)
		}
	}
	for _, compound := range []float64{1, 5, math.Inf(1), math.NaN()} {
		p.Apply(compound, nil, now)
		if p.StressLevel < 0 || p.StressLevel > 10 || math.IsNaN(p.StressLevel) {
			t.Fatalf("stress %v outside [0,10]", p.StressLevel)
		}
	}
}

func TestApplySmoothing(t *testing.T) {
	p := profile.New("s1")

	d := p.Apply(-1, nil, time.Now())
	if d.InstantStress != 10 {
		t.Fatalf("instant stress = %v, want 10", d.InstantStress)
	}
	if math.Abs(p.StressLevel-3) > 1e-9 {
		t.Fatalf("stress = %v, want 3", p.StressLevel)
	}

	d = p.Apply(1, nil, time.Now())
	if math.Abs(d.StressLevel-2.1) > 1e-9 {
		t.Fatalf("stress = %v, want 2.1", d.StressLevel)
	}
	if math.Abs(d.PreviousStress-3) > 1e-9 {
		t.Fatalf("previous stress = %v", d.PreviousStress)
	}
	// One step can move at most 30% of the distance to the instant value.
	if drop := d.PreviousStress - d.StressLevel; drop > 0.3*d.PreviousStress+1e-9 {
		t.Fatalf("dropped %v in one turn", drop)
	}
	if p.TurnCount != 2 {
		t.Fatalf("turn count = %d, want 2", p.TurnCount)
	}
}

func TestRecentIndicatorsFIFO(t *testing.T) {
	p := profile.New("s1")

	for i := 0; i < 7; i++ {
		p.Apply(0, []string{fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i)}, time.Now())
		if len(p.RecentIndicators) > profile.IndicatorCapacity {
			t.Fatalf("indicators exceed capacity: %d", len(p.RecentIndicators))
		}
	}

	if len(p.RecentIndicators) != 10 {
		t.Fatalf("len = %d, want 10", len(p.RecentIndicators))
	}
	if p.RecentIndicators[0] != "a2" || p.RecentIndicators[9] != "b6" {
		t.Fatalf("oldest entries not evicted first: %v", p.RecentIndicators)
	}
}

func TestBurnoutRisk(t *testing.T) {
	cases := []struct {
		stress float64
		n      int
		want   domain.BurnoutRisk
	}{
		{8, 6, domain.BurnoutRiskHigh},
		{8, 5, domain.BurnoutRiskMedium},
		{6, 4, domain.BurnoutRiskMedium},
		{5, 10, domain.BurnoutRiskLow},
		{9, 3, domain.BurnoutRiskLow},
	}
	for _, tc := range cases {
		if got := profile.BurnoutRisk(tc.stress, tc.n); got != tc.want {
			t.Errorf("BurnoutRisk(%v, %d) = %s, want %s", tc.stress, tc.n, got, tc.want)
		}
	}
}

func TestRegistrySerializesSameSession(t *testing.T) {
	r := profile.NewRegistry()

	const workers, turns = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				r.Apply("shared", -0.5, []string{"work_stress"})
				r.Apply(domain.SessionID(fmt.Sprintf("own-%d", w)), 0.5, nil)
			}
		}(w)
	}
	wg.Wait()

	shared, ok := r.Get("shared")
	if !ok {
		t.Fatalf("shared profile missing")
	}
	if shared.TurnCount != workers*turns {
		t.Fatalf("turn count = %d, want %d (lost updates)", shared.TurnCount, workers*turns)
	}
	if len(shared.RecentIndicators) != profile.IndicatorCapacity {
		t.Fatalf("indicators = %d", len(shared.RecentIndicators))
	}
	if r.Len() != workers+1 {
		t.Fatalf("registry len = %d, want %d", r.Len(), workers+1)
	}
}

func TestRegistryReturnsCopies(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	r := profile.NewRegistry().WithClock(func() time.Time { return fixed })

	_, p := r.Apply("s", 0, []string{"x"})
	p.RecentIndicators[0] = "mutated"

	got, _ := r.Get("s")
	if got.RecentIndicators[0] != "x" {
		t.Fatalf("registry state leaked through returned copy")
	}
	if !got.LastUpdated.Equal(fixed) {
		t.Fatalf("last updated = %v, want %v", got.LastUpdated, fixed)
	}

	r.Forget("s")
	if _, ok := r.Get("s"); ok {
		t.Fatalf("profile still present after Forget")
	}
}

func TestRegistryEvictsIdleProfiles(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	r := profile.NewRegistry().WithClock(func() time.Time { return now })

	r.Apply("idle", 0, nil)
	now = now.Add(2 * time.Hour)
	r.Apply("active", 0, nil)
	now = now.Add(30 * time.Minute)

	if n := r.EvictIdle(time.Hour); n != 1 {
		t.Fatalf("evicted %d profiles, want 1", n)
	}
	if _, ok := r.Get("idle"); ok {
		t.Fatalf("idle profile survived eviction")
	}
	if _, ok := r.Get("active"); !ok {
		t.Fatalf("active profile evicted")
	}
}
