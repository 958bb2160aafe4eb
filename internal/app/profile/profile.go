// Package profile keeps the rolling per-session risk profile.
package profile

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/PabloGalante/mindcare/internal/domain"
)

const (
	// IndicatorCapacity bounds RecentIndicators; oldest entries go first.
	IndicatorCapacity = 10
	// Smoothing is the weight kept from the previous stress level each turn.
	Smoothing = 0.7
	MaxStress = 10.0
)

// Profile is the rolling risk state of one session.
type Profile struct {
	SessionID        domain.SessionID   `json:"session_id"`
	StressLevel      float64            `json:"stress_level"`
	RecentIndicators []string           `json:"recent_indicators"`
	BurnoutRisk      domain.BurnoutRisk `json:"burnout_risk"`
	TurnCount        int                `json:"turn_count"`
	LastUpdated      time.Time          `json:"last_updated"`
}

// New returns the profile of a session that has not spoken yet.
func New(id domain.SessionID) Profile {
	return Profile{
		SessionID:        id,
		RecentIndicators: []string{},
		BurnoutRisk:      domain.BurnoutRiskLow,
	}
}

// Delta describes what one turn changed.
type Delta struct {
	PreviousStress  float64            `json:"previous_stress"`
	InstantStress   float64            `json:"instant_stress"`
	StressLevel     float64            `json:"stress_level"`
	AddedIndicators []string           `json:"added_indicators"`
	Evicted         int                `json:"evicted_indicators"`
	PreviousBurnout domain.BurnoutRisk `json:"previous_burnout_risk"`
	BurnoutRisk     domain.BurnoutRisk `json:"burnout_risk"`
	TurnCount       int                `json:"turn_count"`
}

// InstantStress maps a compound sentiment to the 0..10 stress scale.
func InstantStress(compound float64) float64 {
	return clamp(5-5*compound, 0, MaxStress)
}

// Apply folds one analysed turn into the profile. Stress moves only by
// exponential smoothing, so one message can shift it by at most 30% of the gap.
func (p *Profile) Apply(compound float64, indicators []string, now time.Time) Delta {
	d := Delta{
		PreviousStress:  p.StressLevel,
		InstantStress:   InstantStress(compound),
		AddedIndicators: slices.Clone(indicators),
		PreviousBurnout: p.BurnoutRisk,
	}

	p.StressLevel = clamp(Smoothing*p.StressLevel+(1-Smoothing)*d.InstantStress, 0, MaxStress)

	p.RecentIndicators = append(p.RecentIndicators, indicators...)
	if over := len(p.RecentIndicators) - IndicatorCapacity; over > 0 {
		d.Evicted = over
		p.RecentIndicators = slices.Clone(p.RecentIndicators[over:])
	}

	p.BurnoutRisk = BurnoutRisk(p.StressLevel, len(p.RecentIndicators))
	p.TurnCount++
	p.LastUpdated = now

	d.StressLevel = p.StressLevel
	d.BurnoutRisk = p.BurnoutRisk
	d.TurnCount = p.TurnCount
	return d
}

// BurnoutRisk classifies the rolling state.
func BurnoutRisk(stress float64, indicators int) domain.BurnoutRisk {
	switch {
	case stress > 7 && indicators > 5:
		return domain.BurnoutRiskHigh
	case stress > 5 && indicators > 3:
		return domain.BurnoutRiskMedium
	default:
		return domain.BurnoutRiskLow
	}
}

func (p Profile) clone() Profile {
	p.RecentIndicators = slices.Clone(p.RecentIndicators)
	return p
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

type entry struct {
	mu      sync.Mutex
	profile Profile
	// touched is guarded by Registry.mu.
	touched time.Time
}

// Registry owns one profile per session. Updates to the same session are
// serialized; different sessions only share the short map lookup.
type Registry struct {
	mu      sync.Mutex
	entries map[domain.SessionID]*entry
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.SessionID]*entry),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func (r *Registry) entry(id domain.SessionID) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		e = &entry{profile: New(id)}
		r.entries[id] = e
	}
	e.touched = r.now()
	return e
}

// Apply folds one turn into the session's profile and returns the change
// together with a copy of the new state.
func (r *Registry) Apply(id domain.SessionID, compound float64, indicators []string) (Delta, Profile) {
	var d Delta
	p := r.Update(id, func(p *Profile) {
		d = p.Apply(compound, indicators, r.now())
	})
	return d, p
}

// Update runs fn with exclusive access to the session's profile and returns a copy.
func (r *Registry) Update(id domain.SessionID, fn func(*Profile)) Profile {
	e := r.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.profile)
	return e.profile.clone()
}

// Get returns a copy of the session's profile.
func (r *Registry) Get(id domain.SessionID) (Profile, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return Profile{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.clone(), true
}

// Forget drops the session's profile.
func (r *Registry) Forget(id domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// EvictIdle drops profiles not touched for longer than maxIdle and returns
// how many were dropped.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	n := 0
	for id, e := range r.entries {
		if e.touched.Before(cutoff) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
