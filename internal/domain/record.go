package domain

import (
	"fmt"
	"sort"
	"time"
)

// DataCategory names a class of persisted data governed by one retention policy.
type DataCategory string

const (
	CategoryConversationContent DataCategory = "conversation_content"
	CategorySentimentAnalysis   DataCategory = "sentiment_analysis"
	CategoryStressIndicators    DataCategory = "stress_indicators"
	CategoryWellnessActivities  DataCategory = "wellness_activities"
	CategoryCrisisLogs          DataCategory = "crisis_logs"
)

// RetentionPolicy governs how long records of one category live and when their
// sensitive payload is stripped.
type RetentionPolicy struct {
	Category           DataCategory `json:"category" yaml:"category"`
	RetentionDays      int          `json:"retention_days" yaml:"retention_days"`
	AnonymizeAfterDays int          `json:"anonymize_after_days" yaml:"anonymize_after_days"`
	EncryptionRequired bool         `json:"encryption_required" yaml:"encryption_required"`
	Description        string       `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate rejects negative ages and an anonymization age beyond retention.
func (p RetentionPolicy) Validate() error {
	if p.Category == "" {
		return fmt.Errorf("retention policy without category: %w", ErrConfiguration)
	}
	if p.RetentionDays < 0 || p.AnonymizeAfterDays < 0 {
		return fmt.Errorf("retention policy %s: negative days: %w", p.Category, ErrConfiguration)
	}
	if p.AnonymizeAfterDays > p.RetentionDays {
		return fmt.Errorf("retention policy %s: anonymize_after_days (%d) exceeds retention_days (%d): %w",
			p.Category, p.AnonymizeAfterDays, p.RetentionDays, ErrConfiguration)
	}
	return nil
}

// RetentionCutoff returns the instant at or before which records of this category are deleted.
func (p RetentionPolicy) RetentionCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.RetentionDays)
}

// AnonymizeCutoff returns the instant at or before which content is cleared.
func (p RetentionPolicy) AnonymizeCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.AnonymizeAfterDays)
}

// RetentionPolicies is a validated, read-only set of policies keyed by category.
type RetentionPolicies map[DataCategory]RetentionPolicy

// NewRetentionPolicies validates every policy and rejects duplicates.
func NewRetentionPolicies(policies ...RetentionPolicy) (RetentionPolicies, error) {
	out := make(RetentionPolicies, len(policies))
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[p.Category]; dup {
			return nil, fmt.Errorf("duplicate retention policy for %s: %w", p.Category, ErrConfiguration)
		}
		out[p.Category] = p
	}
	return out, nil
}

// Categories returns the configured categories in a stable order.
func (rp RetentionPolicies) Categories() []DataCategory {
	out := make([]DataCategory, 0, len(rp))
	for c := range rp {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultRetentionPolicies mirrors the privacy notice published to users.
func DefaultRetentionPolicies() RetentionPolicies {
	rp, _ := NewRetentionPolicies(
		RetentionPolicy{Category: CategoryConversationContent, RetentionDays: 7, AnonymizeAfterDays: 1, EncryptionRequired: true, Description: "Raw conversation text"},
		RetentionPolicy{Category: CategorySentimentAnalysis, RetentionDays: 30, AnonymizeAfterDays: 7, Description: "Sentiment scores and emotional indicators"},
		RetentionPolicy{Category: CategoryStressIndicators, RetentionDays: 30, AnonymizeAfterDays: 7, Description: "Detected stress and mental health indicators"},
		RetentionPolicy{Category: CategoryWellnessActivities, RetentionDays: 90, AnonymizeAfterDays: 14, Description: "Wellness recommendations and user interactions"},
		RetentionPolicy{Category: CategoryCrisisLogs, RetentionDays: 365, AnonymizeAfterDays: 30, EncryptionRequired: true, Description: "Emergency situation logs (heavily anonymized)"},
	)
	return rp
}

// ConversationRecord is the persisted, pseudonymized trace of one analysed turn.
// EncryptedContent is an opaque ciphertext envelope or nil; stores never see plaintext.
type ConversationRecord struct {
	ID               string       `json:"id"`
	SessionHash      string       `json:"session_hash"`
	Category         DataCategory `json:"category"`
	Timestamp        time.Time    `json:"timestamp"`
	SentimentScore   float64      `json:"sentiment_score"`
	StressLevel      float64      `json:"stress_level"`
	UrgencyLevel     UrgencyLevel `json:"urgency_level"`
	Emotions         string       `json:"emotions"`
	RiskIndicators   string       `json:"risk_indicators"`
	EncryptedContent *string      `json:"-"`
}

// HasContent reports whether the record still carries its encrypted payload.
func (r *ConversationRecord) HasContent() bool {
	return r.EncryptedContent != nil
}

// WellnessActivity is a pseudonymized record of a wellness exercise a user tried.
type WellnessActivity struct {
	ID                  string    `json:"id"`
	SessionHash         string    `json:"session_hash"`
	ActivityType        string    `json:"activity_type"`
	Timestamp           time.Time `json:"timestamp"`
	EffectivenessRating *int      `json:"effectiveness_rating,omitempty"`
}

// SessionExport is the full read-back of one pseudonymized session.
type SessionExport struct {
	SessionHash string                `json:"session_hash"`
	Records     []*ConversationRecord `json:"records"`
	Activities  []*WellnessActivity   `json:"activities"`
}

// SweepResult counts the effect of one retention sweep.
type SweepResult struct {
	Anonymized map[DataCategory]int `json:"anonymized"`
	Deleted    map[DataCategory]int `json:"deleted"`
}

// NewSweepResult returns a result with initialized maps.
func NewSweepResult() SweepResult {
	return SweepResult{
		Anonymized: make(map[DataCategory]int),
		Deleted:    make(map[DataCategory]int),
	}
}

// Total returns the total anonymized and deleted counts.
func (r SweepResult) Total() (anonymized, deleted int) {
	for _, n := range r.Anonymized {
		anonymized += n
	}
	for _, n := range r.Deleted {
		deleted += n
	}
	return anonymized, deleted
}

// ErasureResult counts what an erasure removed.
type ErasureResult struct {
	Records    int `json:"records"`
	Activities int `json:"activities"`
	Messages   int `json:"messages"`
}

// RecordFilter selects conversation records. Zero fields do not filter.
type RecordFilter struct {
	SessionHash string
	Since       time.Time
	Until       time.Time
	Category    DataCategory
}

// Match reports whether r satisfies the filter.
func (f RecordFilter) Match(r *ConversationRecord) bool {
	if f.SessionHash != "" && r.SessionHash != f.SessionHash {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	return true
}
