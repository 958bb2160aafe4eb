package privacy

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// CategoryReport is the compliance state of one category.
type CategoryReport struct {
	Records            int  `json:"records"`
	Encrypted          int  `json:"encrypted"`
	OverdueDeletion    int  `json:"overdue_deletion"`
	OverdueAnonymizing int  `json:"overdue_anonymization"`
	RetentionDays      int  `json:"retention_days"`
	AnonymizeAfterDays int  `json:"anonymize_after_days"`
	EncryptionRequired bool `json:"encryption_required"`
}

// Report is the privacy compliance report over the whole store.
type Report struct {
	GeneratedAt       time.Time                              `json:"generated_at"`
	TotalRecords      int                                    `json:"total_conversations"`
	EncryptedRecords  int                                    `json:"encrypted_records"`
	EncryptionRate    float64                                `json:"encryption_rate"`
	RecordsNeedingFix int                                    `json:"old_records_needing_cleanup"`
	Categories        map[domain.DataCategory]CategoryReport `json:"categories"`
	Compliant         bool                                   `json:"privacy_compliant"`
}

// Report counts records that a sweep would still have to touch. The store
// is compliant when there are none.
func (s *Service) Report(ctx context.Context) (Report, error) {
	recs, err := s.store.Records(ctx, domain.RecordFilter{})
	if err != nil {
		s.metrics.RecordStorageFailure("report")
		return Report{}, storageErr("privacy report", err)
	}

	now := s.now().UTC()
	r := Report{
		GeneratedAt:  now,
		TotalRecords: len(recs),
		Categories:   make(map[domain.DataCategory]CategoryReport, len(s.policies)),
	}
	for cat, p := range s.policies {
		r.Categories[cat] = CategoryReport{
			RetentionDays:      p.RetentionDays,
			AnonymizeAfterDays: p.AnonymizeAfterDays,
			EncryptionRequired: p.EncryptionRequired,
		}
	}

	for _, rec := range recs {
		cr := r.Categories[rec.Category]
		cr.Records++
		if rec.HasContent() {
			cr.Encrypted++
			r.EncryptedRecords++
		}
		switch CheckCompliance(s.policies, AgeInDays(now, rec.Timestamp), rec.Category).Status {
		case StatusNonCompliant:
			cr.OverdueDeletion++
			r.RecordsNeedingFix++
		case StatusNeedsAnonymization:
			if rec.HasContent() {
				cr.OverdueAnonymizing++
				r.RecordsNeedingFix++
			}
		}
		r.Categories[rec.Category] = cr
	}

	if r.TotalRecords > 0 {
		r.EncryptionRate = float64(r.EncryptedRecords) / float64(r.TotalRecords)
	}
	r.Compliant = r.RecordsNeedingFix == 0
	return r, nil
}

// DailyStat aggregates one UTC day.
type DailyStat struct {
	Date             string  `json:"date"`
	Count            int     `json:"count"`
	AverageSentiment float64 `json:"average_sentiment"`
	AverageStress    float64 `json:"average_stress"`
	HighUrgency      int     `json:"high_urgency"`
}

// Analytics is an anonymous aggregate over all sessions.
type Analytics struct {
	TotalConversations  int            `json:"total_conversations"`
	From                *time.Time     `json:"from,omitempty"`
	To                  *time.Time     `json:"to,omitempty"`
	AverageSentiment    float64        `json:"average_sentiment"`
	AverageStress       float64        `json:"average_stress"`
	HighUrgencyRate     float64        `json:"high_urgency_rate"`
	UrgencyDistribution map[string]int `json:"urgency_distribution"`
	Daily               []DailyStat    `json:"daily_trends"`
}

// Analytics aggregates the turn records of the last days days.
func (s *Service) Analytics(ctx context.Context, days int) (Analytics, error) {
	if days <= 0 {
		return Analytics{}, fmt.Errorf("days must be positive, got %d: %w", days, domain.ErrInvalidInput)
	}
	recs, err := s.store.Records(ctx, domain.RecordFilter{Since: s.now().UTC().AddDate(0, 0, -days)})
	if err != nil {
		s.metrics.RecordStorageFailure("analytics")
		return Analytics{}, storageErr("analytics", err)
	}
	recs = turnRecords(recs)
	sortByTime(recs)

	a := Analytics{
		TotalConversations:  len(recs),
		UrgencyDistribution: urgencyDistribution(recs),
		Daily:               []DailyStat{},
	}
	if len(recs) == 0 {
		return a, nil
	}
	a.From, a.To = &recs[0].Timestamp, &recs[len(recs)-1].Timestamp

	var high int
	byDay := make(map[string]*DailyStat)
	for _, rec := range recs {
		a.AverageSentiment += rec.SentimentScore
		a.AverageStress += rec.StressLevel

		day := rec.Timestamp.UTC().Format(time.DateOnly)
		d, ok := byDay[day]
		if !ok {
			d = &DailyStat{Date: day}
			byDay[day] = d
		}
		d.Count++
		d.AverageSentiment += rec.SentimentScore
		d.AverageStress += rec.StressLevel
		if rec.UrgencyLevel >= domain.UrgencyHigh {
			d.HighUrgency++
			high++
		}
	}
	n := float64(len(recs))
	a.AverageSentiment /= n
	a.AverageStress /= n
	a.HighUrgencyRate = float64(high) / n

	for _, d := range byDay {
		d.AverageSentiment /= float64(d.Count)
		d.AverageStress /= float64(d.Count)
		a.Daily = append(a.Daily, *d)
	}
	sort.Slice(a.Daily, func(i, j int) bool { return a.Daily[i].Date < a.Daily[j].Date })
	return a, nil
}

// Improvement compares the first and second half of a session's records.
type Improvement struct {
	Status             string `json:"status,omitempty"`
	SentimentImproving bool   `json:"sentiment_improving"`
	StressReducing     bool   `json:"stress_reducing"`
	OverallTrend       string `json:"overall_trend,omitempty"`
}

// Trends describes how one session evolved.
type Trends struct {
	DataPoints          int            `json:"data_points"`
	From                time.Time      `json:"from"`
	To                  time.Time      `json:"to"`
	AverageSentiment    float64        `json:"avg_sentiment"`
	AverageStress       float64        `json:"avg_stress"`
	SentimentTrend      float64        `json:"sentiment_trend"`
	StressTrend         float64        `json:"stress_trend"`
	UrgencyDistribution map[string]int `json:"urgency_distribution"`
	Improvement         Improvement    `json:"improvement_indicators"`
}

// trendWindow is how many of the latest records the trend values average.
const trendWindow = 3

// Trends summarizes the turn records of the last days days of one session.
func (s *Service) Trends(ctx context.Context, sessionHash string, days int) (Trends, error) {
	if sessionHash == "" || days <= 0 {
		return Trends{}, fmt.Errorf("trends need a session hash and positive days: %w", domain.ErrInvalidInput)
	}
	recs, err := s.store.Records(ctx, domain.RecordFilter{
		SessionHash: sessionHash,
		Since:       s.now().UTC().AddDate(0, 0, -days),
	})
	if err != nil {
		s.metrics.RecordStorageFailure("trends")
		return Trends{}, storageErr("trends", err)
	}
	recs = turnRecords(recs)
	if len(recs) == 0 {
		return Trends{}, fmt.Errorf("no data for session %s: %w", sessionHash, domain.ErrNotFound)
	}
	sortByTime(recs)

	sentiment := make([]float64, len(recs))
	stress := make([]float64, len(recs))
	for i, rec := range recs {
		sentiment[i] = rec.SentimentScore
		stress[i] = rec.StressLevel
	}

	return Trends{
		DataPoints:          len(recs),
		From:                recs[0].Timestamp,
		To:                  recs[len(recs)-1].Timestamp,
		AverageSentiment:    mean(sentiment),
		AverageStress:       mean(stress),
		SentimentTrend:      mean(tail(sentiment, trendWindow)),
		StressTrend:         mean(tail(stress, trendWindow)),
		UrgencyDistribution: urgencyDistribution(recs),
		Improvement:         improvement(sentiment, stress),
	}, nil
}

func improvement(sentiment, stress []float64) Improvement {
	if len(sentiment) < 5 {
		return Improvement{Status: "insufficient_data"}
	}
	mid := len(sentiment) / 2
	imp := Improvement{
		SentimentImproving: mean(sentiment[mid:]) > mean(sentiment[:mid]),
		StressReducing:     mean(stress[mid:]) < mean(stress[:mid]),
		OverallTrend:       "stable",
	}
	if imp.SentimentImproving || imp.StressReducing {
		imp.OverallTrend = "positive"
	}
	return imp
}

// turnCategories are written once per message turn with sentiment in -1..1
// and stress in 0..10. Stress report records use the aggregator's own score
// and stay out of the aggregates.
var turnCategories = []domain.DataCategory{
	domain.CategoryConversationContent,
	domain.CategorySentimentAnalysis,
	domain.CategoryCrisisLogs,
}

func turnRecords(recs []*domain.ConversationRecord) []*domain.ConversationRecord {
	return slices.DeleteFunc(recs, func(r *domain.ConversationRecord) bool {
		return !slices.Contains(turnCategories, r.Category)
	})
}

func urgencyDistribution(recs []*domain.ConversationRecord) map[string]int {
	out := make(map[string]int)
	for _, rec := range recs {
		out[rec.UrgencyLevel.String()]++
	}
	return out
}

func sortByTime(recs []*domain.ConversationRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
