package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/PabloGalante/mindcare/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/mindcare/internal/domain"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, _ := openStoreAt(t)
	return s
}

func openStoreAt(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mindcare.db")
	s, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func record(id, hash string, cat domain.DataCategory, ts time.Time, content string) *domain.ConversationRecord {
	r := &domain.ConversationRecord{
		ID:             id,
		SessionHash:    hash,
		Category:       cat,
		Timestamp:      ts,
		SentimentScore: -0.25,
		StressLevel:    6.5,
		UrgencyLevel:   domain.UrgencyMedium,
		Emotions:       `{"anxiety":2}`,
		RiskIndicators: `[]`,
	}
	if content != "" {
		r.EncryptedContent = &content
	}
	return r
}

func TestStoreAndReadBack(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)

	if err := s.Store(ctx, record("r1", "h1", domain.CategoryConversationContent, ts, "mc:v1:abc")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	// Retried writes replace rather than duplicate.
	if err := s.Store(ctx, record("r1", "h1", domain.CategoryConversationContent, ts, "mc:v1:abc")); err != nil {
		t.Fatalf("Store again: %v", err)
	}

	recs, err := s.Records(ctx, domain.RecordFilter{SessionHash: "h1"})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len = %d, want 1", len(recs))
	}
	r := recs[0]
	if !r.Timestamp.Equal(ts) || r.UrgencyLevel != domain.UrgencyMedium || r.StressLevel != 6.5 {
		t.Fatalf("round trip mismatch: %+v", r)
	}
	if !r.HasContent() || *r.EncryptedContent != "mc:v1:abc" {
		t.Fatalf("content lost: %+v", r)
	}
}

func TestRecordsFilterByTime(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if err := s.Store(ctx, record(id, "h", domain.CategorySentimentAnalysis, base.AddDate(0, 0, i), "")); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.Records(ctx, domain.RecordFilter{Since: base.AddDate(0, 0, 1), Until: base.AddDate(0, 0, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 || recs[0].ID != "b" || recs[2].ID != "d" {
		t.Fatalf("unexpected window: %d records", len(recs))
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	policies := domain.DefaultRetentionPolicies()

	fixtures := []*domain.ConversationRecord{
		record("fresh", "h", domain.CategoryConversationContent, now.Add(-time.Hour), "mc:v1:a"),
		record("stale", "h", domain.CategoryConversationContent, now.AddDate(0, 0, -2), "mc:v1:b"),
		record("expired", "h", domain.CategoryConversationContent, now.AddDate(0, 0, -8), "mc:v1:c"),
		record("boundary", "h", domain.CategorySentimentAnalysis, now.AddDate(0, 0, -30), ""),
		record("crisis", "h", domain.CategoryCrisisLogs, now.AddDate(0, 0, -31), "mc:v1:d"),
	}
	for _, r := range fixtures {
		if err := s.Store(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	res, err := s.Sweep(ctx, policies, now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Deleted[domain.CategoryConversationContent] != 1 || res.Deleted[domain.CategorySentimentAnalysis] != 1 {
		t.Fatalf("deleted = %v", res.Deleted)
	}
	if res.Anonymized[domain.CategoryConversationContent] != 1 || res.Anonymized[domain.CategoryCrisisLogs] != 1 {
		t.Fatalf("anonymized = %v", res.Anonymized)
	}

	before, _ := s.Records(ctx, domain.RecordFilter{})
	again, err := s.Sweep(ctx, policies, now)
	if err != nil {
		t.Fatal(err)
	}
	if a, d := again.Total(); a != 0 || d != 0 {
		t.Fatalf("second sweep changed %d/%d rows", a, d)
	}
	after, _ := s.Records(ctx, domain.RecordFilter{})
	if len(before) != len(after) || len(after) != 3 {
		t.Fatalf("records before/after = %d/%d", len(before), len(after))
	}
	for _, r := range after {
		if r.ID == "fresh" && !r.HasContent() {
			t.Fatalf("fresh content cleared")
		}
		if r.ID != "fresh" && r.HasContent() {
			t.Fatalf("record %s still has content", r.ID)
		}
	}
}

func TestZeroRetentionAfterConcurrentStores(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	zero, err := domain.NewRetentionPolicies(domain.RetentionPolicy{Category: domain.CategorySentimentAnalysis})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := []string{"x", "y"}[i]
			if err := s.Store(ctx, record(id, "h", domain.CategorySentimentAnalysis, now.Add(-time.Minute), "")); err != nil {
				t.Errorf("Store: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if _, err := s.Sweep(ctx, zero, now); err != nil {
		t.Fatal(err)
	}
	if recs, _ := s.Records(ctx, domain.RecordFilter{}); len(recs) != 0 {
		t.Fatalf("%d records survived", len(recs))
	}
}

func TestExportAndErase(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

	rating := 4
	_ = s.StoreActivity(ctx, &domain.WellnessActivity{ID: "a1", SessionHash: "h", ActivityType: "breathing", Timestamp: now, EffectivenessRating: &rating})
	_ = s.StoreActivity(ctx, &domain.WellnessActivity{ID: "a2", SessionHash: "other", ActivityType: "walk", Timestamp: now})
	_ = s.Store(ctx, record("r1", "h", domain.CategorySentimentAnalysis, now, ""))
	_ = s.Store(ctx, record("r2", "other", domain.CategorySentimentAnalysis, now, ""))

	exp, err := s.ExportSession(ctx, "h")
	if err != nil {
		t.Fatalf("ExportSession: %v", err)
	}
	if len(exp.Records) != 1 || len(exp.Activities) != 1 || *exp.Activities[0].EffectivenessRating != 4 {
		t.Fatalf("export = %+v", exp)
	}

	res, err := s.EraseSession(ctx, "h")
	if err != nil {
		t.Fatalf("EraseSession: %v", err)
	}
	if res.Records != 1 || res.Activities != 1 {
		t.Fatalf("erased %+v", res)
	}
	exp, _ = s.ExportSession(ctx, "h")
	if len(exp.Records) != 0 || len(exp.Activities) != 0 {
		t.Fatalf("data left after erase: %+v", exp)
	}
	if exp, _ := s.ExportSession(ctx, "other"); len(exp.Records) != 1 || len(exp.Activities) != 1 {
		t.Fatalf("other session touched")
	}
}

func TestSweepDeletesExpiredActivities(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

	_ = s.StoreActivity(ctx, &domain.WellnessActivity{ID: "old", SessionHash: "h", ActivityType: "breathing", Timestamp: now.AddDate(0, 0, -90)})
	_ = s.StoreActivity(ctx, &domain.WellnessActivity{ID: "recent", SessionHash: "h", ActivityType: "walk", Timestamp: now.AddDate(0, 0, -10)})

	res, err := s.Sweep(ctx, domain.DefaultRetentionPolicies(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Deleted[domain.CategoryWellnessActivities] != 1 {
		t.Fatalf("deleted = %v", res.Deleted)
	}
	exp, _ := s.ExportSession(ctx, "h")
	if len(exp.Activities) != 1 || exp.Activities[0].ID != "recent" {
		t.Fatalf("activities after sweep = %+v", exp.Activities)
	}
}

func TestEraseIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, path := openStoreAt(t)
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

	_ = s.Store(ctx, record("r1", "h", domain.CategorySentimentAnalysis, now, ""))
	_ = s.Store(ctx, record("r2", "h", domain.CategoryConversationContent, now, "mc:v1:a"))

	// Break the second statement of the erase transaction from another connection.
	other, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if _, err := other.ExecContext(ctx, `DROP TABLE wellness_activities`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	if _, err := s.EraseSession(ctx, "h"); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	recs, err := s.Records(ctx, domain.RecordFilter{SessionHash: "h"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("failed erase removed records: %d left", len(recs))
	}
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	log := s.AuditLog()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, action := range []string{"crisis_response_provided", "session_erased"} {
		err := log.Record(ctx, domain.AuditEntry{
			Timestamp:   t0.Add(time.Duration(i) * time.Minute),
			Action:      action,
			SessionHash: "h",
			Details:     map[string]string{"n": "1"},
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := log.Entries(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Action != "session_erased" || entries[0].Details["n"] != "1" {
		t.Fatalf("entries = %+v", entries)
	}
}
