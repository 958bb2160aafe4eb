package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PabloGalante/mindcare/internal/adapters/storage/memory"
	"github.com/PabloGalante/mindcare/internal/domain"
)

func TestRecordStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := memory.NewRecordStore()
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	content := "mc:v1:x"

	_ = s.Store(ctx, &domain.ConversationRecord{ID: "old", SessionHash: "h", Category: domain.CategoryCrisisLogs, Timestamp: now.AddDate(-2, 0, 0), EncryptedContent: &content})
	_ = s.Store(ctx, &domain.ConversationRecord{ID: "mid", SessionHash: "h", Category: domain.CategoryCrisisLogs, Timestamp: now.AddDate(0, -2, 0), EncryptedContent: &content})
	_ = s.Store(ctx, &domain.ConversationRecord{ID: "new", SessionHash: "h", Category: domain.CategoryCrisisLogs, Timestamp: now, EncryptedContent: &content})

	res, err := s.Sweep(ctx, domain.DefaultRetentionPolicies(), now)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted[domain.CategoryCrisisLogs] != 1 || res.Anonymized[domain.CategoryCrisisLogs] != 1 {
		t.Fatalf("sweep = %+v", res)
	}
	again, _ := s.Sweep(ctx, domain.DefaultRetentionPolicies(), now)
	if a, d := again.Total(); a+d != 0 {
		t.Fatalf("second sweep not idempotent: %+v", again)
	}

	recs, _ := s.Records(ctx, domain.RecordFilter{})
	if len(recs) != 2 || recs[0].ID != "mid" || recs[0].HasContent() || !recs[1].HasContent() {
		t.Fatalf("records = %+v", recs)
	}
}

func TestRecordStoreSweepsActivities(t *testing.T) {
	ctx := context.Background()
	s := memory.NewRecordStore()
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

	_ = s.StoreActivity(ctx, &domain.WellnessActivity{ID: "old", SessionHash: "h", ActivityType: "breathing", Timestamp: now.AddDate(0, 0, -400)})
	_ = s.StoreActivity(ctx, &domain.WellnessActivity{ID: "recent", SessionHash: "h", ActivityType: "walk", Timestamp: now.AddDate(0, 0, -3)})

	res, err := s.Sweep(ctx, domain.DefaultRetentionPolicies(), now)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted[domain.CategoryWellnessActivities] != 1 {
		t.Fatalf("sweep = %+v", res)
	}
	exp, _ := s.ExportSession(ctx, "h")
	if len(exp.Activities) != 1 || exp.Activities[0].ID != "recent" {
		t.Fatalf("activities = %+v", exp.Activities)
	}
}

func TestRecordStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewRecordStore()
	content := "mc:v1:x"
	rec := &domain.ConversationRecord{ID: "r", SessionHash: "h", EncryptedContent: &content}
	_ = s.Store(ctx, rec)

	content = "mutated"
	recs, _ := s.Records(ctx, domain.RecordFilter{})
	if *recs[0].EncryptedContent != "mc:v1:x" {
		t.Fatalf("store shares memory with caller")
	}

	if err := s.Store(ctx, &domain.ConversationRecord{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("record without id: err = %v", err)
	}
}

func TestSessionStoreNotFound(t *testing.T) {
	s := memory.NewSessionStore()
	if _, err := s.GetSession("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	sess := &domain.Session{ID: "s1", UserID: "u1"}
	if err := s.CreateSession(sess); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSession(sess); err == nil {
		t.Fatalf("duplicate session accepted")
	}
	if list, _ := s.ListSessionsByUser("u1", 0); len(list) != 1 {
		t.Fatalf("list = %v", list)
	}
}

func TestMessageStoreLimit(t *testing.T) {
	s := memory.NewMessageStore()
	for i := 0; i < 5; i++ {
		_ = s.AppendMessage(&domain.Message{SessionID: "s", TurnIndex: i})
	}
	msgs, _ := s.GetMessagesBySession("s", 2)
	if len(msgs) != 2 || msgs[0].TurnIndex != 3 || msgs[1].TurnIndex != 4 {
		t.Fatalf("last two messages expected, got %d", len(msgs))
	}
}
