package conversation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PabloGalante/mindcare/internal/adapters/llm"
	"github.com/PabloGalante/mindcare/internal/adapters/storage/memory"
	"github.com/PabloGalante/mindcare/internal/app/conversation"
	"github.com/PabloGalante/mindcare/internal/app/privacy"
	"github.com/PabloGalante/mindcare/internal/app/profile"
	"github.com/PabloGalante/mindcare/internal/domain"
)

type recordingLLM struct {
	mu      sync.Mutex
	prompts []string
	history [][]*domain.Message
	fail    bool
}

func (l *recordingLLM) GenerateReply(_ context.Context, prompt string, convCtx domain.ConversationContext) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return "", errors.New("model unavailable")
	}
	l.prompts = append(l.prompts, prompt)
	l.history = append(l.history, convCtx.History)
	return "I'm here with you.", nil
}

func (l *recordingLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

type failingRecords struct {
	*memory.RecordStore
}

func (failingRecords) Store(context.Context, *domain.ConversationRecord) error {
	return errors.New("disk full")
}

type fixture struct {
	svc     *conversation.Service
	llm     *recordingLLM
	records *memory.RecordStore
	privacy *privacy.Service
}

func newFixture(t *testing.T, records domain.RecordStore, opts ...conversation.Option) fixture {
	t.Helper()

	ring, err := privacy.NewKeyRing(make([]byte, privacy.MasterKeySize))
	if err != nil {
		t.Fatal(err)
	}
	mem, _ := records.(*memory.RecordStore)
	priv := privacy.NewService(records, privacy.NewCipher(ring), privacy.WithCrisisRetry(1, 0))
	rec := &recordingLLM{}

	opts = append([]conversation.Option{conversation.WithPrivacy(priv)}, opts...)
	svc := conversation.NewService(rec, memory.NewSessionStore(), memory.NewMessageStore(), opts...)
	return fixture{svc: svc, llm: rec, records: mem, privacy: priv}
}

func startSession(t *testing.T, svc *conversation.Service) *domain.Session {
	t.Helper()
	out, err := svc.StartSession(context.Background(), conversation.StartSessionInput{
		UserID:        domain.UserID("test-user"),
		PreferredMode: domain.ModeCheckIn,
		Title:         "Test session",
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if out.Session.ID == "" || out.Welcome == nil || out.Welcome.ContentType != conversation.ContentTypeWelcome {
		t.Fatalf("unexpected start output: %+v", out)
	}
	return out.Session
}

func TestStartSessionAndSendMessage(t *testing.T) {
	ctx := context.Background()

	svc := conversation.NewService(llm.NewMockLLM(), memory.NewSessionStore(), memory.NewMessageStore())
	session := startSession(t, svc)

	reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: session.ID,
		UserID:    session.UserID,
		Text:      "I'm a bit tired but okay",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if reply.AgentMessage == nil || reply.AgentMessage.Text == "" {
		t.Fatalf("expected non-empty agent reply")
	}
	if reply.Analysis.Urgency != domain.UrgencyLow {
		t.Fatalf("urgency = %s, want low", reply.Analysis.Urgency)
	}
	if reply.Policy != nil {
		t.Fatalf("low urgency should carry no crisis payload")
	}
	if reply.Persisted {
		t.Fatalf("nothing can be persisted without a privacy layer")
	}
	if reply.UserMessage.TurnIndex != 1 || reply.AgentMessage.TurnIndex != 2 {
		t.Fatalf("turn indexes = %d/%d", reply.UserMessage.TurnIndex, reply.AgentMessage.TurnIndex)
	}
	if *reply.AgentMessage.ReplyTo != reply.UserMessage.ID {
		t.Fatalf("agent message does not reply to the user message")
	}
}

func TestEmergencySkipsLLM(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore())
	session := startSession(t, f.svc)

	out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: session.ID,
		Text:      "I want to kill myself",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if out.Analysis.Urgency != domain.UrgencyEmergency {
		t.Fatalf("urgency = %s, want emergency", out.Analysis.Urgency)
	}
	if f.llm.calls() != 0 {
		t.Fatalf("LLM was called %d times on an emergency turn", f.llm.calls())
	}
	if out.AgentMessage.ContentType != conversation.ContentTypeCrisisResponse {
		t.Fatalf("content type = %q", out.AgentMessage.ContentType)
	}
	if out.Policy == nil || !out.Policy.Has247Line() || !strings.Contains(out.AgentMessage.Text, "988") {
		t.Fatalf("crisis reply lacks the 24/7 line: %q", out.AgentMessage.Text)
	}
	if !out.Persisted {
		t.Fatalf("crisis record not persisted")
	}

	recs, err := f.records.Records(ctx, domain.RecordFilter{SessionHash: out.SessionHash})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Category != domain.CategoryCrisisLogs || !recs[0].HasContent() {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if !privacy.IsEnvelope(*recs[0].EncryptedContent) {
		t.Fatalf("content stored in clear")
	}
}

func TestOnlySanitizedTextReachesLLM(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore())
	session := startSession(t, f.svc)

	for _, text := range []string{
		"You can reach me at jane.doe@example.com",
		"My number is 555-123-4567 and work is a lot lately",
	} {
		if _, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: text}); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}

	if f.llm.calls() == 0 {
		t.Fatal("LLM never called")
	}
	for _, p := range f.llm.prompts {
		if strings.Contains(p, "jane.doe@example.com") || strings.Contains(p, "555-123-4567") {
			t.Fatalf("raw PII reached the LLM: %q", p)
		}
	}
	for _, h := range f.llm.history {
		for _, m := range h {
			if strings.Contains(m.Text, "jane.doe@example.com") {
				t.Fatalf("raw PII in LLM history: %q", m.Text)
			}
		}
	}
	if !strings.Contains(strings.Join(f.llm.prompts, "\n"), "[PHONE]") {
		t.Fatalf("expected masked phone placeholder in prompts")
	}
}

func TestSendMessageRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore(), conversation.WithMaxMessageChars(20))
	session := startSession(t, f.svc)

	cases := []struct {
		name string
		in   conversation.SendMessageInput
		want error
	}{
		{"empty", conversation.SendMessageInput{SessionID: session.ID, Text: "   "}, domain.ErrInvalidInput},
		{"too long", conversation.SendMessageInput{SessionID: session.ID, Text: strings.Repeat("a", 21)}, domain.ErrInvalidInput},
		{"unknown session", conversation.SendMessageInput{SessionID: "nope", Text: "hello"}, domain.ErrNotFound},
		{"other user", conversation.SendMessageInput{SessionID: session.ID, UserID: "mallory", Text: "hello"}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		if _, err := f.svc.SendMessage(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
	if f.llm.calls() != 0 {
		t.Fatalf("rejected input reached the LLM")
	}
}

func TestStorageFailureStillAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingRecords{memory.NewRecordStore()})
	session := startSession(t, f.svc)

	for _, text := range []string{"I'm a bit tired but okay", "I want to kill myself"} {
		out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: text})
		if err != nil {
			t.Fatalf("%q: storage failure surfaced as error: %v", text, err)
		}
		if out.Persisted {
			t.Fatalf("%q: Persisted should be false", text)
		}
		if out.AgentMessage.Text == "" {
			t.Fatalf("%q: empty reply", text)
		}
	}
}

func TestLLMFailureFallsBackOnlyForDistress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore())
	f.llm.fail = true
	session := startSession(t, f.svc)

	if _, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: "I'm a bit tired but okay"}); err == nil {
		t.Fatal("expected LLM error on a low urgency turn")
	}

	out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: session.ID,
		Text:      "I'm having a panic attack and I can't breathe",
	})
	if err != nil {
		t.Fatalf("distress turn failed: %v", err)
	}
	if out.Analysis.Urgency < domain.UrgencyMedium || out.AgentMessage.ContentType != conversation.ContentTypeCrisisResponse {
		t.Fatalf("expected crisis payload fallback, got %s / %q", out.Analysis.Urgency, out.AgentMessage.ContentType)
	}
}

func TestProfileAccumulatesAcrossTurns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore())
	session := startSession(t, f.svc)

	var last *conversation.SendMessageOutput
	for i := 0; i < 3; i++ {
		out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{
			SessionID: session.ID,
			Text:      "I'm so stressed about work deadlines and I can't sleep",
		})
		if err != nil {
			t.Fatal(err)
		}
		last = out
	}

	p, ok := f.svc.Profile(session.ID)
	if !ok || p.TurnCount != 3 || last.Profile.TurnCount != 3 {
		t.Fatalf("profile not updated per turn: %+v", p)
	}
	if p.StressLevel <= 0 || p.StressLevel > 10 {
		t.Fatalf("stress level out of range: %v", p.StressLevel)
	}
	if len(p.RecentIndicators) > 10 {
		t.Fatalf("indicator cap exceeded: %d", len(p.RecentIndicators))
	}

	recs, _ := f.records.Records(ctx, domain.RecordFilter{SessionHash: last.SessionHash})
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
}

func TestStressReportPersistsUnderSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore())
	session := startSession(t, f.svc)

	anon, err := f.svc.StressReport(ctx, conversation.StressReportInput{Text: "deadlines everywhere, I can't sleep"})
	if err != nil {
		t.Fatal(err)
	}
	if anon.Persisted || anon.SessionHash != "" {
		t.Fatalf("report without session must not be stored")
	}

	out, err := f.svc.StressReport(ctx, conversation.StressReportInput{
		Text:      "deadlines everywhere, I can't sleep",
		SessionID: session.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Persisted {
		t.Fatal("report not persisted")
	}
	recs, _ := f.records.Records(ctx, domain.RecordFilter{Category: domain.CategoryStressIndicators})
	if len(recs) != 1 || recs[0].SessionHash != out.SessionHash || recs[0].HasContent() {
		t.Fatalf("unexpected stress records: %+v", recs)
	}

	if _, err := f.svc.StressReport(ctx, conversation.StressReportInput{Text: "x", SessionID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore())
	session := startSession(t, f.svc)

	rating := 8
	act, err := f.svc.RecordActivity(ctx, session.ID, "breathing_exercise", &rating)
	if err != nil {
		t.Fatal(err)
	}
	if act.SessionHash != f.svc.SessionHash(session.ID) {
		t.Fatalf("activity filed under the wrong hash")
	}

	bad := 0
	if _, err := f.svc.RecordActivity(ctx, session.ID, "walk", &bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	bare := conversation.NewService(llm.NewMockLLM(), memory.NewSessionStore(), memory.NewMessageStore())
	if _, err := bare.RecordActivity(ctx, session.ID, "walk", nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestTurnNumberingSurvivesProfileEviction(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	registry := profile.NewRegistry().WithClock(func() time.Time { return now })
	f := newFixture(t, memory.NewRecordStore(), conversation.WithProfiles(registry))
	session := startSession(t, f.svc)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: "long day"}); err != nil {
			t.Fatal(err)
		}
	}

	now = now.Add(3 * time.Hour)
	if n := f.svc.EvictIdleProfiles(time.Hour); n != 1 {
		t.Fatalf("evicted %d profiles, want 1", n)
	}
	if _, ok := f.svc.Profile(session.ID); ok {
		t.Fatal("idle profile still registered")
	}

	out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: "back again"})
	if err != nil {
		t.Fatal(err)
	}
	if out.UserMessage.TurnIndex != 5 || out.AgentMessage.TurnIndex != 6 || out.Profile.TurnCount != 3 {
		t.Fatalf("turn numbering restarted: user %d agent %d count %d",
			out.UserMessage.TurnIndex, out.AgentMessage.TurnIndex, out.Profile.TurnCount)
	}
}

func TestFollowUpAfterCrisisTurn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore())
	session := startSession(t, f.svc)

	crisisTurn, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: "I want to kill myself"})
	if err != nil {
		t.Fatal(err)
	}
	if crisisTurn.FollowUp != nil || crisisTurn.Policy == nil || crisisTurn.Policy.SafetyPlan == nil {
		t.Fatalf("crisis turn: follow-up %v, policy %+v", crisisTurn.FollowUp, crisisTurn.Policy)
	}

	calmer, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: "thank you, that helps"})
	if err != nil {
		t.Fatal(err)
	}
	if calmer.Analysis.Urgency.IsCrisis() {
		t.Fatalf("second turn still at %s", calmer.Analysis.Urgency)
	}
	if calmer.FollowUp == nil || len(calmer.FollowUp.SelfCare) == 0 {
		t.Fatal("no after-crisis guidance on the first calmer turn")
	}

	next, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: "thank you, that helps"})
	if err != nil {
		t.Fatal(err)
	}
	if next.FollowUp != nil {
		t.Fatal("follow-up repeated on a later turn")
	}
}

func TestSendMessageGradesPrivacyRisk(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewRecordStore())
	session := startSession(t, f.svc)

	cases := map[string]string{
		"call me on 555-123-4567":    "high",
		"mail me at jane@example.io": "medium",
		"just a long week":           "low",
	}
	for text, want := range cases {
		out, err := f.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: session.ID, Text: text})
		if err != nil {
			t.Fatal(err)
		}
		if out.PrivacyRisk != want {
			t.Errorf("PrivacyRisk(%q) = %q, want %q", text, out.PrivacyRisk, want)
		}
	}
}
