package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloGalante/mindcare/internal/adapters/llm"
	"github.com/PabloGalante/mindcare/internal/domain"
)

func TestBuildSystemPromptFollowsUrgency(t *testing.T) {
	low := llm.BuildSystemPrompt(domain.ConversationContext{Mode: domain.ModeCheckIn, Urgency: domain.UrgencyLow})
	high := llm.BuildSystemPrompt(domain.ConversationContext{
		Mode:    domain.ModeDeepDive,
		Urgency: domain.UrgencyHigh,
		Signals: []string{"work_stress", "sleep_issues"},
	})

	if strings.Contains(low, "Triage:") {
		t.Fatalf("low urgency should add no triage block")
	}
	if !strings.Contains(low, "Mode: check_in") {
		t.Fatalf("check_in instructions missing")
	}
	if !strings.Contains(high, "acute distress") || !strings.Contains(high, "Mode: deep_dive") {
		t.Fatalf("high urgency prompt incomplete:\n%s", high)
	}
	if !strings.Contains(high, "work_stress, sleep_issues") {
		t.Fatalf("signals missing from prompt")
	}
}

func TestBuildPromptIncludesHistory(t *testing.T) {
	p := llm.BuildPrompt("and now I can't sleep", domain.ConversationContext{
		History: []*domain.Message{
			{Author: domain.RoleUser, Text: "work is a lot"},
			{Author: domain.RoleAgent, Text: "tell me more"},
		},
	})
	want := "Conversation so far:\nuser: work is a lot\nassistant: tell me more\n\nNew user message:\nand now I can't sleep"
	if p.User != want {
		t.Fatalf("user content = %q", p.User)
	}
}

func TestMockLLM(t *testing.T) {
	m := llm.NewMockLLM()

	reply, err := m.GenerateReply(context.Background(), "prompt\nUser: hello", domain.ConversationContext{})
	if err != nil || !strings.Contains(reply, `"User: hello"`) {
		t.Fatalf("reply = %q, err = %v", reply, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.GenerateReply(ctx, "x", domain.ConversationContext{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewVertexClientNeedsProject(t *testing.T) {
	if _, err := llm.NewVertexClient(context.Background(), "", "us-central1", ""); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}
