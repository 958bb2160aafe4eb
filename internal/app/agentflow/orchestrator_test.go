package agentflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/PabloGalante/mindcare/internal/adapters/storage/memory"
	"github.com/PabloGalante/mindcare/internal/app/agentflow"
	"github.com/PabloGalante/mindcare/internal/app/privacy"
	"github.com/PabloGalante/mindcare/internal/app/tools"
	"github.com/PabloGalante/mindcare/internal/domain"
)

type recordingLLM struct {
	mu      sync.Mutex
	prompts []string
	fail    bool
}

func (l *recordingLLM) GenerateReply(_ context.Context, prompt string, _ domain.ConversationContext) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return "", errors.New("model unavailable")
	}
	l.prompts = append(l.prompts, prompt)
	return "reply " + string(rune('A'+len(l.prompts)-1)), nil
}

func TestOrchestratorChainsAgents(t *testing.T) {
	ctx := context.Background()
	llm := &recordingLLM{}
	store := memory.NewRecordStore()
	tool := tools.NewActivityTool(privacy.NewService(store, nil))

	orch := agentflow.NewDefaultOrchestrator(llm, tool)
	reply, err := orch.Run(ctx, "work is piling up", domain.ConversationContext{
		SessionID: "s1",
		Mode:      domain.ModeActionPlan,
		Urgency:   domain.UrgencyHigh,
	}, "hash1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if reply != "reply C" {
		t.Fatalf("reply = %q, want the reflector's output", reply)
	}
	if len(llm.prompts) != 3 {
		t.Fatalf("expected 3 LLM calls, got %d", len(llm.prompts))
	}
	if !strings.Contains(llm.prompts[0], "work is piling up") {
		t.Fatalf("listener did not see the user message: %q", llm.prompts[0])
	}
	if !strings.Contains(llm.prompts[1], "reply A") || !strings.Contains(llm.prompts[2], "reply B") {
		t.Fatalf("agents were not chained: %q", llm.prompts)
	}
	if !strings.Contains(llm.prompts[0], "acute distress") {
		t.Fatalf("high urgency tone missing: %q", llm.prompts[0])
	}

	exp, err := store.ExportSession(ctx, "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if len(exp.Activities) != 1 || exp.Activities[0].ActivityType != agentflow.ActivityActionPlan {
		t.Fatalf("expected one action_plan activity, got %+v", exp.Activities)
	}
}

func TestOrchestratorPropagatesAgentError(t *testing.T) {
	orch := agentflow.NewDefaultOrchestrator(&recordingLLM{fail: true}, nil)
	if _, err := orch.Run(context.Background(), "hi", domain.ConversationContext{}, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestOrchestratorWithoutAgents(t *testing.T) {
	if _, err := agentflow.NewOrchestrator().Run(context.Background(), "hi", domain.ConversationContext{}, ""); err == nil {
		t.Fatal("expected error for empty flow")
	}
}
