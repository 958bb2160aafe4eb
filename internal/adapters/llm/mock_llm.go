package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// MockLLM answers without calling any model. Used in local mode and tests.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(ctx context.Context, prompt string, convCtx domain.ConversationContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if convCtx.Urgency >= domain.UrgencyHigh {
		return "I hear how hard this is right now. You don't have to go through it alone; a crisis line can talk with you at any hour.", nil
	}
	return fmt.Sprintf("I hear you. You said %q. Tell me a bit more about how that makes you feel.", lastLine(prompt)), nil
}

// lastLine keeps the echo short when agents chain their prompts.
func lastLine(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}
