package agentflow

import (
	"context"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// Agent is one step of the response flow.
type Agent interface {
	Name() string
	Run(ctx context.Context, in AgentInput) (AgentOutput, error)
}

// AgentInput carries the (sanitized) text and the triage context of the turn.
type AgentInput struct {
	UserMessage string
	ConvCtx     domain.ConversationContext
	SessionHash string
}

type AgentOutput struct {
	Reply          string
	UpdatedContext domain.ConversationContext
}
