package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// ListenerAgent: focuses on listening and clarifying the user's problem.
type ListenerAgent struct {
	llm domain.LLMClient
}

func NewListenerAgent(llm domain.LLMClient) *ListenerAgent {
	return &ListenerAgent{llm: llm}
}

func (a *ListenerAgent) Name() string {
	return "listener"
}

func (a *ListenerAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	prompt := fmt.Sprintf(
		"You are Mindcare's Listener agent. Your job is to carefully listen, clarify the user's concern, and restate it in a clear, empathetic way.\n"+
			"%s\n\nUser: %s",
		toneFor(in.ConvCtx.Urgency),
		in.UserMessage,
	)

	reply, err := a.llm.GenerateReply(ctx, prompt, in.ConvCtx)
	if err != nil {
		return AgentOutput{}, err
	}

	return AgentOutput{
		Reply:          reply,
		UpdatedContext: in.ConvCtx,
	}, nil
}

// toneFor adjusts every agent to the triage outcome of the turn.
func toneFor(u domain.UrgencyLevel) string {
	switch {
	case u >= domain.UrgencyHigh:
		return "The user is in acute distress. Keep it short, calm and warm, and gently point to crisis support."
	case u == domain.UrgencyMedium:
		return "The user is struggling. Validate first and slow the pace down."
	default:
		return "Keep a warm, curious tone."
	}
}
