package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// PlannerAgent: transforms the clarified problem into a concrete action plan.
type PlannerAgent struct {
	llm domain.LLMClient
}

func NewPlannerAgent(llm domain.LLMClient) *PlannerAgent {
	return &PlannerAgent{llm: llm}
}

func (a *PlannerAgent) Name() string {
	return "planner"
}

func (a *PlannerAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	steps := "2-4 steps"
	if in.ConvCtx.Urgency >= domain.UrgencyHigh {
		steps = "1 or 2 very small, grounding steps"
	}
	prompt := fmt.Sprintf(
		"You are Mindcare's Planner agent. The Listener agent has clarified the user's concern.\n"+
			"Now your job is to create a short, concrete action plan with %s that the user can follow.\n"+
			"Be realistic, kind and practical. %s\n\nPrevious agent output:\n%s",
		steps,
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
