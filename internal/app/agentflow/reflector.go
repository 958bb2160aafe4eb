package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/mindcare/internal/app/tools"
	"github.com/PabloGalante/mindcare/internal/domain"
	"github.com/PabloGalante/mindcare/internal/observability"
)

// Activity types logged by the reflector.
const (
	ActivityGuidedReflection = "guided_reflection"
	ActivityActionPlan       = "action_plan"
)

// ReflectorAgent: helps close the interaction with a brief reflection.
type ReflectorAgent struct {
	llm          domain.LLMClient
	activityTool tools.Tool
}

func NewReflectorAgent(llm domain.LLMClient, activityTool tools.Tool) *ReflectorAgent {
	return &ReflectorAgent{
		llm:          llm,
		activityTool: activityTool,
	}
}

func (a *ReflectorAgent) Name() string {
	return "reflector"
}

func (a *ReflectorAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	log := observability.LoggerFromContext(ctx).With("agent", a.Name())
	log.Info("reflector agent running")

	prompt := fmt.Sprintf(
		"You are Mindcare's Reflector agent. The Planner agent proposed an action plan.\n"+
			"Your job is to close the conversation with a short reflective message that helps the user\n"+
			"connect emotionally with the plan, and maybe ask 1 gentle question.\n%s\n\n"+
			"Previous agent output:\n%s",
		toneFor(in.ConvCtx.Urgency),
		in.UserMessage,
	)

	reply, err := a.llm.GenerateReply(ctx, prompt, in.ConvCtx)
	if err != nil {
		log.Error("reflector agent error", "error", err)
		return AgentOutput{}, err
	}

	if a.activityTool != nil && in.SessionHash != "" {
		tctx := tools.ToolContext{
			SessionHash: in.SessionHash,
			RequestID:   observability.RequestID(ctx),
		}

		activity := ActivityGuidedReflection
		if in.ConvCtx.Mode == domain.ModeActionPlan {
			activity = ActivityActionPlan
		}

		// Best effort, like the rest of the turn's side effects.
		if _, err := a.activityTool.Call(ctx, tctx, map[string]any{"activity_type": activity}); err != nil {
			log.Warn("activity tool failed", "tool", a.activityTool.Name(), "error", err)
		}
	}

	log.Info("reflector agent success")
	return AgentOutput{
		Reply:          reply,
		UpdatedContext: in.ConvCtx,
	}, nil
}
