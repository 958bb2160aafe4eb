package agentflow

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloGalante/mindcare/internal/app/tools"
	"github.com/PabloGalante/mindcare/internal/domain"
	"github.com/PabloGalante/mindcare/internal/observability"
)

// Orchestrator is responsible for running multiple agents in sequence.
type Orchestrator struct {
	agents []Agent
}

// NewDefaultOrchestrator constructs a flow with Listener -> Planner -> Reflector.
// activityTool may be nil.
func NewDefaultOrchestrator(llm domain.LLMClient, activityTool tools.Tool) *Orchestrator {
	return NewOrchestrator(
		NewListenerAgent(llm),
		NewPlannerAgent(llm),
		NewReflectorAgent(llm, activityTool),
	)
}

func NewOrchestrator(agents ...Agent) *Orchestrator {
	return &Orchestrator{agents: agents}
}

// Run executes the chain of agents sequentially. userMessage must already be sanitized.
func (o *Orchestrator) Run(
	ctx context.Context,
	userMessage string,
	convCtx domain.ConversationContext,
	sessionHash string,
) (string, error) {
	if len(o.agents) == 0 {
		return "", fmt.Errorf("no agents configured in orchestrator")
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", convCtx.SessionID,
		"urgency", convCtx.Urgency.String(),
	)
	log.Info("orchestrator started", "agents_count", len(o.agents))

	in := AgentInput{
		UserMessage: userMessage,
		ConvCtx:     convCtx,
		SessionHash: sessionHash,
	}

	var (
		out AgentOutput
		err error
	)

	for _, ag := range o.agents {
		start := time.Now()
		log.Info("agent run start", "agent", ag.Name())

		out, err = ag.Run(ctx, in)
		if err != nil {
			log.Error("agent failed",
				"agent", ag.Name(),
				"error", err)
			return "", fmt.Errorf("agent %s failed: %w", ag.Name(), err)
		}

		elapsed := time.Since(start)
		log.Info("agent run end", "agent", ag.Name(), "elapsed_ms", elapsed.Milliseconds())

		// The output of an agent is the input for the next agent
		in.UserMessage = out.Reply
		in.ConvCtx = out.UpdatedContext
	}

	// Return the last generated response
	log.Info("orchestrator end")
	return out.Reply, nil
}
