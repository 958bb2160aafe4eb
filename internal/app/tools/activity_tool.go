package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// ActivityRecorder persists wellness activities under a session hash.
type ActivityRecorder interface {
	StoreActivity(ctx context.Context, sessionHash, activityType string, rating *int) (*domain.WellnessActivity, error)
}

// ActivityTool lets agents log the wellness exercises they suggest.
type ActivityTool struct {
	recorder ActivityRecorder
}

func NewActivityTool(recorder ActivityRecorder) *ActivityTool {
	return &ActivityTool{recorder: recorder}
}

func (t *ActivityTool) Name() string {
	return "wellness_activity"
}

// Call expects an input with this shape:
//
//	{
//	  "activity_type": "breathing_exercise",
//	  "effectiveness_rating": 7
//	}
//
// The rating is optional. SessionHash comes in ToolContext.
func (t *ActivityTool) Call(
	ctx context.Context,
	tctx ToolContext,
	input map[string]any,
) (map[string]any, error) {

	if tctx.SessionHash == "" {
		return nil, fmt.Errorf("wellness_activity: missing SessionHash in ToolContext: %w", domain.ErrInvalidInput)
	}

	activityType := getString(input, "activity_type")
	rating, err := getRating(input, "effectiveness_rating")
	if err != nil {
		return nil, err
	}

	act, err := t.recorder.StoreActivity(ctx, tctx.SessionHash, activityType, rating)
	if err != nil {
		return nil, fmt.Errorf("wellness_activity: %w", err)
	}

	return map[string]any{
		"status":        "ok",
		"activity_id":   act.ID,
		"activity_type": act.ActivityType,
		"session_hash":  act.SessionHash,
		"created_at":    act.Timestamp,
	}, nil
}

// --- internal helpers --- //

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// getRating accepts ints and whole floats, since JSON numbers decode as float64.
func getRating(m map[string]any, key string) (*int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("wellness_activity: %s must be a whole number: %w", key, domain.ErrInvalidInput)
		}
		n = int(x)
	default:
		return nil, fmt.Errorf("wellness_activity: %s must be a number: %w", key, domain.ErrInvalidInput)
	}
	return &n, nil
}
