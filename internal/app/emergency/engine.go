// Package emergency maps an urgency level to a fixed crisis response payload.
package emergency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PabloGalante/mindcare/internal/domain"
	"github.com/PabloGalante/mindcare/internal/observability"
)

// Response states. Medium urgency is presented as "moderate".
const (
	StateNone      = "none"
	StateLow       = "low"
	StateModerate  = "moderate"
	StateHigh      = "high"
	StateEmergency = "emergency"
)

const AuditActionCrisisResponse = "crisis_response_provided"

// StateName returns the response state for an urgency level.
func StateName(level domain.UrgencyLevel) string {
	switch level {
	case domain.UrgencyEmergency:
		return StateEmergency
	case domain.UrgencyHigh:
		return StateHigh
	case domain.UrgencyMedium:
		return StateModerate
	case domain.UrgencyLow:
		return StateLow
	default:
		return StateNone
	}
}

// Request is one lookup.
type Request struct {
	Urgency     domain.UrgencyLevel
	Text        string // hashed for the audit entry, never stored
	SessionHash string
	Country     string

	// PreviousUrgency is the urgency of the session's previous turn.
	PreviousUrgency domain.UrgencyLevel
}

// Response is an immutable crisis payload.
type Response struct {
	State        string              `json:"state"`
	Urgency      domain.UrgencyLevel `json:"urgency"`
	Headline     string              `json:"headline"`
	Message      string              `json:"message"`
	Actions      []string            `json:"actions"`
	Resources    []Resource          `json:"resources"`
	DeEscalation string              `json:"de_escalation,omitempty"`
	Closing      string              `json:"closing"`

	// SafetyPlan is attached at high and emergency urgency.
	SafetyPlan *SafetyPlan `json:"safety_plan,omitempty"`
	// FollowUp is attached to the first turn below high urgency after a crisis turn.
	FollowUp *FollowUp `json:"follow_up,omitempty"`
}

// Has247Line reports whether any resource is reachable around the clock.
func (r Response) Has247Line() bool {
	for _, res := range r.Resources {
		if res.Available247 {
			return true
		}
	}
	return false
}

// Text renders the payload as a plain chat message.
func (r Response) Text() string {
	var b strings.Builder
	b.WriteString(r.Headline)
	b.WriteString("\n\n")
	if r.DeEscalation != "" {
		b.WriteString(r.DeEscalation)
		b.WriteString("\n\n")
	}
	b.WriteString(r.Message)
	b.WriteString("\n")
	for i, a := range r.Actions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, a)
	}
	if len(r.Resources) > 0 {
		b.WriteString("\n")
	}
	for _, res := range r.Resources {
		b.WriteString("\n- ")
		b.WriteString(res.Name)
		for _, v := range []string{res.Phone, res.Text, res.Website, res.Description} {
			if v != "" {
				b.WriteString(" | ")
				b.WriteString(v)
			}
		}
		if res.Available247 {
			b.WriteString(" (24/7)")
		}
	}
	b.WriteString("\n\n")
	b.WriteString(r.Closing)
	return b.String()
}

type payload struct {
	headline string
	message  string
	actions  []string
	closing  string
}

var payloads = map[string]payload{
	StateEmergency: {
		headline: "EMERGENCY SUPPORT NEEDED",
		message:  "I'm very concerned about you right now. Your life matters, and you deserve immediate support. Please reach out right now:",
		actions: []string{
			"Call emergency services if you're in immediate danger",
			"Call or text one of the 24/7 crisis lines below",
			"Go to your nearest emergency room",
			"If you can't make the call, ask someone to help you or call for you",
		},
		closing: "You are not alone. This intense pain you're feeling right now is temporary, and there are people who want to help you through this.",
	},
	StateHigh: {
		headline: "URGENT: Please Get Support Now",
		message:  "I can see that you're going through an extremely difficult time, and I'm worried about you. Right now, please:",
		actions: []string{
			"Remove any means of harm from your area",
			"Go somewhere safe, preferably with others",
			"Reach out to one of the resources below or to a trusted person",
			"Focus on your breathing - take deep, slow breaths",
		},
		closing: "These overwhelming feelings are temporary. You deserve support and care, and professional help is available right now.",
	},
	StateModerate: {
		headline: "You Need Support Right Now",
		message:  "Some things that can help immediately:",
		actions: []string{
			"Take 10 deep breaths, counting slowly",
			"Use the 5-4-3-2-1 grounding technique",
			"Call someone you trust",
			"Remove yourself from stressful situations if possible",
		},
		closing: "You don't have to handle this alone. Reaching out for help is a sign of strength, not weakness.",
	},
	StateLow: {
		headline: "Let's Get You Some Support",
		message:  "I can hear that you're struggling, and what you're feeling is valid. Some things to try now:",
		actions: []string{
			"Practice deep breathing or meditation",
			"Take a walk or do some gentle exercise",
			"Reach out to a trusted friend or family member",
			"Engage in a comforting activity",
		},
		closing: "It's okay to not be okay. You're taking a positive step by recognizing these feelings and seeking support.",
	},
	StateNone: {
		headline: "You're Not Alone",
		message:  "Thank you for sharing your feelings with me. It takes courage to express when you're struggling. Ways to build your support network:",
		actions: []string{
			"Consider talking to a counselor or therapist",
			"Connect with trusted friends or family",
			"Look into local support groups",
			"Practice regular self-care",
		},
		closing: "Mental health struggles are common, and seeking help is a sign of wisdom and self-care.",
	},
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// Engine is stateless apart from its static catalog and audit sink.
type Engine struct {
	audit        domain.AuditSink
	pick         Picker
	now          func() time.Time
	auditTimeout time.Duration
}

type Option func(*Engine)

// WithPicker replaces the uniform random pool selection.
func WithPicker(p Picker) Option {
	return func(e *Engine) { e.pick = p }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithAuditTimeout(d time.Duration) Option {
	return func(e *Engine) { e.auditTimeout = d }
}

// NewEngine returns an engine that writes crisis audit entries to sink, which may be nil.
func NewEngine(sink domain.AuditSink, opts ...Option) *Engine {
	e := &Engine{
		audit:        sink,
		pick:         rand.IntN,
		now:          time.Now,
		auditTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Respond looks up the payload for req.Urgency. High and emergency levels get
// the safety plan and are audited in the background; the audit never delays
// or fails the response.
func (e *Engine) Respond(ctx context.Context, req Request) Response {
	state := StateName(req.Urgency)
	p := payloads[state]

	resp := Response{
		State:     state,
		Urgency:   req.Urgency,
		Headline:  p.headline,
		Message:   p.message,
		Actions:   append([]string(nil), p.actions...),
		Resources: ResourcesFor(countryOrDefault(req.Country)),
		Closing:   p.closing,
	}
	if state == StateModerate {
		resp.DeEscalation = deEscalationPool[e.pick(len(deEscalationPool))]
	}

	if req.PreviousUrgency.IsCrisis() && !req.Urgency.IsCrisis() {
		fu := PostCrisisFollowUp()
		resp.FollowUp = &fu
	}

	if req.Urgency.IsCrisis() {
		plan := NewSafetyPlan()
		resp.SafetyPlan = &plan
		e.auditAsync(ctx, domain.AuditEntry{
			Timestamp:   e.now().UTC(),
			Action:      AuditActionCrisisResponse,
			Urgency:     req.Urgency.String(),
			MessageHash: MessageHash(req.Text),
			SessionHash: req.SessionHash,
		})
	}
	return resp
}

func (e *Engine) auditAsync(ctx context.Context, entry domain.AuditEntry) {
	log := observability.LoggerFromContext(ctx).With(
		"urgency", entry.Urgency,
		"message_hash", entry.MessageHash,
	)
	log.Warn("crisis interaction")

	if e.audit == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, e.auditTimeout)
		defer cancel()
		if err := e.audit.Record(ctx, entry); err != nil {
			log.Error("failed to record crisis audit entry", "error", err)
		}
	}()
}

// MessageHash is the one-way digest stored instead of message text.
func MessageHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func countryOrDefault(c string) string {
	if strings.TrimSpace(c) == "" {
		return "us"
	}
	return c
}
