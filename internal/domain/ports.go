package domain

import (
	"context"
	"time"
)

// LLMClient defines how the core application interacts with an LLM service.
type LLMClient interface {
	GenerateReply(ctx context.Context, prompt string, convCtx ConversationContext) (string, error)
}

// ConversationContext gives the LLM minimal context about the conversation.
type ConversationContext struct {
	SessionID SessionID
	UserID    UserID
	Mode      InteractionMode
	History   []*Message // for the MVP, last N interactions

	// Triage outcome of the current turn, used to adjust tone.
	Urgency     UrgencyLevel
	StressLevel float64
	Signals     []string
}

// SessionStore defines session's persistence
type SessionStore interface {
	CreateSession(session *Session) error
	UpdateSession(session *Session) error
	GetSession(id SessionID) (*Session, error)
	ListSessionsByUser(userID UserID, limit int) ([]*Session, error)
}

// MessageStore defines message's persistence
type MessageStore interface {
	AppendMessage(msg *Message) error
	GetMessagesBySession(sessionID SessionID, limit int) ([]*Message, error)
}

// RecordStore persists pseudonymized analysis records and wellness activities.
// Implementations must make Sweep and EraseSession transactional so that
// concurrent Store calls never observe or resurrect half-deleted rows.
type RecordStore interface {
	Store(ctx context.Context, rec *ConversationRecord) error
	StoreActivity(ctx context.Context, act *WellnessActivity) error
	Records(ctx context.Context, filter RecordFilter) ([]*ConversationRecord, error)
	Sweep(ctx context.Context, policies RetentionPolicies, now time.Time) (SweepResult, error)
	ExportSession(ctx context.Context, sessionHash string) (*SessionExport, error)
	EraseSession(ctx context.Context, sessionHash string) (ErasureResult, error)
}

// AuditEntry is an anonymized crisis or privacy event. It never carries raw text.
type AuditEntry struct {
	Timestamp   time.Time         `json:"timestamp"`
	Action      string            `json:"action"`
	Urgency     string            `json:"urgency,omitempty"`
	MessageHash string            `json:"message_hash,omitempty"`
	SessionHash string            `json:"session_hash,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// MessageRetention is implemented by message stores that keep timeline text
// outside the record store, so the conversation content policy and erasure
// reach it too.
type MessageRetention interface {
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int, error)
	DeleteMessagesByHash(ctx context.Context, sessionHash string) (int, error)
}

// AuditSink records audit entries.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}
