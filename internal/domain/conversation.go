package domain

// Message represents a any message in a timeline (user or agent)
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Role
	Text      string
	CreatedAt Timestamp

	// SessionHash is the day's pseudonym of the session, empty without a
	// privacy layer. Stores use it to apply retention and erasure.
	SessionHash string

	// TurnIndex is the position of the message within its session, starting at 0.
	TurnIndex int

	// Metadata holds additional information about the message
	Tags        []string
	Mode        InteractionMode
	ReplyTo     *MessageID
	ContentType string // e.g., "text", "crisis_response", "welcome"
	Urgency     UrgencyLevel
}

// Session represent a concrete "relationship" between a user and the agent (could last days)
type Session struct {
	ID        SessionID
	UserID    UserID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	// Basic session's config
	PreferredMode InteractionMode
	Title         string
	Country       string
}
