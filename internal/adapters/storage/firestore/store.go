package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// ContentSealer encrypts message text before it leaves the process.
type ContentSealer interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, envelope string) (string, error)
}

type Store struct {
	client *firestore.Client
	sealer ContentSealer
}

type Option func(*Store)

// WithSealer stores message text sealed instead of in clear.
func WithSealer(s ContentSealer) Option {
	return func(st *Store) { st.sealer = s }
}

// NewStore creates a Firestore store.
// Uses the project passed (MINDCARE_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string, opts ...Option) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store: %w", domain.ErrConfiguration)
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func (s *Store) messageDoc(sessionID domain.SessionID, msgID domain.MessageID) *firestore.DocumentRef {
	return s.messagesCol(sessionID).Doc(string(msgID))
}

// allMessages spans the messages subcollection of every session.
func (s *Store) allMessages() *firestore.CollectionGroupRef {
	return s.client.CollectionGroup("messages")
}

func (s *Store) recordsCol() *firestore.CollectionRef {
	return s.client.Collection("conversation_records")
}

func (s *Store) activitiesCol() *firestore.CollectionRef {
	return s.client.Collection("wellness_activities")
}

func (s *Store) auditCol() *firestore.CollectionRef {
	return s.client.Collection("audit_entries")
}

func storageErr(op string, err error) error {
	return fmt.Errorf("firestore %s: %v: %w", op, err, domain.ErrStorage)
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	UserID        string    `firestore:"user_id"`
	Title         string    `firestore:"title"`
	PreferredMode string    `firestore:"preferred_mode"`
	Country       string    `firestore:"country"`
	CreatedAt     time.Time `firestore:"created_at"`
	UpdatedAt     time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	SessionID   string    `firestore:"session_id"`
	Author      string    `firestore:"author"`
	Text        string    `firestore:"text"`
	Sealed      bool      `firestore:"sealed"`
	Mode        string    `firestore:"mode"`
	CreatedAt   time.Time `firestore:"created_at"`
	TurnIndex   int       `firestore:"turn_index"`
	Tags        []string  `firestore:"tags"`
	ReplyTo     *string   `firestore:"reply_to"`
	ContentType string    `firestore:"content_type"`
	Urgency     string    `firestore:"urgency"`
	SessionHash string    `firestore:"session_hash"`
}

type recordDoc struct {
	SessionHash      string    `firestore:"session_hash"`
	Category         string    `firestore:"category"`
	Timestamp        time.Time `firestore:"ts"`
	SentimentScore   float64   `firestore:"sentiment_score"`
	StressLevel      float64   `firestore:"stress_level"`
	UrgencyLevel     string    `firestore:"urgency_level"`
	Emotions         string    `firestore:"emotions"`
	RiskIndicators   string    `firestore:"risk_indicators"`
	EncryptedContent *string   `firestore:"encrypted_content"`
	HasContent       bool      `firestore:"has_content"`
}

type activityDoc struct {
	SessionHash         string    `firestore:"session_hash"`
	ActivityType        string    `firestore:"activity_type"`
	Timestamp           time.Time `firestore:"ts"`
	EffectivenessRating *int      `firestore:"effectiveness_rating"`
}

type auditDoc struct {
	Timestamp   time.Time         `firestore:"ts"`
	Action      string            `firestore:"action"`
	Urgency     string            `firestore:"urgency"`
	MessageHash string            `firestore:"message_hash"`
	SessionHash string            `firestore:"session_hash"`
	Details     map[string]string `firestore:"details"`
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(session *domain.Session) error {
	ctx := context.Background()

	doc := sessionDoc{
		UserID:        string(session.UserID),
		Title:         session.Title,
		PreferredMode: string(session.PreferredMode),
		Country:       session.Country,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}

	_, err := s.sessionDoc(session.ID).Create(ctx, doc)
	if err != nil {
		return storageErr("CreateSession", err)
	}
	return nil
}

func (s *Store) UpdateSession(session *domain.Session) error {
	ctx := context.Background()

	doc := map[string]interface{}{
		"user_id":        string(session.UserID),
		"title":          session.Title,
		"preferred_mode": string(session.PreferredMode),
		"country":        session.Country,
		"created_at":     session.CreatedAt,
		"updated_at":     session.UpdatedAt,
	}

	_, err := s.sessionDoc(session.ID).Set(ctx, doc, firestore.MergeAll)
	if err != nil {
		return storageErr("UpdateSession", err)
	}
	return nil
}

func (s *Store) GetSession(id domain.SessionID) (*domain.Session, error) {
	ctx := context.Background()

	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
		}
		return nil, storageErr("GetSession", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, storageErr("GetSession decode", err)
	}

	return doc.toDomain(id), nil
}

func (d sessionDoc) toDomain(id domain.SessionID) *domain.Session {
	return &domain.Session{
		ID:            id,
		UserID:        domain.UserID(d.UserID),
		Title:         d.Title,
		PreferredMode: domain.InteractionMode(d.PreferredMode),
		Country:       d.Country,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (s *Store) ListSessionsByUser(userID domain.UserID, limit int) ([]*domain.Session, error) {
	ctx := context.Background()

	q := s.sessionsCol().Where("user_id", "==", string(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, storageErr("ListSessionsByUser", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, storageErr("decode sessionDoc", err)
		}
		out = append(out, doc.toDomain(domain.SessionID(snap.Ref.ID)))
	}
	return out, nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(msg *domain.Message) error {
	ctx := context.Background()

	var replyTo *string
	if msg.ReplyTo != nil {
		v := string(*msg.ReplyTo)
		replyTo = &v
	}

	text, sealed := msg.Text, false
	if s.sealer != nil && text != "" {
		env, err := s.sealer.Encrypt(ctx, text)
		if err != nil {
			return fmt.Errorf("firestore AppendMessage: %w", err)
		}
		text, sealed = env, true
	}

	doc := messageDoc{
		SessionID:   string(msg.SessionID),
		Author:      string(msg.Author),
		Text:        text,
		Sealed:      sealed,
		Mode:        string(msg.Mode),
		CreatedAt:   msg.CreatedAt,
		TurnIndex:   msg.TurnIndex,
		Tags:        msg.Tags,
		ReplyTo:     replyTo,
		ContentType: msg.ContentType,
		Urgency:     msg.Urgency.String(),
		SessionHash: msg.SessionHash,
	}

	_, err := s.messageDoc(msg.SessionID, msg.ID).Set(ctx, doc)
	if err != nil {
		return storageErr("AppendMessage", err)
	}
	return nil
}

// GetMessagesBySession returns the latest limit messages, oldest first.
func (s *Store) GetMessagesBySession(sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	ctx := context.Background()

	q := s.messagesCol(sessionID).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, storageErr("GetMessagesBySession", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, storageErr("decode messageDoc", err)
		}

		text := doc.Text
		if doc.Sealed {
			if s.sealer == nil {
				return nil, fmt.Errorf("message %s is sealed but no sealer is configured: %w", snap.Ref.ID, domain.ErrConfiguration)
			}
			if text, err = s.sealer.Decrypt(ctx, doc.Text); err != nil {
				return nil, fmt.Errorf("firestore GetMessagesBySession: %w", err)
			}
		}

		var replyTo *domain.MessageID
		if doc.ReplyTo != nil {
			id := domain.MessageID(*doc.ReplyTo)
			replyTo = &id
		}
		urgency, _ := domain.ParseUrgency(doc.Urgency)

		out = append(out, &domain.Message{
			ID:          domain.MessageID(snap.Ref.ID),
			SessionID:   sessionID,
			Author:      domain.Role(doc.Author),
			Text:        text,
			Mode:        domain.InteractionMode(doc.Mode),
			CreatedAt:   doc.CreatedAt,
			TurnIndex:   doc.TurnIndex,
			Tags:        doc.Tags,
			ReplyTo:     replyTo,
			ContentType: doc.ContentType,
			Urgency:     urgency,
		})
	}

	// Newest-first query; hand back chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
