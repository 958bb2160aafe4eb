package privacy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/mindcare/internal/domain"
	"github.com/PabloGalante/mindcare/internal/observability"
)

// Audit actions written by the service.
const (
	AuditActionCrisisPersistFailed = "crisis_record_persist_failed"
	AuditActionSessionErased       = "session_erased"
)

const (
	defaultCrisisAttempts = 3
	defaultRetryBackoff   = 100 * time.Millisecond
)

// Service applies retention, encryption and pseudonymization rules on top of
// a RecordStore. Stores only ever see session hashes and sealed content.
type Service struct {
	store    domain.RecordStore
	cipher   *Cipher
	policies domain.RetentionPolicies
	pseudo   *Pseudonymizer
	audit    domain.AuditSink
	messages domain.MessageRetention
	metrics  *observability.Metrics
	now      func() time.Time

	crisisAttempts int
	backoff        time.Duration
}

type Option func(*Service)

func WithPolicies(p domain.RetentionPolicies) Option {
	return func(s *Service) { s.policies = p }
}

// WithMessageRetention applies the conversation content policy and erasure
// to a message store kept outside the record store.
func WithMessageRetention(m domain.MessageRetention) Option {
	return func(s *Service) { s.messages = m }
}

func WithAuditSink(a domain.AuditSink) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces the time source of timestamps, hashes and sweeps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCrisisRetry sets how often a crisis record is tried before escalation.
func WithCrisisRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		s.crisisAttempts = max(attempts, 1)
		s.backoff = backoff
	}
}

func NewService(store domain.RecordStore, cipher *Cipher, opts ...Option) *Service {
	s := &Service{
		store:          store,
		cipher:         cipher,
		policies:       domain.DefaultRetentionPolicies(),
		now:            time.Now,
		crisisAttempts: defaultCrisisAttempts,
		backoff:        defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pseudo = NewPseudonymizer(s.now)
	return s
}

// Policies returns the retention policies in force.
func (s *Service) Policies() domain.RetentionPolicies {
	return s.policies
}

// SessionHash pseudonymizes a session id for today.
func (s *Service) SessionHash(id domain.SessionID) string {
	return s.pseudo.Pseudonymize(string(id))
}

// CategoryFor picks the category a turn is filed under.
func CategoryFor(urgency domain.UrgencyLevel, hasContent bool) domain.DataCategory {
	switch {
	case urgency.IsCrisis():
		return domain.CategoryCrisisLogs
	case hasContent:
		return domain.CategoryConversationContent
	default:
		return domain.CategorySentimentAnalysis
	}
}

// Store persists rec, sealing plaintext when the category demands encryption
// and dropping it otherwise. Crisis records are retried and, if they still
// cannot be written, escalated through logs, metrics and the audit sink.
func (s *Service) Store(ctx context.Context, rec *domain.ConversationRecord, plaintext string) error {
	if rec == nil || rec.SessionHash == "" {
		return fmt.Errorf("record without session hash: %w", domain.ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	if rec.Category == "" {
		rec.Category = CategoryFor(rec.UrgencyLevel, plaintext != "")
	}
	if !ValidatePurpose(rec.Category, storagePurpose[rec.Category]) {
		return fmt.Errorf("no legitimate purpose to store %q records: %w", rec.Category, domain.ErrInvalidInput)
	}
	crisis := rec.UrgencyLevel.IsCrisis()

	log := observability.LoggerFromContext(ctx).With(
		"session_hash", rec.SessionHash,
		"category", string(rec.Category),
		"urgency", rec.UrgencyLevel.String(),
	)

	rec.EncryptedContent = nil
	if policy, ok := s.policies[rec.Category]; ok && policy.EncryptionRequired && plaintext != "" {
		sealed, err := s.seal(ctx, plaintext)
		switch {
		case err == nil:
			rec.EncryptedContent = &sealed
		case crisis:
			log.Error("failed to encrypt crisis content, storing record without it", "error", err)
		default:
			s.metrics.RecordStorageFailure("encrypt")
			return fmt.Errorf("store record: %w", err)
		}
	}

	attempts := 1
	if crisis {
		attempts = s.crisisAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			log.Warn("retrying record store", "attempt", i+1, "error", err)
			if !sleepCtx(ctx, s.backoff*time.Duration(i)) {
				break
			}
		}
		if err = s.store.Store(ctx, rec); err == nil {
			return nil
		}
	}

	s.metrics.RecordStorageFailure("store")
	if crisis {
		s.escalate(ctx, log, rec, err)
	} else {
		log.Error("failed to store record", "error", err)
	}
	return storageErr("store record", err)
}

func (s *Service) seal(ctx context.Context, plaintext string) (string, error) {
	if s.cipher == nil {
		return "", fmt.Errorf("no cipher configured: %w", domain.ErrConfiguration)
	}
	return s.cipher.Encrypt(ctx, plaintext)
}

func (s *Service) escalate(ctx context.Context, log *slog.Logger, rec *domain.ConversationRecord, cause error) {
	log.Error("crisis record could not be persisted", "alert", true, "record_id", rec.ID, "error", cause)
	s.metrics.RecordCrisisPersistFailure()

	if s.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		Timestamp:   s.now().UTC(),
		Action:      AuditActionCrisisPersistFailed,
		Urgency:     rec.UrgencyLevel.String(),
		SessionHash: rec.SessionHash,
		Details:     map[string]string{"record_id": rec.ID, "category": string(rec.Category)},
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.Error("failed to audit crisis persist failure", "alert", true, "error", err)
	}
}

// StoreActivity records a wellness activity. Rating, when given, is 1..10.
func (s *Service) StoreActivity(ctx context.Context, sessionHash, activityType string, rating *int) (*domain.WellnessActivity, error) {
	activityType = strings.TrimSpace(activityType)
	if sessionHash == "" || activityType == "" {
		return nil, fmt.Errorf("activity needs a session and a type: %w", domain.ErrInvalidInput)
	}
	if rating != nil && (*rating < 1 || *rating > 10) {
		return nil, fmt.Errorf("effectiveness rating %d outside 1..10: %w", *rating, domain.ErrInvalidInput)
	}
	act := &domain.WellnessActivity{
		ID:                  uuid.NewString(),
		SessionHash:         sessionHash,
		ActivityType:        activityType,
		Timestamp:           s.now().UTC(),
		EffectivenessRating: rating,
	}
	if err := s.store.StoreActivity(ctx, act); err != nil {
		s.metrics.RecordStorageFailure("store_activity")
		return nil, storageErr("store activity", err)
	}
	return act, nil
}

// Sweep anonymizes and deletes records per their category's policy.
func (s *Service) Sweep(ctx context.Context) (domain.SweepResult, error) {
	log := observability.LoggerFromContext(ctx)

	now := s.now().UTC()
	res, err := s.store.Sweep(ctx, s.policies, now)
	if p, ok := s.policies[domain.CategoryConversationContent]; ok && s.messages != nil && err == nil {
		var n int
		n, err = s.messages.DeleteMessagesBefore(ctx, p.RetentionCutoff(now))
		res.Deleted[domain.CategoryConversationContent] += n
	}
	for cat, n := range res.Anonymized {
		s.metrics.RecordSweep(string(cat), "anonymized", n)
	}
	for cat, n := range res.Deleted {
		s.metrics.RecordSweep(string(cat), "deleted", n)
	}
	anonymized, deleted := res.Total()
	if err != nil {
		s.metrics.RecordStorageFailure("sweep")
		log.Error("retention sweep failed", "anonymized", anonymized, "deleted", deleted, "error", err)
		return res, storageErr("sweep", err)
	}
	log.Info("retention sweep completed", "anonymized", anonymized, "deleted", deleted)
	return res, nil
}

// ExportedRecord is a record as handed back to its owner.
type ExportedRecord struct {
	*domain.ConversationRecord
	HasContent bool   `json:"has_content"`
	Content    string `json:"content,omitempty"`
}

// ExportSummary summarizes an export.
type ExportSummary struct {
	TotalConversations int        `json:"total_conversations"`
	TotalActivities    int        `json:"total_activities"`
	From               *time.Time `json:"from,omitempty"`
	To                 *time.Time `json:"to,omitempty"`
}

// Export is the portable copy of one session's data.
type Export struct {
	GeneratedAt     time.Time                  `json:"generated_at"`
	SessionHash     string                     `json:"session_hash"`
	Records         []ExportedRecord           `json:"conversations"`
	Activities      []*domain.WellnessActivity `json:"wellness_activities"`
	Summary         ExportSummary              `json:"summary"`
	RightsAvailable []string                   `json:"rights_available"`
	Retention       domain.RetentionPolicies   `json:"data_retention_policy"`
}

// Export reads back everything stored under sessionHash. With includeContent
// sealed content is decrypted into the export.
func (s *Service) Export(ctx context.Context, sessionHash string, includeContent bool) (*Export, error) {
	if sessionHash == "" {
		return nil, fmt.Errorf("empty session hash: %w", domain.ErrInvalidInput)
	}
	raw, err := s.store.ExportSession(ctx, sessionHash)
	if err != nil {
		s.metrics.RecordStorageFailure("export")
		return nil, storageErr("export session", err)
	}
	if len(raw.Records) == 0 && len(raw.Activities) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionHash, domain.ErrNotFound)
	}

	out := &Export{
		GeneratedAt:     s.now().UTC(),
		SessionHash:     sessionHash,
		Records:         make([]ExportedRecord, 0, len(raw.Records)),
		Activities:      raw.Activities,
		RightsAvailable: UserRights,
		Retention:       s.policies,
	}
	if out.Activities == nil {
		out.Activities = []*domain.WellnessActivity{}
	}

	for _, rec := range raw.Records {
		er := ExportedRecord{ConversationRecord: rec, HasContent: rec.HasContent()}
		if includeContent && rec.HasContent() {
			if s.cipher == nil {
				return nil, fmt.Errorf("export: no cipher configured: %w", domain.ErrConfiguration)
			}
			plain, err := s.cipher.Decrypt(ctx, *rec.EncryptedContent)
			if err != nil {
				return nil, fmt.Errorf("export record %s: %w", rec.ID, err)
			}
			er.Content = plain
		}
		out.Records = append(out.Records, er)

		ts := rec.Timestamp
		if out.Summary.From == nil || ts.Before(*out.Summary.From) {
			out.Summary.From = &ts
		}
		if out.Summary.To == nil || ts.After(*out.Summary.To) {
			out.Summary.To = &ts
		}
	}
	out.Summary.TotalConversations = len(out.Records)
	out.Summary.TotalActivities = len(out.Activities)
	return out, nil
}

// Erase removes every record and activity of a session.
func (s *Service) Erase(ctx context.Context, sessionHash string) (domain.ErasureResult, error) {
	if sessionHash == "" {
		return domain.ErasureResult{}, fmt.Errorf("empty session hash: %w", domain.ErrInvalidInput)
	}
	log := observability.LoggerFromContext(ctx).With("session_hash", sessionHash)

	res, err := s.store.EraseSession(ctx, sessionHash)
	if err != nil {
		s.metrics.RecordStorageFailure("erase")
		log.Error("failed to erase session", "error", err)
		return res, storageErr("erase session", err)
	}
	if s.messages != nil {
		n, err := s.messages.DeleteMessagesByHash(ctx, sessionHash)
		if err != nil {
			s.metrics.RecordStorageFailure("erase")
			log.Error("failed to erase session messages", "error", err)
			return res, storageErr("erase messages", err)
		}
		res.Messages = n
	}
	log.Info("session erased", "records", res.Records, "activities", res.Activities, "messages", res.Messages)

	if s.audit != nil {
		entry := domain.AuditEntry{
			Timestamp:   s.now().UTC(),
			Action:      AuditActionSessionErased,
			SessionHash: sessionHash,
			Details: map[string]string{
				"records":    strconv.Itoa(res.Records),
				"activities": strconv.Itoa(res.Activities),
				"messages":   strconv.Itoa(res.Messages),
			},
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			log.Warn("failed to audit erasure", "error", err)
		}
	}
	return res, nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
