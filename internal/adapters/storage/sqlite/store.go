// Package sqlite persists pseudonymized analysis records and audit entries in
// a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/PabloGalante/mindcare/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id                TEXT PRIMARY KEY,
	session_hash      TEXT NOT NULL,
	category          TEXT NOT NULL,
	ts                INTEGER NOT NULL,
	sentiment_score   REAL NOT NULL DEFAULT 0,
	stress_level      REAL NOT NULL DEFAULT 0,
	urgency_level     TEXT NOT NULL DEFAULT 'none',
	emotions          TEXT NOT NULL DEFAULT '',
	risk_indicators   TEXT NOT NULL DEFAULT '',
	encrypted_content TEXT
);
CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_hash);
CREATE INDEX IF NOT EXISTS idx_conversations_category_ts ON conversations(category, ts);

CREATE TABLE IF NOT EXISTS wellness_activities (
	id                   TEXT PRIMARY KEY,
	session_hash         TEXT NOT NULL,
	activity_type        TEXT NOT NULL,
	ts                   INTEGER NOT NULL,
	effectiveness_rating INTEGER
);
CREATE INDEX IF NOT EXISTS idx_activities_session ON wellness_activities(session_hash);

CREATE TABLE IF NOT EXISTS audit_entries (
	id           TEXT PRIMARY KEY,
	ts           INTEGER NOT NULL,
	action       TEXT NOT NULL,
	urgency      TEXT NOT NULL DEFAULT '',
	message_hash TEXT NOT NULL DEFAULT '',
	session_hash TEXT NOT NULL DEFAULT '',
	details      TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_entries(ts);
`

// Store is a domain.RecordStore on SQLite. Timestamps are stored as Unix
// nanoseconds so range predicates compare numerically.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %v: %w", err, domain.ErrStorage)
	}
	// One writer; sweeps and erasures serialize against inserts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %v: %w", err, domain.ErrStorage)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %v: %w", err, domain.ErrStorage)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Store inserts rec, replacing any row with the same id.
func (s *Store) Store(ctx context.Context, rec *domain.ConversationRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record without id: %w", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversations (id, session_hash, category, ts, sentiment_score,
			stress_level, urgency_level, emotions, risk_indicators, encrypted_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionHash, string(rec.Category), rec.Timestamp.UnixNano(), rec.SentimentScore,
		rec.StressLevel, rec.UrgencyLevel.String(), rec.Emotions, rec.RiskIndicators, nullString(rec.EncryptedContent),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert record: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

func (s *Store) StoreActivity(ctx context.Context, act *domain.WellnessActivity) error {
	if act == nil || act.ID == "" {
		return fmt.Errorf("activity without id: %w", domain.ErrInvalidInput)
	}
	var rating sql.NullInt64
	if act.EffectivenessRating != nil {
		rating = sql.NullInt64{Int64: int64(*act.EffectivenessRating), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO wellness_activities (id, session_hash, activity_type, ts, effectiveness_rating)
		VALUES (?, ?, ?, ?, ?)`,
		act.ID, act.SessionHash, act.ActivityType, act.Timestamp.UnixNano(), rating,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert activity: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

const recordColumns = `id, session_hash, category, ts, sentiment_score, stress_level,
	urgency_level, emotions, risk_indicators, encrypted_content`

// Records returns the matching records, oldest first.
func (s *Store) Records(ctx context.Context, filter domain.RecordFilter) ([]*domain.ConversationRecord, error) {
	var (
		conds []string
		args  []any
	)
	if filter.SessionHash != "" {
		conds = append(conds, "session_hash = ?")
		args = append(args, filter.SessionHash)
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(filter.Category))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, filter.Until.UnixNano())
	}

	query := "SELECT " + recordColumns + " FROM conversations"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts, id"

	return queryRecords(ctx, s.db, query, args...)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRecords(ctx context.Context, q querier, query string, args ...any) ([]*domain.ConversationRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query records: %v: %w", err, domain.ErrStorage)
	}
	defer rows.Close()

	out := []*domain.ConversationRecord{}
	for rows.Next() {
		var (
			r       domain.ConversationRecord
			cat     string
			ts      int64
			urgency string
			content sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SessionHash, &cat, &ts, &r.SentimentScore, &r.StressLevel,
			&urgency, &r.Emotions, &r.RiskIndicators, &content); err != nil {
			return nil, fmt.Errorf("sqlite: scan record: %v: %w", err, domain.ErrStorage)
		}
		r.Category = domain.DataCategory(cat)
		r.Timestamp = time.Unix(0, ts).UTC()
		if r.UrgencyLevel, err = domain.ParseUrgency(urgency); err != nil {
			return nil, fmt.Errorf("sqlite: record %s: %v: %w", r.ID, err, domain.ErrStorage)
		}
		if content.Valid {
			c := content.String
			r.EncryptedContent = &c
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate records: %v: %w", err, domain.ErrStorage)
	}
	return out, nil
}

// Sweep runs one transaction per category: expired rows are deleted, then
// content older than the anonymization age is cleared.
func (s *Store) Sweep(ctx context.Context, policies domain.RetentionPolicies, now time.Time) (domain.SweepResult, error) {
	res := domain.NewSweepResult()
	for _, cat := range policies.Categories() {
		p := policies[cat]
		deleted, anonymized, err := s.sweepCategory(ctx, cat, p.RetentionCutoff(now), p.AnonymizeCutoff(now))
		if err != nil {
			return res, err
		}
		res.Deleted[cat] = deleted
		res.Anonymized[cat] = anonymized
	}
	return res, nil
}

func (s *Store) sweepCategory(ctx context.Context, cat domain.DataCategory, deleteCutoff, anonCutoff time.Time) (deleted, anonymized int, err error) {
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		r, err := tx.ExecContext(ctx,
			`DELETE FROM conversations WHERE category = ? AND ts <= ?`,
			string(cat), deleteCutoff.UnixNano())
		if err != nil {
			return fmt.Errorf("delete %s: %w", cat, err)
		}
		deleted, err = affected(r)
		if err != nil {
			return err
		}

		if cat == domain.CategoryWellnessActivities {
			r, err = tx.ExecContext(ctx,
				`DELETE FROM wellness_activities WHERE ts <= ?`, deleteCutoff.UnixNano())
			if err != nil {
				return fmt.Errorf("delete activities: %w", err)
			}
			n, err := affected(r)
			if err != nil {
				return err
			}
			deleted += n
		}

		r, err = tx.ExecContext(ctx,
			`UPDATE conversations SET encrypted_content = NULL
			 WHERE category = ? AND ts <= ? AND encrypted_content IS NOT NULL`,
			string(cat), anonCutoff.UnixNano())
		if err != nil {
			return fmt.Errorf("anonymize %s: %w", cat, err)
		}
		anonymized, err = affected(r)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: sweep: %v: %w", err, domain.ErrStorage)
	}
	return deleted, anonymized, nil
}

// ExportSession reads records and activities from one snapshot.
func (s *Store) ExportSession(ctx context.Context, sessionHash string) (*domain.SessionExport, error) {
	exp := &domain.SessionExport{SessionHash: sessionHash}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		exp.Records, err = queryRecords(ctx, tx,
			"SELECT "+recordColumns+" FROM conversations WHERE session_hash = ? ORDER BY ts, id", sessionHash)
		if err != nil {
			return err
		}
		exp.Activities, err = queryActivities(ctx, tx, sessionHash)
		return err
	})
	if err != nil {
		return nil, wrapStorage("sqlite: export", err)
	}
	return exp, nil
}

func queryActivities(ctx context.Context, tx *sql.Tx, sessionHash string) ([]*domain.WellnessActivity, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, session_hash, activity_type, ts, effectiveness_rating
		FROM wellness_activities WHERE session_hash = ? ORDER BY ts, id`, sessionHash)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	out := []*domain.WellnessActivity{}
	for rows.Next() {
		var (
			a      domain.WellnessActivity
			ts     int64
			rating sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.SessionHash, &a.ActivityType, &ts, &rating); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Timestamp = time.Unix(0, ts).UTC()
		if rating.Valid {
			v := int(rating.Int64)
			a.EffectivenessRating = &v
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// EraseSession deletes all rows of a session in one transaction.
func (s *Store) EraseSession(ctx context.Context, sessionHash string) (domain.ErasureResult, error) {
	var res domain.ErasureResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE session_hash = ?`, sessionHash)
		if err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
		if res.Records, err = affected(r); err != nil {
			return err
		}
		r, err = tx.ExecContext(ctx, `DELETE FROM wellness_activities WHERE session_hash = ?`, sessionHash)
		if err != nil {
			return fmt.Errorf("delete activities: %w", err)
		}
		res.Activities, err = affected(r)
		return err
	})
	if err != nil {
		return domain.ErasureResult{}, fmt.Errorf("sqlite: erase: %v: %w", err, domain.ErrStorage)
	}
	return res, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AuditLog returns an audit sink writing to the same database.
func (s *Store) AuditLog() *AuditLog {
	return &AuditLog{db: s.db}
}

// AuditLog is a domain.AuditSink backed by the audit_entries table.
type AuditLog struct {
	db *sql.DB
}

func (l *AuditLog) Record(ctx context.Context, entry domain.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	var details sql.NullString
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("audit: marshal details: %w", err)
		}
		details = sql.NullString{String: string(b), Valid: true}
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, ts, action, urgency, message_hash, session_hash, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), entry.Timestamp.UnixNano(), entry.Action, entry.Urgency,
		entry.MessageHash, entry.SessionHash, details,
	)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

// Entries returns the newest audit entries first. limit <= 0 returns all.
func (l *AuditLog) Entries(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	query := `SELECT ts, action, urgency, message_hash, session_hash, details FROM audit_entries ORDER BY ts DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %v: %w", err, domain.ErrStorage)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e       domain.AuditEntry
			ts      int64
			details sql.NullString
		)
		if err := rows.Scan(&ts, &e.Action, &e.Urgency, &e.MessageHash, &e.SessionHash, &details); err != nil {
			return nil, fmt.Errorf("audit: scan: %v: %w", err, domain.ErrStorage)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("audit: decode details: %v: %w", err, domain.ErrStorage)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func affected(r sql.Result) (int, error) {
	n, err := r.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func wrapStorage(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorage)
}
