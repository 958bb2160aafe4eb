package firestore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// sweepBatch stays below the 500-write limit of one transaction.
const sweepBatch = 400

// ─────────────────────────────────────────
// RecordStore implementation
// ─────────────────────────────────────────

func (s *Store) Store(ctx context.Context, rec *domain.ConversationRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record without id: %w", domain.ErrInvalidInput)
	}
	doc := recordDoc{
		SessionHash:      rec.SessionHash,
		Category:         string(rec.Category),
		Timestamp:        rec.Timestamp.UTC(),
		SentimentScore:   rec.SentimentScore,
		StressLevel:      rec.StressLevel,
		UrgencyLevel:     rec.UrgencyLevel.String(),
		Emotions:         rec.Emotions,
		RiskIndicators:   rec.RiskIndicators,
		EncryptedContent: rec.EncryptedContent,
		HasContent:       rec.EncryptedContent != nil,
	}
	if _, err := s.recordsCol().Doc(rec.ID).Set(ctx, doc); err != nil {
		return storageErr("Store", err)
	}
	return nil
}

func (s *Store) StoreActivity(ctx context.Context, act *domain.WellnessActivity) error {
	if act == nil || act.ID == "" {
		return fmt.Errorf("activity without id: %w", domain.ErrInvalidInput)
	}
	doc := activityDoc{
		SessionHash:         act.SessionHash,
		ActivityType:        act.ActivityType,
		Timestamp:           act.Timestamp.UTC(),
		EffectivenessRating: act.EffectivenessRating,
	}
	if _, err := s.activitiesCol().Doc(act.ID).Set(ctx, doc); err != nil {
		return storageErr("StoreActivity", err)
	}
	return nil
}

func (s *Store) Records(ctx context.Context, filter domain.RecordFilter) ([]*domain.ConversationRecord, error) {
	q := s.recordsCol().Query
	if filter.SessionHash != "" {
		q = q.Where("session_hash", "==", filter.SessionHash)
	}
	if filter.Category != "" {
		q = q.Where("category", "==", string(filter.Category))
	}
	if !filter.Since.IsZero() {
		q = q.Where("ts", ">=", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q = q.Where("ts", "<=", filter.Until.UTC())
	}
	q = q.OrderBy("ts", firestore.Asc)

	iter := q.Documents(ctx)
	defer iter.Stop()
	return decodeRecords(iter)
}

func decodeRecords(iter *firestore.DocumentIterator) ([]*domain.ConversationRecord, error) {
	out := []*domain.ConversationRecord{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, storageErr("Records", err)
		}
		rec, err := decodeRecord(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeRecord(snap *firestore.DocumentSnapshot) (*domain.ConversationRecord, error) {
	var doc recordDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, storageErr("decode recordDoc", err)
	}
	urgency, err := domain.ParseUrgency(doc.UrgencyLevel)
	if err != nil {
		return nil, storageErr("decode recordDoc", err)
	}
	return &domain.ConversationRecord{
		ID:               snap.Ref.ID,
		SessionHash:      doc.SessionHash,
		Category:         domain.DataCategory(doc.Category),
		Timestamp:        doc.Timestamp.UTC(),
		SentimentScore:   doc.SentimentScore,
		StressLevel:      doc.StressLevel,
		UrgencyLevel:     urgency,
		Emotions:         doc.Emotions,
		RiskIndicators:   doc.RiskIndicators,
		EncryptedContent: doc.EncryptedContent,
	}, nil
}

// Sweep works category by category in bounded transactions. Each batch is
// idempotent, so a sweep interrupted between batches is finished by the next one.
func (s *Store) Sweep(ctx context.Context, policies domain.RetentionPolicies, now time.Time) (domain.SweepResult, error) {
	res := domain.NewSweepResult()
	for _, cat := range policies.Categories() {
		p := policies[cat]

		expired := s.recordsCol().
			Where("category", "==", string(cat)).
			Where("ts", "<=", p.RetentionCutoff(now).UTC())
		n, err := s.drain(ctx, expired, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
			return tx.Delete(ref)
		})
		res.Deleted[cat] = n
		if err != nil {
			return res, storageErr("Sweep delete", err)
		}

		// Timeline messages and activities live outside conversation_records.
		var extra *firestore.Query
		switch cat {
		case domain.CategoryConversationContent:
			q := s.allMessages().Where("created_at", "<=", p.RetentionCutoff(now).UTC())
			extra = &q
		case domain.CategoryWellnessActivities:
			q := s.activitiesCol().Where("ts", "<=", p.RetentionCutoff(now).UTC())
			extra = &q
		}
		if extra != nil {
			n, err = s.drain(ctx, *extra, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
				return tx.Delete(ref)
			})
			res.Deleted[cat] += n
			if err != nil {
				return res, storageErr("Sweep delete", err)
			}
		}

		stale := s.recordsCol().
			Where("category", "==", string(cat)).
			Where("has_content", "==", true).
			Where("ts", "<=", p.AnonymizeCutoff(now).UTC())
		n, err = s.drain(ctx, stale, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
			return tx.Update(ref, []firestore.Update{
				{Path: "encrypted_content", Value: nil},
				{Path: "has_content", Value: false},
			})
		})
		res.Anonymized[cat] = n
		if err != nil {
			return res, storageErr("Sweep anonymize", err)
		}
	}
	return res, nil
}

// drain applies write to every document of q, one transaction per batch,
// until the query comes back short.
func (s *Store) drain(ctx context.Context, q firestore.Query, write func(*firestore.Transaction, *firestore.DocumentRef) error) (int, error) {
	total := 0
	for {
		var n int
		err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			snaps, err := tx.Documents(q.Limit(sweepBatch)).GetAll()
			if err != nil {
				return err
			}
			n = len(snaps)
			for _, snap := range snaps {
				if err := write(tx, snap.Ref); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return total, err
		}
		total += n
		if n < sweepBatch {
			return total, nil
		}
	}
}

func (s *Store) ExportSession(ctx context.Context, sessionHash string) (*domain.SessionExport, error) {
	exp := &domain.SessionExport{SessionHash: sessionHash}
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		recIter := tx.Documents(s.recordsCol().Where("session_hash", "==", sessionHash).OrderBy("ts", firestore.Asc))
		recs, err := decodeRecords(recIter)
		if err != nil {
			return err
		}
		snaps, err := tx.Documents(s.activitiesCol().Where("session_hash", "==", sessionHash).OrderBy("ts", firestore.Asc)).GetAll()
		if err != nil {
			return err
		}
		acts := make([]*domain.WellnessActivity, 0, len(snaps))
		for _, snap := range snaps {
			var doc activityDoc
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			acts = append(acts, &domain.WellnessActivity{
				ID:                  snap.Ref.ID,
				SessionHash:         doc.SessionHash,
				ActivityType:        doc.ActivityType,
				Timestamp:           doc.Timestamp.UTC(),
				EffectivenessRating: doc.EffectivenessRating,
			})
		}
		exp.Records, exp.Activities = recs, acts
		return nil
	}, firestore.ReadOnly)
	if err != nil {
		return nil, storageErr("ExportSession", err)
	}
	return exp, nil
}

// EraseSession deletes records, activities and timeline messages in a single transaction, so a
// session larger than one transaction's write limit fails without deleting anything.
func (s *Store) EraseSession(ctx context.Context, sessionHash string) (domain.ErasureResult, error) {
	var res domain.ErasureResult
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		recs, err := tx.Documents(s.recordsCol().Where("session_hash", "==", sessionHash)).GetAll()
		if err != nil {
			return err
		}
		acts, err := tx.Documents(s.activitiesCol().Where("session_hash", "==", sessionHash)).GetAll()
		if err != nil {
			return err
		}
		msgs, err := tx.Documents(s.allMessages().Where("session_hash", "==", sessionHash)).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range slices.Concat(recs, acts, msgs) {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
		res = domain.ErasureResult{Records: len(recs), Activities: len(acts), Messages: len(msgs)}
		return nil
	})
	if err != nil {
		return domain.ErasureResult{}, storageErr("EraseSession", err)
	}
	return res, nil
}

// Record implements domain.AuditSink.
func (s *Store) Record(ctx context.Context, entry domain.AuditEntry) error {
	doc := auditDoc{
		Timestamp:   entry.Timestamp.UTC(),
		Action:      entry.Action,
		Urgency:     entry.Urgency,
		MessageHash: entry.MessageHash,
		SessionHash: entry.SessionHash,
		Details:     entry.Details,
	}
	if _, _, err := s.auditCol().Add(ctx, doc); err != nil {
		return storageErr("Record audit", err)
	}
	return nil
}
