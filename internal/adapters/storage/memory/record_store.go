package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// RecordStore is an in-memory domain.RecordStore for development and tests.
// A single RWMutex makes every operation, sweeps included, atomic.
type RecordStore struct {
	mu         sync.RWMutex
	records    map[string]*domain.ConversationRecord
	activities map[string]*domain.WellnessActivity
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		records:    make(map[string]*domain.ConversationRecord),
		activities: make(map[string]*domain.WellnessActivity),
	}
}

// Store inserts or replaces rec by ID, so retried writes are idempotent.
func (s *RecordStore) Store(ctx context.Context, rec *domain.ConversationRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory store: %v: %w", err, domain.ErrStorage)
	}
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record without id: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *RecordStore) StoreActivity(ctx context.Context, act *domain.WellnessActivity) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory store activity: %v: %w", err, domain.ErrStorage)
	}
	if act == nil || act.ID == "" {
		return fmt.Errorf("activity without id: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *act
	s.activities[act.ID] = &cp
	return nil
}

// Records returns copies of the matching records, oldest first.
func (s *RecordStore) Records(_ context.Context, filter domain.RecordFilter) ([]*domain.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ConversationRecord, 0)
	for _, r := range s.records {
		if filter.Match(r) {
			out = append(out, cloneRecord(r))
		}
	}
	sortRecords(out)
	return out, nil
}

// Sweep deletes expired records first and then clears the content of the
// ones past their anonymization age. Already cleared records are not counted.
func (s *RecordStore) Sweep(ctx context.Context, policies domain.RetentionPolicies, now time.Time) (domain.SweepResult, error) {
	res := domain.NewSweepResult()
	for _, cat := range policies.Categories() {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("memory sweep: %v: %w", err, domain.ErrStorage)
		}
		p := policies[cat]
		deleteCutoff, anonCutoff := p.RetentionCutoff(now), p.AnonymizeCutoff(now)

		s.mu.Lock()
		for id, r := range s.records {
			if r.Category != cat {
				continue
			}
			switch {
			case !r.Timestamp.After(deleteCutoff):
				delete(s.records, id)
				res.Deleted[cat]++
			case r.HasContent() && !r.Timestamp.After(anonCutoff):
				r.EncryptedContent = nil
				res.Anonymized[cat]++
			}
		}
		if cat == domain.CategoryWellnessActivities {
			// Activities carry no content, so they are only ever deleted.
			for id, a := range s.activities {
				if !a.Timestamp.After(deleteCutoff) {
					delete(s.activities, id)
					res.Deleted[cat]++
				}
			}
		}
		s.mu.Unlock()
	}
	return res, nil
}

func (s *RecordStore) ExportSession(_ context.Context, sessionHash string) (*domain.SessionExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp := &domain.SessionExport{
		SessionHash: sessionHash,
		Records:     []*domain.ConversationRecord{},
		Activities:  []*domain.WellnessActivity{},
	}
	for _, r := range s.records {
		if r.SessionHash == sessionHash {
			exp.Records = append(exp.Records, cloneRecord(r))
		}
	}
	for _, a := range s.activities {
		if a.SessionHash == sessionHash {
			cp := *a
			exp.Activities = append(exp.Activities, &cp)
		}
	}
	sortRecords(exp.Records)
	sort.Slice(exp.Activities, func(i, j int) bool {
		return exp.Activities[i].Timestamp.Before(exp.Activities[j].Timestamp)
	})
	return exp, nil
}

func (s *RecordStore) EraseSession(_ context.Context, sessionHash string) (domain.ErasureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res domain.ErasureResult
	for id, r := range s.records {
		if r.SessionHash == sessionHash {
			delete(s.records, id)
			res.Records++
		}
	}
	for id, a := range s.activities {
		if a.SessionHash == sessionHash {
			delete(s.activities, id)
			res.Activities++
		}
	}
	return res, nil
}

func cloneRecord(r *domain.ConversationRecord) *domain.ConversationRecord {
	cp := *r
	if r.EncryptedContent != nil {
		c := *r.EncryptedContent
		cp.EncryptedContent = &c
	}
	return &cp
}

func sortRecords(rs []*domain.ConversationRecord) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Timestamp.Equal(rs[j].Timestamp) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].Timestamp.Before(rs[j].Timestamp)
	})
}

// AuditLog keeps audit entries in memory.
type AuditLog struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) Record(ctx context.Context, entry domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("audit: %v: %w", err, domain.ErrStorage)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (l *AuditLog) Entries() []domain.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.AuditEntry(nil), l.entries...)
}
