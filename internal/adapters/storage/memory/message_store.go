package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// MessageStore keeps the chat timeline in process memory only; it is never
// written to disk.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.SessionID][]*domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.SessionID][]*domain.Message),
	}
}

func (s *MessageStore) AppendMessage(msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

func (s *MessageStore) GetMessagesBySession(sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return slices.Clone(msgs), nil
}

// DeleteMessagesBefore drops every message created at or before cutoff.
func (s *MessageStore) DeleteMessagesBefore(_ context.Context, cutoff time.Time) (int, error) {
	return s.deleteWhere(func(m *domain.Message) bool { return !m.CreatedAt.After(cutoff) }), nil
}

// DeleteMessagesByHash drops the messages written under sessionHash.
func (s *MessageStore) DeleteMessagesByHash(_ context.Context, sessionHash string) (int, error) {
	if sessionHash == "" {
		return 0, nil
	}
	return s.deleteWhere(func(m *domain.Message) bool { return m.SessionHash == sessionHash }), nil
}

func (s *MessageStore) deleteWhere(match func(*domain.Message) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, msgs := range s.messages {
		kept := slices.DeleteFunc(slices.Clone(msgs), match)
		n += len(msgs) - len(kept)
		if len(kept) == 0 {
			delete(s.messages, id)
		} else {
			s.messages[id] = kept
		}
	}
	return n
}
