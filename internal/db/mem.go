package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mithrel/medchat/pkg/api"
)

type memStore struct {
	mu       sync.RWMutex
	sessions map[string][]storedMessage
	records  map[string]api.ConsultationRecord
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string][]storedMessage),
		records:  make(map[string]api.ConsultationRecord),
	}
}

func (m *memStore) Append(ctx context.Context, msg api.Message) (api.Message, error) {
	if strings.TrimSpace(msg.SessionID) == "" {
		return api.Message{}, ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = api.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	hash := msg.Hash()
	cur := m.sessions[msg.SessionID]
	if msg.Seq == 0 {
		var max int64
		for _, sm := range cur {
			if sm.Seq > max {
				max = sm.Seq
			}
		}
		msg.Seq = max + 1
	} else {
		for _, sm := range cur {
			if sm.Seq != msg.Seq {
				continue
			}
			if sm.hash == hash {
				return sm.Message, nil
			}
			return api.Message{}, ErrConflict
		}
	}
	cur = append(cur, storedMessage{Message: msg, hash: hash})
	sort.SliceStable(cur, func(a, b int) bool { return cur[a].Seq < cur[b].Seq })
	m.sessions[msg.SessionID] = cur
	return msg, nil
}

func (m *memStore) ListSession(ctx context.Context, sessionID string) ([]api.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cur := m.sessions[sessionID]
	if len(cur) == 0 {
		return nil, ErrNotFound
	}
	out := make([]api.Message, len(cur))
	for i, sm := range cur {
		out[i] = sm.Message
	}
	return out, nil
}

func (m *memStore) ListSessions(ctx context.Context, limit int) ([]api.Session, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var msgs []api.Message
	for _, id := range ids {
		for _, sm := range m.sessions[id] {
			msgs = append(msgs, sm.Message)
		}
	}
	m.mu.RUnlock()
	return summarize(msgs, limit), nil
}

func (m *memStore) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.sessions[sessionID]))
	if n == 0 {
		return 0, ErrNotFound
	}
	delete(m.sessions, sessionID)
	return n, nil
}

func (m *memStore) Save(ctx context.Context, r api.ConsultationRecord) (api.ConsultationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = api.NewID()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	m.records[r.ID] = r
	return r, nil
}

func (m *memStore) Get(ctx context.Context, id string) (api.ConsultationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return api.ConsultationRecord{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) List(ctx context.Context, limit int) ([]api.ConsultationRecord, error) {
	m.mu.RLock()
	out := make([]api.ConsultationRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if !out[a].Timestamp.Equal(out[b].Timestamp) {
			return out[a].Timestamp.After(out[b].Timestamp)
		}
		return out[a].ID > out[b].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
