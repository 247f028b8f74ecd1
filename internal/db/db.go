package db

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/mithrel/medchat/internal/render"
	"github.com/mithrel/medchat/pkg/api"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a different message already occupies the same
	// session sequence number.
	ErrConflict = errors.New("conflict")
	// ErrNoSession rejects a message without a session id.
	ErrNoSession = errors.New("message has no session id")
)

// MessageRepo persists conversation turns grouped by session.
type MessageRepo interface {
	// Append stores m. A zero Seq is assigned the next sequence number in
	// the session. Appending an identical message at an occupied sequence
	// is a no-op that returns the stored copy.
	Append(ctx context.Context, m api.Message) (api.Message, error)
	ListSession(ctx context.Context, sessionID string) ([]api.Message, error)
	ListSessions(ctx context.Context, limit int) ([]api.Session, error)
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
}

// RecordRepo persists consultation records extracted from assistant turns.
type RecordRepo interface {
	Save(ctx context.Context, r api.ConsultationRecord) (api.ConsultationRecord, error)
	Get(ctx context.Context, id string) (api.ConsultationRecord, error)
	List(ctx context.Context, limit int) ([]api.ConsultationRecord, error)
}

// Store groups the repositories behind one backend.
type Store struct {
	Messages MessageRepo
	Records  RecordRepo

	tx TxRunner
}

// TxRunner runs fn with a transaction bound to ctx when the backend
// supports it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// InTx runs fn atomically across both repositories.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.InTx(ctx, fn)
}

// Open returns a Store for dsn. Supported schemes are sqlite:// (also a bare
// path) and mem://.
func Open(ctx context.Context, dsn string) (*Store, io.Closer, error) {
	switch {
	case strings.HasPrefix(dsn, "mem://"):
		m := newMemStore()
		return &Store{Messages: m, Records: m}, io.NopCloser(nil), nil
	default:
		return openSQLite(ctx, dsn)
	}
}

// sessionPreview is the first line of the first bot message, shortened.
func sessionPreview(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	r := []rune(line)
	if len(r) > 60 {
		return string(r[:59]) + "…"
	}
	return line
}

// isConfirmation reports whether content renders as the booking banner.
func isConfirmation(content string) bool {
	nodes := render.Render(content)
	return len(nodes) == 1 && nodes[0].Kind() == api.KindBanner
}
