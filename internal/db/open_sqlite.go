package db

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mithrel/medchat/pkg/api"
)

type sqliteStore struct{ db *sql.DB }

// InTx begins a transaction, binds it to ctx and commits when fn succeeds.
// A transaction already bound to ctx is reused.
func (s *sqliteStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Append(ctx context.Context, m api.Message) (api.Message, error) {
	if strings.TrimSpace(m.SessionID) == "" {
		return api.Message{}, ErrNoSession
	}
	if m.ID == "" {
		m.ID = api.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	hash := m.Hash()
	err := s.InTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, s.db)
		if m.Seq == 0 {
			if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id=?`, m.SessionID).Scan(&m.Seq); err != nil {
				return err
			}
		} else {
			cur, err := scanMessage(q.QueryRowContext(ctx, `SELECT id, session_id, seq, sender, content, image_url, created_at, hash FROM messages WHERE session_id=? AND seq=?`, m.SessionID, m.Seq))
			switch {
			case err == nil && cur.hash == hash:
				m = cur.Message
				return nil
			case err == nil:
				return ErrConflict
			case err != sql.ErrNoRows:
				return err
			}
		}
		_, err := q.ExecContext(ctx, `INSERT INTO messages(id, session_id, seq, sender, content, image_url, created_at, hash) VALUES(?,?,?,?,?,?,?,?)`,
			m.ID, m.SessionID, m.Seq, string(m.Sender), m.Content, m.ImageURL, m.CreatedAt.UTC(), hash)
		if err != nil && strings.Contains(err.Error(), "UNIQUE") {
			return ErrConflict
		}
		return err
	})
	if err != nil {
		return api.Message{}, err
	}
	return m, nil
}

type storedMessage struct {
	api.Message
	hash string
}

type rowScanner interface{ Scan(dest ...any) error }

func scanMessage(r rowScanner) (storedMessage, error) {
	var (
		sm     storedMessage
		sender string
		img    sql.NullString
	)
	if err := r.Scan(&sm.ID, &sm.SessionID, &sm.Seq, &sender, &sm.Content, &img, &sm.CreatedAt, &sm.hash); err != nil {
		return storedMessage{}, err
	}
	sm.Sender = api.Sender(sender)
	sm.ImageURL = img.String
	return sm, nil
}

func (s *sqliteStore) ListSession(ctx context.Context, sessionID string) ([]api.Message, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx, `SELECT id, session_id, seq, sender, content, image_url, created_at, hash FROM messages WHERE session_id=? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []api.Message
	for rows.Next() {
		sm, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sm.Message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// ListSessions summarises every session, most recently active first.
func (s *sqliteStore) ListSessions(ctx context.Context, limit int) ([]api.Session, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx, `SELECT id, session_id, seq, sender, content, image_url, created_at, hash FROM messages ORDER BY session_id, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []api.Message
	for rows.Next() {
		sm, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, sm.Message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summarize(msgs, limit), nil
}

// summarize folds messages ordered by (session, seq) into session summaries.
func summarize(msgs []api.Message, limit int) []api.Session {
	var out []api.Session
	idx := map[string]int{}
	for _, m := range msgs {
		i, ok := idx[m.SessionID]
		if !ok {
			i = len(out)
			idx[m.SessionID] = i
			out = append(out, api.Session{ID: m.SessionID, FirstAt: m.CreatedAt, LastAt: m.CreatedAt})
		}
		ss := &out[i]
		ss.Messages++
		if m.CreatedAt.Before(ss.FirstAt) {
			ss.FirstAt = m.CreatedAt
		}
		if m.CreatedAt.After(ss.LastAt) {
			ss.LastAt = m.CreatedAt
		}
		if m.Sender == api.SenderBot {
			if ss.Preview == "" {
				ss.Preview = sessionPreview(m.Content)
			}
			if isConfirmation(m.Content) {
				ss.Confirmed = true
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].LastAt.After(out[b].LastAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *sqliteStore) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := conn(ctx, s.db).ExecContext(ctx, `DELETE FROM messages WHERE session_id=?`, sessionID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

const recordColumns = `id, session_id, patient_id, name, age, sex, phone, address, symptoms, vitals, diagnosis, prescription, advice_mm, payment_status, timestamp`

func (s *sqliteStore) Save(ctx context.Context, r api.ConsultationRecord) (api.ConsultationRecord, error) {
	if r.ID == "" {
		r.ID = api.NewID()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	_, err := conn(ctx, s.db).ExecContext(ctx, `INSERT OR REPLACE INTO records(`+recordColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.SessionID, r.PatientID, r.Name, r.Age, r.Sex, r.Phone, r.Address, r.Symptoms, r.Vitals,
		r.Diagnosis, r.Prescription, r.AdviceMM, r.PaymentStatus, r.Timestamp.UTC())
	if err != nil {
		return api.ConsultationRecord{}, err
	}
	return r, nil
}

func scanRecord(sc rowScanner) (api.ConsultationRecord, error) {
	var r api.ConsultationRecord
	err := sc.Scan(&r.ID, &r.SessionID, &r.PatientID, &r.Name, &r.Age, &r.Sex, &r.Phone, &r.Address, &r.Symptoms,
		&r.Vitals, &r.Diagnosis, &r.Prescription, &r.AdviceMM, &r.PaymentStatus, &r.Timestamp)
	return r, err
}

func (s *sqliteStore) Get(ctx context.Context, id string) (api.ConsultationRecord, error) {
	r, err := scanRecord(conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return api.ConsultationRecord{}, ErrNotFound
	}
	return r, err
}

func (s *sqliteStore) List(ctx context.Context, limit int) ([]api.ConsultationRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM records ORDER BY timestamp DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := conn(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []api.ConsultationRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// openSQLite creates the SQLite-backed store and returns it with its closer.
func openSQLite(ctx context.Context, dsn string) (*Store, io.Closer, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	dbh, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, nil, err
	}
	// One connection serialises writers in this process. busy_timeout covers
	// other processes sharing the file.
	dbh.SetMaxOpenConns(1)
	if _, err := dbh.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = dbh.Close()
		return nil, nil, err
	}
	if err := migrate(ctx, dbh); err != nil {
		_ = dbh.Close()
		return nil, nil, err
	}
	s := &sqliteStore{db: dbh}
	return &Store{Messages: s, Records: s, tx: s}, dbh, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  sender TEXT NOT NULL,
  content TEXT NOT NULL,
  image_url TEXT,
  created_at TIMESTAMP NOT NULL,
  hash TEXT NOT NULL,
  UNIQUE(session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq);
CREATE TABLE IF NOT EXISTS records (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL DEFAULT '',
  patient_id TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  age TEXT NOT NULL DEFAULT '',
  sex TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  symptoms TEXT NOT NULL DEFAULT '',
  vitals TEXT NOT NULL DEFAULT '',
  diagnosis TEXT NOT NULL DEFAULT '',
  prescription TEXT NOT NULL DEFAULT '',
  advice_mm TEXT NOT NULL DEFAULT '',
  payment_status TEXT NOT NULL DEFAULT '',
  timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp DESC);
`)
	return err
}
