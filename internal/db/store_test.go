package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/medchat/pkg/api"
)

func backends(t *testing.T) map[string]*Store {
	t.Helper()
	ctx := context.Background()

	sq, closer, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	mem, _, err := Open(ctx, "mem://")
	require.NoError(t, err)

	return map[string]*Store{"sqlite": sq, "mem": mem}
}

func TestMessages(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := store.Messages

			first, err := repo.Append(ctx, api.Message{SessionID: "s1", Sender: api.SenderBot, Content: "Hello\nHow are you?", CreatedAt: now})
			require.NoError(t, err)
			assert.Equal(t, int64(1), first.Seq)
			assert.NotEmpty(t, first.ID)

			second, err := repo.Append(ctx, api.Message{SessionID: "s1", Sender: api.SenderUser, Content: "fever", CreatedAt: now.Add(time.Minute)})
			require.NoError(t, err)
			assert.Equal(t, int64(2), second.Seq)

			t.Run("identical append at occupied seq is a no-op", func(t *testing.T) {
				again, err := repo.Append(ctx, api.Message{SessionID: "s1", Seq: 2, Sender: api.SenderUser, Content: "fever"})
				require.NoError(t, err)
				assert.Equal(t, second.ID, again.ID)
			})

			t.Run("different content at occupied seq conflicts", func(t *testing.T) {
				_, err := repo.Append(ctx, api.Message{SessionID: "s1", Seq: 2, Sender: api.SenderUser, Content: "cough"})
				assert.True(t, errors.Is(err, ErrConflict))
			})

			t.Run("missing session conflicts", func(t *testing.T) {
				_, err := repo.Append(ctx, api.Message{Sender: api.SenderUser, Content: "x"})
				assert.True(t, errors.Is(err, ErrConflict))
			})

			msgs, err := repo.ListSession(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, "Hello\nHow are you?", msgs[0].Content)
			assert.Equal(t, api.SenderUser, msgs[1].Sender)
			assert.True(t, msgs[1].CreatedAt.Equal(now.Add(time.Minute)))

			_, err = repo.Append(ctx, api.Message{SessionID: "s2", Sender: api.SenderBot, Content: "✅ **Confirmed** ✅\nBooked.", CreatedAt: now.Add(time.Hour)})
			require.NoError(t, err)

			sessions, err := repo.ListSessions(ctx, 0)
			require.NoError(t, err)
			require.Len(t, sessions, 2)
			assert.Equal(t, "s2", sessions[0].ID)
			assert.True(t, sessions[0].Confirmed)
			assert.Equal(t, "s1", sessions[1].ID)
			assert.Equal(t, 2, sessions[1].Messages)
			assert.Equal(t, "Hello", sessions[1].Preview)
			assert.False(t, sessions[1].Confirmed)

			limited, err := repo.ListSessions(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			n, err := repo.DeleteSession(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
			_, err = repo.ListSession(ctx, "s1")
			assert.True(t, errors.Is(err, ErrNotFound))
			_, err = repo.DeleteSession(ctx, "s1")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestRecords(t *testing.T) {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := store.Records

			older, err := repo.Save(ctx, api.ConsultationRecord{Name: "Ko Ko", Diagnosis: "mild flu", Timestamp: base})
			require.NoError(t, err)
			assert.NotEmpty(t, older.ID)
			newer, err := repo.Save(ctx, api.ConsultationRecord{Name: "Ma Ma", PaymentStatus: api.PaymentPaid, Timestamp: base.Add(time.Hour)})
			require.NoError(t, err)

			got, err := repo.Get(ctx, older.ID)
			require.NoError(t, err)
			assert.Equal(t, "mild flu", got.Diagnosis)
			assert.True(t, got.Timestamp.Equal(base))

			list, err := repo.List(ctx, 10)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, newer.ID, list[0].ID)

			_, err = repo.Get(ctx, "missing")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestInTx(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := store.InTx(ctx, func(ctx context.Context) error {
				m, err := store.Messages.Append(ctx, api.Message{SessionID: "tx", Sender: api.SenderBot, Content: "plan"})
				if err != nil {
					return err
				}
				_, err = store.Records.Save(ctx, api.ConsultationRecord{SessionID: m.SessionID, Name: "Aung"})
				return err
			})
			require.NoError(t, err)

			msgs, err := store.Messages.ListSession(ctx, "tx")
			require.NoError(t, err)
			assert.Len(t, msgs, 1)
			recs, err := store.Records.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "tx", recs[0].SessionID)
		})
	}
}

func TestSQLiteRollback(t *testing.T) {
	ctx := context.Background()
	store, closer, err := Open(ctx, filepath.Join(t.TempDir(), "rb.db"))
	require.NoError(t, err)
	defer closer.Close()

	boom := errors.New("boom")
	err = store.InTx(ctx, func(ctx context.Context) error {
		if _, err := store.Messages.Append(ctx, api.Message{SessionID: "rb", Sender: api.SenderBot, Content: "x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = store.Messages.ListSession(ctx, "rb")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionPreview(t *testing.T) {
	assert.Equal(t, "first", sessionPreview("  first\nsecond"))
	long := "ဖျားခြင်း ဖျားခြင်း ဖျားခြင်း ဖျားခြင်း ဖျားခြင်း ဖျားခြင်း ဖျားခြင်း"
	got := []rune(sessionPreview(long))
	assert.Len(t, got, 60)
	assert.Equal(t, '…', got[59])
}

func TestConcurrentAppend(t *testing.T) {
	const writers = 40
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- store.InTx(ctx, func(ctx context.Context) error {
						_, err := store.Messages.Append(ctx, api.Message{SessionID: "busy", Sender: api.SenderUser, Content: fmt.Sprintf("m%d", i)})
						return err
					})
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			msgs, err := store.Messages.ListSession(ctx, "busy")
			require.NoError(t, err)
			require.Len(t, msgs, writers)
			for i, m := range msgs {
				assert.Equal(t, int64(i+1), m.Seq)
			}
		})
	}
}

func TestRecordsListUnbounded(t *testing.T) {
	const n = 1005
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.InTx(ctx, func(ctx context.Context) error {
				for i := 0; i < n; i++ {
					if _, err := store.Records.Save(ctx, api.ConsultationRecord{Name: fmt.Sprintf("p%d", i), Timestamp: base.Add(time.Duration(i) * time.Minute)}); err != nil {
						return err
					}
				}
				return nil
			}))

			all, err := store.Records.List(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, all, n)
			assert.Equal(t, fmt.Sprintf("p%d", n-1), all[0].Name)

			page, err := store.Records.List(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, page, 10)
		})
	}
}

func TestAppendNeedsSession(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Messages.Append(context.Background(), api.Message{SessionID: "  ", Content: "x"})
			assert.ErrorIs(t, err, ErrNoSession)
			assert.NotErrorIs(t, err, ErrConflict)
		})
	}
}
