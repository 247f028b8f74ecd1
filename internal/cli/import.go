package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/medchat/internal/db"
	"github.com/mithrel/medchat/internal/turn"
	"github.com/mithrel/medchat/internal/wire"
	"github.com/mithrel/medchat/pkg/api"
)

// Browser storage keys used by the web intake app.
const (
	storageChatKey    = "thukhaChatHistory"
	storageHistoryKey = "thukhaConsultationHistory"
)

// webMessage is a chat message as the web app stores it.
type webMessage struct {
	ID       int64      `json:"id"`
	Sender   api.Sender `json:"sender"`
	Content  string     `json:"content"`
	ImageURL string     `json:"imageUrl,omitempty"`
}

type importStats struct {
	Messages int
	Records  int
	Skipped  int
}

func newImportCmd() *cobra.Command {
	var file string
	var sessionID string
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a web app chat session or consultation history (JSON)",
		Long: "Import JSON exported from the web intake app: a message array, a\n" +
			"consultation history array, or a localStorage dump holding either.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				file = args[0]
			}
			if strings.TrimSpace(file) == "" {
				return fmt.Errorf("--file is required")
			}
			app := getApp(cmd)

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			if sessionID == "" {
				sessionID = "import-" + strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}
			st, err := importJSON(cmd, app, bufio.NewReader(f), sessionID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported messages: %d\nImported records: %d\nSkipped: %d\n", st.Messages, st.Records, st.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "input JSON file")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id for imported messages (default from file name)")
	return cmd
}

func importJSON(cmd *cobra.Command, app *wire.App, r *bufio.Reader, sessionID string) (importStats, error) {
	var st importStats
	first, err := peekFirstNonSpace(r)
	if err != nil {
		return st, err
	}
	dec := json.NewDecoder(r)
	switch first {
	case '[':
		var items []json.RawMessage
		if err := dec.Decode(&items); err != nil {
			return st, err
		}
		return st, importItems(cmd, app, items, sessionID, &st)
	case '{':
		var dump map[string]json.RawMessage
		if err := dec.Decode(&dump); err != nil {
			return st, err
		}
		for _, key := range []string{storageChatKey, storageHistoryKey} {
			raw, ok := dump[key]
			if !ok {
				continue
			}
			items, err := storageArray(raw)
			if err != nil {
				return st, fmt.Errorf("%s: %w", key, err)
			}
			if err := importItems(cmd, app, items, sessionID, &st); err != nil {
				return st, err
			}
		}
		return st, nil
	default:
		return st, fmt.Errorf("expected a JSON array or object, got %q", first)
	}
}

// storageArray accepts a value as the browser keeps it (a JSON string) or
// already decoded.
func storageArray(raw json.RawMessage) ([]json.RawMessage, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	var items []json.RawMessage
	err := json.Unmarshal(raw, &items)
	return items, err
}

// importItems detects whether items are chat messages (they carry a sender)
// or history records.
func importItems(cmd *cobra.Command, app *wire.App, items []json.RawMessage, sessionID string, st *importStats) error {
	if len(items) == 0 {
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(items[0], &probe); err != nil {
		return err
	}
	if _, ok := probe["sender"]; ok {
		return importMessages(cmd, app, items, sessionID, st)
	}
	return importRecords(cmd, app, items, st)
}

func importMessages(cmd *cobra.Command, app *wire.App, items []json.RawMessage, sessionID string, st *importStats) error {
	msgs := make([]webMessage, 0, len(items))
	for _, it := range items {
		var m webMessage
		if err := json.Unmarshal(it, &m); err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	sort.SliceStable(msgs, func(a, b int) bool { return msgs[a].ID < msgs[b].ID })

	now := time.Now().UTC()
	for i, m := range msgs {
		created := now
		// Web ids are Date.now() values.
		if m.ID > 1e12 {
			created = time.UnixMilli(m.ID).UTC()
		}
		sender := m.Sender
		if sender != api.SenderUser {
			sender = api.SenderBot
		}
		res, err := appendTurn(cmd.Context(), app, api.Message{
			SessionID: sessionID,
			Seq:       int64(i + 1),
			Sender:    sender,
			Content:   m.Content,
			ImageURL:  m.ImageURL,
			CreatedAt: created,
		})
		if errors.Is(err, db.ErrConflict) {
			st.Skipped++
			continue
		}
		if err != nil {
			return err
		}
		st.Messages++
		if res.Record != nil {
			st.Records++
		}
	}
	return nil
}

func importRecords(cmd *cobra.Command, app *wire.App, items []json.RawMessage, st *importStats) error {
	existing, err := app.Store.Records.List(cmd.Context(), 0)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[recordKey(r)] = true
	}
	now := time.Now().UTC()
	for _, it := range items {
		rec, err := turn.ParseRecord(string(it))
		if err != nil {
			app.Log.Printf("import: skipping record: %v", err)
			st.Skipped++
			continue
		}
		if rec.Timestamp.IsZero() {
			rec.Timestamp = now
		}
		if seen[recordKey(rec)] {
			st.Skipped++
			continue
		}
		if _, err := app.Store.Records.Save(cmd.Context(), rec); err != nil {
			return err
		}
		seen[recordKey(rec)] = true
		st.Records++
	}
	return nil
}

func recordKey(r api.ConsultationRecord) string {
	return r.PatientID + "\x00" + r.Name + "\x00" + r.Timestamp.UTC().Format(time.RFC3339Nano)
}

func peekFirstNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		// put it back for the decoder
		if err := r.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
