package cli

import (
	"context"
	"fmt"

	"github.com/mithrel/medchat/internal/present"
	"github.com/mithrel/medchat/internal/turn"
	"github.com/mithrel/medchat/internal/wire"
	"github.com/mithrel/medchat/pkg/api"
)

// appended is one stored message and, for bot turns, its decoded record.
type appended struct {
	Message api.Message
	Nodes   []api.Node
	Record  *api.ConsultationRecord
}

// appendTurn stores msg in its session. Bot turns lose their json payload
// and any decodable record is saved in the same transaction.
func appendTurn(ctx context.Context, app *wire.App, msg api.Message) (appended, error) {
	var res turn.Result
	if msg.Sender == api.SenderBot {
		res = turn.Process(msg.Content, msg.CreatedAt)
		msg.Content = res.Text
		if res.RecordErr != nil {
			app.Log.Printf("turn: session=%s: %v", msg.SessionID, res.RecordErr)
		}
	} else {
		res.Nodes = present.Transcript([]api.Message{msg})[0].Nodes
	}

	out := appended{Nodes: res.Nodes}
	err := app.Store.InTx(ctx, func(ctx context.Context) error {
		stored, err := app.Store.Messages.Append(ctx, msg)
		if err != nil {
			return fmt.Errorf("append %s#%d: %w", msg.SessionID, msg.Seq, err)
		}
		out.Message = stored
		if res.Record == nil {
			return nil
		}
		rec := *res.Record
		rec.SessionID = msg.SessionID
		saved, err := app.Store.Records.Save(ctx, rec)
		if err != nil {
			return fmt.Errorf("save record: %w", err)
		}
		out.Record = &saved
		return nil
	})
	return out, err
}
