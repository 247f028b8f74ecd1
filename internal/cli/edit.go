package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/medchat/internal/editor"
	"github.com/mithrel/medchat/internal/present"
	"github.com/mithrel/medchat/internal/render"
	"github.com/mithrel/medchat/pkg/api"
)

func newEditCmd() *cobra.Command {
	var sessionID string
	var sender string
	var outputMode string
	var fromFile string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Compose a message in $EDITOR and render it",
		Long: "Compose a message in $EDITOR. When the draft names a session the\n" +
			"message is appended to it; otherwise it is only rendered.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			opts, err := outputOptions(app, outputMode, false)
			if err != nil {
				return err
			}
			d := editor.Draft{SessionID: sessionID, Sender: api.Sender(strings.ToLower(sender))}
			if fromFile != "" {
				b, err := os.ReadFile(fromFile)
				if err != nil {
					return err
				}
				d.Body = string(b)
			}

			name := sessionID
			if name == "" {
				name = "draft-" + time.Now().Format("20060102-150405")
			}
			path, err := editor.PathForDraft(name)
			if err != nil {
				return err
			}
			out, changed, err := editor.OpenAt(path, []byte(editor.ComposeContent(d)))
			if err != nil {
				return err
			}
			got := editor.ParseDraft(string(out))
			if !changed || strings.TrimSpace(got.Body) == "" {
				if app.Cfg.GetBool("editor.delete_empty") {
					_ = os.Remove(path)
				}
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Draft discarded: empty content.")
				return nil
			}

			nodes := render.Render(got.Body)
			if got.SessionID != "" {
				res, err := appendTurn(cmd.Context(), app, api.Message{
					SessionID: got.SessionID,
					Sender:    got.Sender,
					Content:   got.Body,
					CreatedAt: time.Now().UTC(),
				})
				if err != nil {
					// The draft stays on disk so nothing typed is lost.
					return fmt.Errorf("%w (draft kept at %s)", err, path)
				}
				nodes = res.Nodes
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Appended %s#%d", res.Message.SessionID, res.Message.Seq)
				if res.Record != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), " (record %s)", res.Record.ID)
				}
				_, _ = fmt.Fprintln(cmd.ErrOrStderr())
			}
			_ = os.Remove(path)
			return withPager(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, func(w io.Writer) error {
				return present.RenderNodes(cmd.Context(), w, nodes, opts)
			})
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to append the message to")
	cmd.Flags().StringVar(&sender, "sender", string(api.SenderBot), "message sender: bot|user")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "seed the draft body from a file")
	addOutputFlag(cmd, &outputMode)
	_ = cmd.RegisterFlagCompletionFunc("sender", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"bot", "user"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
