package cli

import (
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/medchat/internal/present"
	"github.com/mithrel/medchat/internal/render"
	"github.com/mithrel/medchat/internal/turn"
)

func newRenderCmd() *cobra.Command {
	var outputMode string
	var asTurn bool
	var showRecord bool
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render an assistant message",
		Long: "Render an assistant message read from a file or stdin.\n" +
			"With --turn the trailing ```json consultation log is stripped first.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			applyConfigFlagOverrides(cmd, app.Cfg, map[string]string{"style": "render.style", "width": "render.word_wrap"})
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			opts, err := outputOptions(app, outputMode, false)
			if err != nil {
				return err
			}
			if len(args) > 0 && args[0] != "-" {
				opts.Title = args[0]
			}

			nodes := render.Render(text)
			if asTurn || showRecord {
				res := turn.Process(text, time.Now())
				if res.RecordErr != nil {
					app.Log.Printf("render: %v", res.RecordErr)
				}
				if showRecord {
					if res.Record == nil {
						return errors.New("no consultation log in input")
					}
					return present.RenderRecord(cmd.Context(), cmd.OutOrStdout(), *res.Record, opts)
				}
				nodes = res.Nodes
			}
			return withPager(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, func(w io.Writer) error {
				return present.RenderNodes(cmd.Context(), w, nodes, opts)
			})
		},
	}
	addOutputFlag(cmd, &outputMode)
	cmd.Flags().BoolVar(&asTurn, "turn", false, "strip the trailing json consultation log before rendering")
	cmd.Flags().BoolVar(&showRecord, "record", false, "print the decoded consultation log instead of the message")
	cmd.Flags().String("style", "", "glamour style for pretty output")
	cmd.Flags().Int("width", 0, "wrap width for pretty output")
	return cmd
}
