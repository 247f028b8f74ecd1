package cli

import (
	"context"
	"crypto/tls"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/medchat/internal/present"
	qnet "github.com/mithrel/medchat/internal/quicnet"
)

func newQuicRenderCmd() *cobra.Command {
	var outputMode string
	var asTurn bool
	var insecure bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "quic-render <addr> [file|-]",
		Short: "Render a message on a remote medchat server over QUIC",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			opts, err := outputOptions(app, outputMode, false)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var tlsConf *tls.Config
			if !insecure {
				tlsConf = &tls.Config{}
			}
			c, err := qnet.Dial(ctx, args[0], tlsConf)
			if err != nil {
				return err
			}
			defer c.Close()

			op := qnet.OpRender
			if asTurn {
				op = qnet.OpTurn
			}
			nodes, rtt, err := c.Render(ctx, op, text)
			if err != nil {
				return err
			}
			app.Log.Printf("quic-render: %d nodes in %s", len(nodes), rtt)
			return withPager(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, func(w io.Writer) error {
				return present.RenderNodes(cmd.Context(), w, nodes, opts)
			})
		},
	}
	addOutputFlag(cmd, &outputMode)
	cmd.Flags().BoolVar(&asTurn, "turn", false, "strip the trailing json consultation log before rendering")
	cmd.Flags().BoolVarP(&insecure, "insecure", "k", false, "skip certificate verification (self-signed servers)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "overall request timeout")
	return cmd
}
