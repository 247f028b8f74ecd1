package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mithrel/medchat/internal/config"
	"github.com/mithrel/medchat/internal/wire"
)

type ctxKey string

const appKey ctxKey = "app"

// Execute builds the root command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the Cobra root command and wires dependencies.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "medchat",
		Short:         "Render assistant turns and manage intake transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if cfgPath != "" {
				v.SetConfigFile(cfgPath)
			}
			if err := config.Load(cmd.Context(), v); err != nil {
				return err
			}
			app, err := wire.BuildApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app, ok := cmd.Context().Value(appKey).(*wire.App); ok {
				return app.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (yaml|toml)")

	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newQuicRenderCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCompletionCmd())

	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Help() }

	return cmd
}

func getApp(cmd *cobra.Command) *wire.App {
	v := cmd.Context().Value(appKey)
	if v == nil {
		fmt.Fprintln(os.Stderr, "internal error: app not initialized")
		os.Exit(1)
	}
	return v.(*wire.App)
}
