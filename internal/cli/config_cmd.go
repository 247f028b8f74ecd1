package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrel/medchat/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(newConfigGenerateCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigTokenCmd())
	return cmd
}

func newConfigGenerateCmd() *cobra.Command {
	var out string
	var overwrite, update bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a default config.toml",
		// Generating must work before any valid config exists.
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if overwrite && update {
				return fmt.Errorf("--overwrite and --update are mutually exclusive")
			}
			if out == "" {
				out = config.DefaultConfigPath()
			}
			mode := config.WriteNew
			switch {
			case overwrite:
				mode = config.WriteOverwrite
			case update:
				mode = config.WriteUpdate
			}
			res, err := config.Generate(out, mode)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !res.Changed {
				_, _ = fmt.Fprintf(w, "Config already up to date: %s\n", res.Path)
				return nil
			}
			_, _ = fmt.Fprintf(w, "Wrote %s\n", res.Path)
			if res.Backup != "" {
				_, _ = fmt.Fprintf(w, "Backup: %s\n", res.Backup)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "path to write (default: the user config path)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing config, keeping a backup")
	cmd.Flags().BoolVar(&update, "update", false, "add missing options to an existing config, keeping a backup")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			w := cmd.OutOrStdout()
			if used := app.Cfg.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(w, "# file: %s\n", used)
			}
			for _, o := range config.GetConfigOptions() {
				val := app.Cfg.Get(o.Key)
				if o.Key == "auth.token" && app.Cfg.GetString(o.Key) != "" {
					val = "(set)"
				}
				_, _ = fmt.Fprintf(w, "%s = %v\n", o.Key, val)
			}
			return nil
		},
	}
}
