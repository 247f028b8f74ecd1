package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mithrel/medchat/internal/present"
	"github.com/mithrel/medchat/internal/util"
	"github.com/mithrel/medchat/internal/wire"
	"github.com/mithrel/medchat/pkg/api"
)

// FilterOpts bounds listings by session activity.
type FilterOpts struct {
	Since string
	Until string
}

func addFilterFlags(cmd *cobra.Command, f *FilterOpts) {
	cmd.Flags().StringVar(&f.Since, "since", "", "only sessions active since (e.g. 2h, 3d, 2w, 1mo, 2025-01-02)")
	cmd.Flags().StringVar(&f.Until, "until", "", "only sessions active until (same formats as --since)")
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "Browse stored intake sessions and consultation records",
	}
	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistorySearchCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistoryRecordsCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var filters FilterOpts
	var outputMode string
	var noHeaders bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			opts, err := outputOptions(app, outputMode, noHeaders)
			if err != nil {
				return err
			}
			sessions, err := listSessions(cmd.Context(), app, filters, limit)
			if err != nil {
				return err
			}
			return renderSessions(cmd, app, sessions, opts)
		},
	}
	addFilterFlags(cmd, &filters)
	addOutputFlag(cmd, &outputMode)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum sessions (0 uses history.page_size)")
	cmd.Flags().BoolVar(&noHeaders, "noheaders", false, "hide column headers (plain/tui)")
	return cmd
}

func listSessions(ctx context.Context, app *wire.App, filters FilterOpts, limit int) ([]api.Session, error) {
	since, until, err := util.ParseTimeRange(filters.Since, filters.Until, time.Now())
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = app.Cfg.GetInt("history.page_size")
	}
	bounded := !since.IsZero() || !until.IsZero()
	fetch := limit
	if bounded {
		fetch = 0
	}
	all, err := app.Store.Messages.ListSessions(ctx, fetch)
	if err != nil {
		return nil, err
	}
	if !bounded {
		return all, nil
	}
	out := make([]api.Session, 0, len(all))
	for _, s := range all {
		if util.InRange(s.LastAt, since, until) {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func renderSessions(cmd *cobra.Command, app *wire.App, sessions []api.Session, opts present.Options) error {
	if opts.Mode == present.ModeTUI {
		src := &storeSource{app: app, opts: opts}
		return present.RenderSessions(cmd.Context(), cmd.OutOrStdout(), sessions, src, opts)
	}
	return withPager(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, func(w io.Writer) error {
		return present.RenderSessions(cmd.Context(), w, sessions, nil, opts)
	})
}

func newHistoryShowCmd() *cobra.Command {
	var outputMode string
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			opts, err := outputOptions(app, outputMode, false)
			if err != nil {
				return err
			}
			msgs, err := app.Store.Messages.ListSession(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("session %s: %w", args[0], err)
			}
			return withPager(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, func(w io.Writer) error {
				return present.RenderTranscript(cmd.Context(), w, msgs, opts)
			})
		},
	}
	addOutputFlag(cmd, &outputMode)
	return cmd
}

func newHistorySearchCmd() *cobra.Command {
	var outputMode string
	var noHeaders bool
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search sessions by id, preview and patient details",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			opts, err := outputOptions(app, outputMode, noHeaders)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = app.Cfg.GetInt("history.page_size")
			}
			found, err := searchSessions(cmd.Context(), app, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return renderSessions(cmd, app, found, opts)
		},
	}
	addOutputFlag(cmd, &outputMode)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (0 uses history.page_size)")
	cmd.Flags().BoolVar(&noHeaders, "noheaders", false, "hide column headers (plain/tui)")
	return cmd
}

// searchSessions ranks every session against query. Each candidate joins the
// session id, its preview and the patient fields of its records.
func searchSessions(ctx context.Context, app *wire.App, query string, limit int) ([]api.Session, error) {
	sessions, err := app.Store.Messages.ListSessions(ctx, 0)
	if err != nil {
		return nil, err
	}
	recs, err := app.Store.Records.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	extra := map[string][]string{}
	for _, r := range recs {
		if r.SessionID == "" {
			continue
		}
		extra[r.SessionID] = append(extra[r.SessionID], r.Name, r.PatientID, r.Symptoms, r.Diagnosis)
	}
	candidates := make([]string, len(sessions))
	for i, s := range sessions {
		parts := append([]string{s.ID, s.Preview}, extra[s.ID]...)
		candidates[i] = strings.ToLower(strings.Join(parts, " "))
	}
	idx := util.FuzzyRank(strings.ToLower(strings.TrimSpace(query)), candidates, limit)
	out := make([]api.Session, 0, len(idx))
	for _, i := range idx {
		out = append(out, sessions[i])
	}
	return out, nil
}

func newHistoryDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <session-id>...",
		Short: "Delete sessions and their messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			if len(args) > 1 {
				if err := confirmDelete(fmt.Sprintf("Delete %d sessions?", len(args)), "This permanently deletes their messages. Records are kept.", yes); err != nil {
					return err
				}
			}
			var errs []error
			for _, id := range args {
				n, err := app.Store.Messages.DeleteSession(cmd.Context(), id)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%d messages)\n", id, n)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt for bulk deletes")
	return cmd
}

func confirmDelete(title, desc string, yes bool) error {
	if yes {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("confirmation required; rerun with --yes")
	}
	confirm := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(desc).
				Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("aborted")
	}
	return nil
}

func newHistoryRecordsCmd() *cobra.Command {
	var outputMode string
	var noHeaders bool
	var limit int
	cmd := &cobra.Command{
		Use:   "records [record-id]",
		Short: "List consultation records, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			opts, err := outputOptions(app, outputMode, noHeaders)
			if err != nil {
				return err
			}
			if opts.Mode == present.ModeTUI {
				opts.Mode = present.ModePlain
			}
			if len(args) == 1 {
				rec, err := app.Store.Records.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("record %s: %w", args[0], err)
				}
				return present.RenderRecord(cmd.Context(), cmd.OutOrStdout(), rec, opts)
			}
			if limit <= 0 {
				limit = app.Cfg.GetInt("history.page_size")
			}
			recs, err := app.Store.Records.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return withPager(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, func(w io.Writer) error {
				return present.RenderRecords(cmd.Context(), w, recs, opts)
			})
		},
	}
	addOutputFlag(cmd, &outputMode)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum records (0 uses history.page_size)")
	cmd.Flags().BoolVar(&noHeaders, "noheaders", false, "hide column headers")
	return cmd
}

// storeSource serves the session browser from the local store.
type storeSource struct {
	app  *wire.App
	opts present.Options
}

func (s *storeSource) Transcript(ctx context.Context, sessionID string) (string, error) {
	msgs, err := s.app.Store.Messages.ListSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	opts := s.opts
	opts.Mode = present.ModePretty
	return present.TranscriptText(present.Transcript(msgs), opts)
}

func (s *storeSource) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.app.Store.Messages.DeleteSession(ctx, sessionID)
	return err
}
