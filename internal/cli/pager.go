package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mithrel/medchat/internal/present"
	"github.com/mithrel/medchat/internal/wire"
)

const defaultPager = "less -FRSX"

// outputOptions resolves --output (falling back to config) into presenter
// options.
func outputOptions(app *wire.App, outputMode string, noHeaders bool) (present.Options, error) {
	if strings.TrimSpace(outputMode) == "" {
		outputMode = app.Cfg.GetString("output")
	}
	mode, ok := present.ParseMode(outputMode)
	if !ok {
		return present.Options{}, fmt.Errorf("invalid --output: %s", outputMode)
	}
	return present.Options{
		Mode:    mode,
		Headers: !noHeaders,
		Style:   app.Cfg.GetString("render.style"),
		Width:   app.Cfg.GetInt("render.word_wrap"),
	}, nil
}

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "", "output mode: "+strings.Join(present.Modes, "|")+" (default from config)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return present.Modes, cobra.ShellCompDirectiveNoFileComp
	})
}

// withPager pipes long terminal output through $PAGER. Machine formats and
// non-terminal outputs are written directly.
func withPager(ctx context.Context, out, errOut io.Writer, opts present.Options, write func(io.Writer) error) error {
	if opts.Mode == present.ModeJSON || opts.Mode == present.ModeNDJSON || opts.Mode == present.ModeTUI {
		return write(out)
	}
	outFile, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(outFile.Fd())) {
		return write(out)
	}
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = defaultPager
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", pager)
	cmd.Stdout = outFile
	if errFile, ok := errOut.(*os.File); ok {
		cmd.Stderr = errFile
	} else {
		cmd.Stderr = os.Stderr
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return write(out)
	}
	if err := cmd.Start(); err != nil {
		return write(out)
	}
	writeErr := write(stdin)
	_ = stdin.Close()
	waitErr := cmd.Wait()
	if writeErr != nil {
		return writeErr
	}
	return waitErr
}

// readInput reads a file argument, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(b), nil
}
