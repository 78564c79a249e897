package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/present"
	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/share"
	"github.com/michaelbrown/playground/internal/storage"
	"github.com/michaelbrown/playground/internal/storage/sqlite"
	"github.com/michaelbrown/playground/internal/testcase"
)

var (
	casesFlag    string
	langFlag     string
	parallelFlag bool
	shareFlag    bool
	titleFlag    string
	jsonFlag     bool
)

var errCasesFailed = errors.New("not all test cases passed")

var runCmd = &cobra.Command{
	Use:   "run <source-file>",
	Short: "Run a program against a test suite",
	Long: `Run a source file against the test cases of a YAML suite and print a verdict
per case. The exit status is non-zero unless every case passes.

The language is taken from --lang, then the suite's language field, then the
file extension (.py, .cpp, .cc).

Suite format:
  language: python
  cases:
    - input: "1 2"
      expected_output: "3"

Examples:
  playground run sum.py --cases sum.yaml
  playground run main.cpp --cases suite.yaml --parallel --share`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&casesFlag, "cases", "c", "", "YAML test suite (required)")
	runCmd.Flags().StringVarP(&langFlag, "lang", "l", "", "Language (cpp or python)")
	runCmd.Flags().BoolVar(&parallelFlag, "parallel", false, "Run all cases at once instead of one after another")
	runCmd.Flags().BoolVar(&shareFlag, "share", false, "Save a share link for this program and suite")
	runCmd.Flags().StringVar(&titleFlag, "title", "", "Title for the share link")
	runCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print verdicts as JSON")
	runCmd.MarkFlagRequired("cases")
	rootCmd.AddCommand(runCmd)
}

// resolveLanguage picks the first language source that is set.
func resolveLanguage(flag, suite, file string) (piston.Language, error) {
	switch {
	case flag != "":
		return piston.ParseLanguage(flag)
	case suite != "":
		return piston.ParseLanguage(suite)
	}
	if l, ok := piston.LanguageForFile(file); ok {
		return l, nil
	}
	return piston.DefaultLanguage, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	code, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	suite, err := testcase.LoadSuite(casesFlag)
	if err != nil {
		return err
	}
	lang, err := resolveLanguage(langFlag, suite.Language, args[0])
	if err != nil {
		return err
	}

	mode := cfg.RunMode()
	if parallelFlag {
		mode = runner.ModeParallel
	}

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	out := cmd.OutOrStdout()
	color := !jsonFlag && isTerminal(out)
	r := runner.New(newPistonClient(cfg, logger), mode, logger)
	printer := newProgressPrinter(out, color)
	r.OnProgress = func(s runner.Snapshot) {
		if err := publisher.Publish(s); err != nil {
			logger.Warn("publishing progress", zap.Error(err))
		}
		if !jsonFlag {
			printer.update(s)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !jsonFlag {
		fmt.Fprintf(out, "Running %s (%s, %d cases, %s)\n", args[0], lang, len(suite.Cases), mode)
	}
	verdicts, err := r.RunAll(ctx, string(code), lang, suite.Cases)
	if err != nil {
		return err
	}
	view := present.Build(verdicts, -1, len(verdicts))

	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"verdicts": verdicts, "summary": view.Summary}); err != nil {
			return err
		}
	} else {
		present.RenderSummaryText(out, view, color)
	}

	if shareFlag {
		if err := saveShare(ctx, cfg.Storage.DBPath, share.State{
			Code:      string(code),
			Language:  lang,
			TestCases: suite.Cases,
		}, out); err != nil {
			return err
		}
	}

	if view.Summary.Pass != view.Summary.Total {
		return errCasesFailed
	}
	return nil
}

func saveShare(ctx context.Context, dbPath string, st share.State, out io.Writer) error {
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	sh := &storage.Share{ID: uuid.New().String(), Title: titleFlag, State: st}
	if err := store.CreateShare(ctx, sh); err != nil {
		return err
	}
	fmt.Fprintf(out, "Share: %s\nToken: %s\n", shortID(sh.ID), sh.Token)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && readline.IsTerminal(int(f.Fd()))
}

// progressPrinter prints each case once, as soon as it completes.
type progressPrinter struct {
	w       io.Writer
	color   bool
	printed map[int]bool
}

func newProgressPrinter(w io.Writer, color bool) *progressPrinter {
	return &progressPrinter{w: w, color: color, printed: make(map[int]bool)}
}

func (p *progressPrinter) update(s runner.Snapshot) {
	view := present.FromSnapshot(s)
	for _, c := range view.Cases {
		if c.State != present.Completed || p.printed[c.Index] {
			continue
		}
		p.printed[c.Index] = true
		present.RenderCaseText(p.w, c, p.color)
	}
}
