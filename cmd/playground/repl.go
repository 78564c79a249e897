package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelbrown/playground/internal/config"
	"github.com/michaelbrown/playground/internal/events"
	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/present"
	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/share"
	"github.com/michaelbrown/playground/internal/storage"
	"github.com/michaelbrown/playground/internal/storage/sqlite"
	"github.com/michaelbrown/playground/internal/testcase"
	"github.com/michaelbrown/playground/internal/workspace"
)

const prompt = "\033[36mplayground>\033[0m "

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive workspace",
	Long: `Start an interactive workspace: pick a language, load or type a program,
edit up to six test cases and run them. Type /help for commands.

Examples:
  playground repl
  playground repl --parallel`,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().BoolVar(&parallelFlag, "parallel", false, "Run all cases at once instead of one after another")
	rootCmd.AddCommand(replCmd)
}

type replSession struct {
	cfg       *config.Config
	logger    *zap.Logger
	publisher events.Publisher
	ws        *workspace.Workspace
	rl        *readline.Instance
	out       io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	mode := cfg.RunMode()
	if parallelFlag {
		mode = runner.ModeParallel
	}
	r := runner.New(newPistonClient(cfg, logger), mode, logger)
	ws := workspace.New(uuid.New().String(), r, workspace.NewBuffer(piston.DefaultLanguage, ""))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), "playground_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	s := &replSession{cfg: cfg, logger: logger, publisher: publisher, ws: ws, rl: rl, out: rl.Stdout()}

	fmt.Fprintf(s.out, "Playground - interactive workspace\n")
	fmt.Fprintf(s.out, "Language: %s | Mode: %s | Cases: %d\n", ws.Language(), mode, ws.Cases().Len())
	fmt.Fprintf(s.out, "Type /help for commands, /quit to exit\n\n")

	// Ctrl+C cancels the active run, not the whole app.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			s.mu.Lock()
			if s.cancel != nil {
				s.cancel()
			}
			s.mu.Unlock()
		}
	}()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Fprintln(s.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !strings.HasPrefix(input, "/") {
			fmt.Fprintln(s.out, "Commands start with / (try /help)")
			continue
		}
		if quit := s.handleCommand(input); quit {
			return nil
		}
	}
}

// handleCommand runs one slash command and reports whether to exit.
func (s *replSession) handleCommand(input string) bool {
	fields := strings.Fields(input)
	arg := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	var err error
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		fmt.Fprintln(s.out, "Goodbye!")
		return true
	case "/lang":
		err = s.cmdLang(arg)
	case "/load":
		err = s.cmdLoad(arg)
	case "/code":
		err = s.cmdCode(arg)
	case "/add":
		err = s.cmdAdd()
	case "/set":
		err = s.cmdSet(arg)
	case "/rm":
		err = s.cmdRemove(arg)
	case "/cases":
		s.printCases()
	case "/mode":
		err = s.cmdMode(arg)
	case "/run":
		err = s.cmdRun()
	case "/share":
		err = s.cmdShare(arg)
	case "/open":
		err = s.cmdOpen(arg)
	case "/help":
		s.printHelp()
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (try /help)\n", fields[0])
	}

	if err != nil {
		fmt.Fprintf(s.out, "\033[31merror: %s\033[0m\n", err)
	}
	fmt.Fprintln(s.out)
	return false
}

func (s *replSession) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  /lang [cpp|python]   - Show or switch language (loads the starter template)")
	fmt.Fprintln(s.out, "  /load <file>         - Load source from a file")
	fmt.Fprintln(s.out, "  /code [edit]         - Show the program, or type a new one")
	fmt.Fprintln(s.out, "  /add                 - Add a test case")
	fmt.Fprintln(s.out, "  /set <n>             - Replace test case n")
	fmt.Fprintln(s.out, "  /rm <n>              - Remove test case n")
	fmt.Fprintln(s.out, "  /cases               - List test cases")
	fmt.Fprintln(s.out, "  /mode [sequential|parallel] - Show or switch run mode")
	fmt.Fprintln(s.out, "  /run                 - Run all test cases")
	fmt.Fprintln(s.out, "  /share [title]       - Save a share link")
	fmt.Fprintln(s.out, "  /open <id|token>     - Open a saved share or a share token")
	fmt.Fprintln(s.out, "  /quit                - Exit")
}

func (s *replSession) cmdLang(arg string) error {
	if arg == "" {
		fmt.Fprintf(s.out, "Language: %s\n", s.ws.Language())
		return nil
	}
	if err := s.ws.SetLanguage(arg); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Switched to %s; editor reset to the starter template.\n", s.ws.Language())
	return nil
}

func (s *replSession) cmdLoad(path string) error {
	if path == "" {
		return errors.New("usage: /load <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if l, ok := piston.LanguageForFile(path); ok && l != s.ws.Language() {
		if err := s.ws.SetLanguage(string(l)); err != nil {
			return err
		}
	}
	if err := s.ws.SetCode(string(data)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Loaded %s (%s, %d lines)\n", path, s.ws.Language(), strings.Count(string(data), "\n")+1)
	return nil
}

func (s *replSession) cmdCode(arg string) error {
	if arg != "edit" {
		fmt.Fprintf(s.out, "\033[90m%s\033[0m\n", s.ws.Code())
		return nil
	}
	code, err := s.readBlock("Enter the program")
	if err != nil {
		return err
	}
	return s.ws.SetCode(code)
}

// readBlock reads lines until a line containing only ".".
func (s *replSession) readBlock(title string) (string, error) {
	fmt.Fprintf(s.out, "%s (end with a line containing only \".\"):\n", title)
	s.rl.SetPrompt("... ")
	defer s.rl.SetPrompt(prompt)

	var lines []string
	for {
		line, err := s.rl.Readline()
		if err != nil {
			return "", err
		}
		if line == "." {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
}

func (s *replSession) readCase() (testcase.Case, error) {
	input, err := s.readBlock("Input")
	if err != nil {
		return testcase.Case{}, err
	}
	expected, err := s.readBlock("Expected output")
	if err != nil {
		return testcase.Case{}, err
	}
	return testcase.Case{Input: input, ExpectedOutput: expected}, nil
}

func (s *replSession) cmdAdd() error {
	if s.ws.Cases().Len() >= testcase.MaxCases {
		return testcase.ErrTooManyCases
	}
	c, err := s.readCase()
	if err != nil {
		return err
	}
	i, err := s.ws.Cases().Add(c)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added test %d\n", i+1)
	return nil
}

// caseArg parses a 1-based case number.
func caseArg(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("expected a test number, got %q", arg)
	}
	return n - 1, nil
}

func (s *replSession) cmdSet(arg string) error {
	i, err := caseArg(arg)
	if err != nil {
		return err
	}
	if _, err := s.ws.Cases().Get(i); err != nil {
		return err
	}
	c, err := s.readCase()
	if err != nil {
		return err
	}
	return s.ws.Cases().Update(i, c)
}

func (s *replSession) cmdRemove(arg string) error {
	i, err := caseArg(arg)
	if err != nil {
		return err
	}
	if err := s.ws.Cases().Remove(i); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Removed test %d; %d left\n", i+1, s.ws.Cases().Len())
	return nil
}

func (s *replSession) printCases() {
	for i, c := range s.ws.Cases().Cases() {
		fmt.Fprintf(s.out, "Test %d\n", i+1)
		fmt.Fprintf(s.out, "  input:    %s\n", oneLine(c.Input))
		fmt.Fprintf(s.out, "  expected: %s\n", oneLine(c.ExpectedOutput))
	}
}

func oneLine(s string) string {
	if s == "" {
		return "(empty)"
	}
	return truncate(strings.ReplaceAll(s, "\n", "⏎"), 60)
}

func (s *replSession) cmdMode(arg string) error {
	if arg == "" {
		fmt.Fprintf(s.out, "Mode: %s\n", s.ws.Runner().Mode())
		return nil
	}
	m, err := runner.ParseMode(arg)
	if err != nil {
		return err
	}
	s.ws.Runner().SetMode(m)
	fmt.Fprintf(s.out, "Mode: %s\n", m)
	return nil
}

func (s *replSession) cmdRun() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	printer := newProgressPrinter(s.out, true)
	verdicts, err := s.ws.Run(ctx, func(snap runner.Snapshot) {
		if err := s.publisher.Publish(snap); err != nil {
			s.logger.Warn("publishing progress", zap.Error(err))
		}
		printer.update(snap)
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		fmt.Fprintln(s.out, "(interrupted)")
	}
	return present.RenderSummaryText(s.out, present.Build(verdicts, -1, len(verdicts)), true)
}

func (s *replSession) openStore() (storage.Store, error) {
	return sqlite.Open(s.cfg.Storage.DBPath)
}

func (s *replSession) cmdShare(title string) error {
	store, err := s.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sh := &storage.Share{ID: uuid.New().String(), Title: title, State: s.ws.State()}
	if err := store.CreateShare(context.Background(), sh); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Share: %s\nToken: %s\n", shortID(sh.ID), sh.Token)
	return nil
}

func (s *replSession) cmdOpen(ref string) error {
	if ref == "" {
		return errors.New("usage: /open <share-id|token>")
	}

	st, err := s.lookupShare(ref)
	if err != nil {
		return err
	}
	if err := s.ws.Restore(*st); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Opened %s program with %d test cases\n", st.Language, len(st.TestCases))
	return nil
}

// lookupShare resolves a saved share id first and falls back to decoding
// ref as a token.
func (s *replSession) lookupShare(ref string) (*share.State, error) {
	store, err := s.openStore()
	if err == nil {
		defer store.Close()
		sh, err := store.GetShare(context.Background(), ref)
		if err == nil {
			return &sh.State, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	return share.Decode(ref)
}
