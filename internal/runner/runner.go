// Package runner drives every test case of one submitted program through
// the execution service and the verifier.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/testcase"
	"github.com/michaelbrown/playground/internal/verdict"
)

// Mode selects how test cases are scheduled.
type Mode string

const (
	// ModeSequential runs one case at a time, in order. It keeps the
	// request rate against the shared execution quota low.
	ModeSequential Mode = "sequential"
	// ModeParallel submits every case at once and joins them all.
	ModeParallel Mode = "parallel"
)

var (
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrNoTestCases   = errors.New("no test cases to run")
)

// ParseMode validates a mode name. An empty name selects ModeSequential.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSequential:
		return ModeSequential, nil
	case ModeParallel:
		return ModeParallel, nil
	}
	return "", fmt.Errorf("unknown run mode: %s", s)
}

// Runner executes all test cases of a program. A Runner is not reentrant:
// RunAll returns ErrRunInProgress while another run is in flight.
type Runner struct {
	exec   piston.Executor
	mode   Mode
	logger *zap.Logger

	running atomic.Bool

	mu   sync.Mutex
	last *Snapshot

	// OnProgress receives a snapshot before and after every case and once
	// more when the run completes. Calls are never concurrent.
	OnProgress func(Snapshot)
}

// New creates a Runner. A nil logger disables logging.
func New(exec piston.Executor, mode Mode, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = ModeSequential
	}
	return &Runner{exec: exec, mode: mode, logger: logger}
}

// Mode returns the scheduling mode.
func (r *Runner) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SetMode changes the scheduling mode used by the next run.
func (r *Runner) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Last returns the most recent snapshot of the current or previous run.
func (r *Runner) Last() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Snapshot{}, false
	}
	return r.last.clone(), true
}

// RunAll executes every case against code and returns one verdict per
// case, ordered by case index. Per-case failures are recorded as verdicts;
// only whole-run problems are returned as errors.
func (r *Runner) RunAll(ctx context.Context, code string, lang piston.Language, cases []testcase.Case) ([]verdict.Verdict, error) {
	if !lang.Valid() {
		return nil, fmt.Errorf("%w: %q", piston.ErrInvalidLanguage, string(lang))
	}
	if len(cases) == 0 {
		return nil, ErrNoTestCases
	}
	if len(cases) > testcase.MaxCases {
		return nil, testcase.ErrTooManyCases
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	mode := r.Mode()
	s := newSession(uuid.New().String(), mode, len(cases), r.publish)
	log := r.logger.With(zap.String("run_id", s.snap.RunID), zap.String("mode", string(mode)))
	log.Info("run started", zap.String("language", string(lang)), zap.Int("cases", len(cases)))

	switch mode {
	case ModeParallel:
		r.runParallel(ctx, s, code, lang, cases)
	default:
		r.runSequential(ctx, s, code, lang, cases)
	}
	s.finish()

	verdicts := s.verdicts()
	runsTotal.WithLabelValues(string(mode)).Inc()
	for _, v := range verdicts {
		verdictsTotal.WithLabelValues(string(v.Kind)).Inc()
	}
	log.Info("run completed", zap.Int("cases", len(verdicts)))
	return verdicts, nil
}

func (r *Runner) runSequential(ctx context.Context, s *session, code string, lang piston.Language, cases []testcase.Case) {
	for i, tc := range cases {
		s.start(i)
		v := r.runCase(ctx, i, code, lang, tc)
		s.complete(i, v)
	}
}

func (r *Runner) runParallel(ctx context.Context, s *session, code string, lang piston.Language, cases []testcase.Case) {
	s.startAll()
	var g errgroup.Group
	for i, tc := range cases {
		g.Go(func() error {
			v := r.runCase(ctx, i, code, lang, tc)
			s.complete(i, v)
			return nil
		})
	}
	g.Wait()
}

func (r *Runner) runCase(ctx context.Context, i int, code string, lang piston.Language, tc testcase.Case) verdict.Verdict {
	resp, err := r.exec.Execute(ctx, lang, code, tc.Input)
	v := verdict.Verify(piston.Outcome{Response: resp, Err: err}, tc.ExpectedOutput)
	v.CaseIndex = i
	if err != nil {
		r.logger.Warn("case execution failed", zap.Int("case", i), zap.Error(err))
	} else {
		r.logger.Debug("case verified", zap.Int("case", i), zap.String("verdict", string(v.Kind)))
	}
	return v
}

// publish records snap as the latest state and forwards it to OnProgress.
func (r *Runner) publish(snap Snapshot) {
	r.mu.Lock()
	stored := snap.clone()
	r.last = &stored
	r.mu.Unlock()

	if r.OnProgress != nil {
		r.OnProgress(snap)
	}
}
