// Package workspace ties together one editing session: the source in the
// editor, the selected language, the test cases and the runner.
package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/share"
	"github.com/michaelbrown/playground/internal/testcase"
	"github.com/michaelbrown/playground/internal/verdict"
)

var ErrNoEditor = errors.New("no editor attached")

// Workspace is one user's playground. All methods are safe for concurrent
// use; at most one run is in flight at a time.
type Workspace struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	editor   Editor
	language piston.Language

	cases  *testcase.Store
	runner *runner.Runner
	runMu  sync.Mutex
}

// New creates a workspace in the default language. A non-nil editor is
// loaded with that language's template.
func New(id string, r *runner.Runner, ed Editor) *Workspace {
	cases, _ := testcase.NewStore()
	w := &Workspace{
		ID:        id,
		CreatedAt: time.Now(),
		editor:    ed,
		language:  piston.DefaultLanguage,
		cases:     cases,
		runner:    r,
	}
	if ed != nil {
		ed.SetLanguageMode(w.language)
		ed.SetCode(w.language, piston.Template(w.language))
	}
	return w
}

// AttachEditor replaces the editor. Passing nil detaches it.
func (w *Workspace) AttachEditor(ed Editor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.editor = ed
	if ed != nil {
		ed.SetLanguageMode(w.language)
	}
}

func (w *Workspace) Language() piston.Language {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.language
}

// SetLanguage switches language and loads its starter template into the
// editor, discarding the current code.
func (w *Workspace) SetLanguage(name string) error {
	lang, err := piston.ParseLanguage(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.language = lang
	if w.editor != nil {
		w.editor.SetLanguageMode(lang)
		w.editor.SetCode(lang, piston.Template(lang))
	}
	return nil
}

// Code returns the editor contents, or "" without an editor.
func (w *Workspace) Code() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.editor == nil {
		return ""
	}
	return w.editor.Code()
}

func (w *Workspace) SetCode(code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.editor == nil {
		return ErrNoEditor
	}
	w.editor.SetCode(w.language, code)
	return nil
}

func (w *Workspace) Cases() *testcase.Store { return w.cases }

func (w *Workspace) Runner() *runner.Runner { return w.runner }

// Running reports whether a run is in flight.
func (w *Workspace) Running() bool {
	return w.runner.Running()
}

// Run executes the editor contents against every test case. progress, if
// non-nil, receives the run's snapshots.
func (w *Workspace) Run(ctx context.Context, progress func(runner.Snapshot)) ([]verdict.Verdict, error) {
	w.mu.RLock()
	ed, lang := w.editor, w.language
	w.mu.RUnlock()
	if ed == nil {
		return nil, ErrNoEditor
	}

	if !w.runMu.TryLock() {
		return nil, runner.ErrRunInProgress
	}
	defer w.runMu.Unlock()

	w.runner.OnProgress = progress
	defer func() { w.runner.OnProgress = nil }()

	return w.runner.RunAll(ctx, ed.Code(), lang, w.cases.Cases())
}

// State captures the shareable part of the workspace.
func (w *Workspace) State() share.State {
	return share.State{
		Code:      w.Code(),
		Language:  w.Language(),
		TestCases: w.cases.Cases(),
	}
}

// Restore loads a shared state. The state is validated before anything
// changes.
func (w *Workspace) Restore(s share.State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := w.cases.Replace(s.TestCases); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.language = s.Language
	if w.editor != nil {
		w.editor.SetLanguageMode(s.Language)
		w.editor.SetCode(s.Language, s.Code)
	}
	return nil
}
