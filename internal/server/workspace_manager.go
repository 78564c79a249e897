package server

import (
	"context"
	"sync"

	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/verdict"
	"github.com/michaelbrown/playground/internal/workspace"
)

// ActiveWorkspace is a workspace held in memory plus the cancel func of
// its in-flight run, if any.
type ActiveWorkspace struct {
	*workspace.Workspace

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Run executes the workspace and tracks the run so that it can be
// cancelled when the workspace is removed.
func (aw *ActiveWorkspace) Run(ctx context.Context, progress func(runner.Snapshot)) ([]verdict.Verdict, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	aw.mu.Lock()
	if aw.cancel != nil {
		aw.mu.Unlock()
		return nil, runner.ErrRunInProgress
	}
	aw.cancel = cancel
	aw.mu.Unlock()

	defer func() {
		aw.mu.Lock()
		aw.cancel = nil
		aw.mu.Unlock()
	}()
	return aw.Workspace.Run(ctx, progress)
}

// Cancel aborts the in-flight run, if any.
func (aw *ActiveWorkspace) Cancel() {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	if aw.cancel != nil {
		aw.cancel()
	}
}

// WorkspaceManager tracks the workspaces held in memory.
type WorkspaceManager struct {
	mu         sync.RWMutex
	workspaces map[string]*ActiveWorkspace
	factory    func() *workspace.Workspace
}

// NewWorkspaceManager creates a manager that builds workspaces with factory.
func NewWorkspaceManager(factory func() *workspace.Workspace) *WorkspaceManager {
	return &WorkspaceManager{
		workspaces: make(map[string]*ActiveWorkspace),
		factory:    factory,
	}
}

// Create builds and registers a new workspace.
func (wm *WorkspaceManager) Create() *ActiveWorkspace {
	aw := &ActiveWorkspace{Workspace: wm.factory()}
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.workspaces[aw.ID] = aw
	return aw
}

// Get returns a workspace if it exists.
func (wm *WorkspaceManager) Get(id string) (*ActiveWorkspace, bool) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	aw, ok := wm.workspaces[id]
	return aw, ok
}

// Len returns the number of workspaces.
func (wm *WorkspaceManager) Len() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return len(wm.workspaces)
}

// Remove removes a workspace and cancels any in-flight run. It reports
// whether the workspace existed.
func (wm *WorkspaceManager) Remove(id string) bool {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	aw, ok := wm.workspaces[id]
	if !ok {
		return false
	}
	aw.Cancel()
	delete(wm.workspaces, id)
	return true
}

// CloseAll cancels all runs and forgets every workspace.
func (wm *WorkspaceManager) CloseAll() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	for id, aw := range wm.workspaces {
		aw.Cancel()
		delete(wm.workspaces, id)
	}
}
