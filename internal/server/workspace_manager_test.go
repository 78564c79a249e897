package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/workspace"
)

// blockingExecutor waits for ctx to be cancelled.
type blockingExecutor struct {
	started chan struct{}
}

func (b *blockingExecutor) Execute(ctx context.Context, lang piston.Language, code, stdin string) (*piston.ExecuteResponse, error) {
	close(b.started)
	<-ctx.Done()
	return nil, &piston.Error{Kind: piston.KindTransport, Err: ctx.Err()}
}

func testManager(exec piston.Executor) *WorkspaceManager {
	return NewWorkspaceManager(func() *workspace.Workspace {
		r := runner.New(exec, runner.ModeSequential, nil)
		return workspace.New(uuid.New().String(), r, workspace.NewBuffer("", ""))
	})
}

func TestWorkspaceManager_CreateGet(t *testing.T) {
	wm := testManager(stdinEcho{})
	defer wm.CloseAll()

	aw := wm.Create()
	if aw == nil || aw.ID == "" {
		t.Fatal("expected a workspace with an id")
	}
	got, ok := wm.Get(aw.ID)
	if !ok || got != aw {
		t.Fatal("expected Get to return the created workspace")
	}
	if wm.Len() != 1 {
		t.Errorf("Len = %d, want 1", wm.Len())
	}
}

func TestWorkspaceManager_Remove(t *testing.T) {
	wm := testManager(stdinEcho{})

	aw := wm.Create()
	if !wm.Remove(aw.ID) {
		t.Fatal("Remove reported a missing workspace")
	}
	if _, ok := wm.Get(aw.ID); ok {
		t.Error("expected workspace to be removed")
	}
	if wm.Remove(aw.ID) {
		t.Error("second Remove should report false")
	}
}

func TestWorkspaceManager_RemoveCancelsRun(t *testing.T) {
	exec := &blockingExecutor{started: make(chan struct{})}
	wm := testManager(exec)
	aw := wm.Create()

	type result struct {
		err  error
		kind string
	}
	done := make(chan result, 1)
	go func() {
		vs, err := aw.Run(context.Background(), nil)
		r := result{err: err}
		if len(vs) == 1 {
			r.kind = string(vs[0].Kind)
		}
		done <- r
	}()

	<-exec.started
	if _, err := aw.Run(context.Background(), nil); !errors.Is(err, runner.ErrRunInProgress) {
		t.Fatalf("concurrent run err = %v, want ErrRunInProgress", err)
	}
	wm.Remove(aw.ID)

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("run err = %v", r.err)
		}
		if r.kind != "network_error" {
			t.Errorf("cancelled case kind = %q, want network_error", r.kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled")
	}
}

func TestWorkspaceManager_CloseAll(t *testing.T) {
	wm := testManager(stdinEcho{})
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, wm.Create().ID)
	}

	wm.CloseAll()

	for _, id := range ids {
		if _, ok := wm.Get(id); ok {
			t.Errorf("expected workspace %s to be cleared", id)
		}
	}
}
