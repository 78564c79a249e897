package events

import (
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap/zaptest"

	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/verdict"
)

func runServer(t *testing.T) *natsserver.Server {
	t.Helper()
	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("starting nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestPublishAndWatch(t *testing.T) {
	ns := runServer(t)
	logger := zaptest.NewLogger(t)

	nc, err := Connect(ns.ClientURL(), logger)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer nc.Close()

	got := make(chan runner.Snapshot, 4)
	sub, err := Watch(nc, "test.runs", logger, func(s runner.Snapshot) { got <- s })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer sub.Unsubscribe()

	// garbage on the same subject tree is dropped
	if err := nc.Publish("test.runs.junk", []byte("{")); err != nil {
		t.Fatal(err)
	}

	pub := NewNATSPublisher(nc, "test.runs", logger)
	if pub.Subject("abc") != "test.runs.abc" {
		t.Fatalf("Subject = %s", pub.Subject("abc"))
	}
	snap := runner.Snapshot{
		RunID:   "abc",
		Mode:    runner.ModeSequential,
		Total:   1,
		Running: -1,
		Results: []*verdict.Verdict{{Kind: verdict.Pass, Stdout: "ok"}},
		Done:    true,
	}
	if err := pub.Publish(snap); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-got:
		if s.RunID != "abc" || !s.Done || len(s.Results) != 1 || s.Results[0].Stdout != "ok" {
			t.Fatalf("received %+v", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot not received")
	}
	select {
	case s := <-got:
		t.Fatalf("unexpected extra snapshot %+v", s)
	default:
	}
}

func TestPublishAfterClose(t *testing.T) {
	ns := runServer(t)
	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	pub := NewNATSPublisher(nc, "", nil)
	nc.Close()
	if err := pub.Publish(runner.Snapshot{RunID: "x"}); err == nil {
		t.Fatal("Publish on a closed connection succeeded")
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(runner.Snapshot{}); err != nil {
		t.Fatal(err)
	}
}
