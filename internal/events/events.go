// Package events fans run progress out to other processes over NATS.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/michaelbrown/playground/internal/runner"
)

// DefaultSubject is the subject prefix progress is published under.
const DefaultSubject = "playground.runs"

// Publisher receives every snapshot of every run.
type Publisher interface {
	Publish(s runner.Snapshot) error
}

// Nop discards snapshots.
type Nop struct{}

func (Nop) Publish(runner.Snapshot) error { return nil }

// Connect dials a NATS server with reconnect handling.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("playground"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes each snapshot as JSON on <prefix>.<run id>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

func NewNATSPublisher(nc *nats.Conn, prefix string, logger *zap.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger}
}

// Subject returns the subject a run's snapshots are published on.
func (p *NATSPublisher) Subject(runID string) string {
	return p.prefix + "." + runID
}

func (p *NATSPublisher) Publish(s runner.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	subject := p.Subject(s.RunID)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("publish failed", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	p.logger.Debug("published snapshot", zap.String("subject", subject), zap.Bool("done", s.Done))
	return nil
}

// Watch subscribes to the snapshots of every run under prefix. Messages
// that do not decode are logged and dropped.
func Watch(nc *nats.Conn, prefix string, logger *zap.Logger, fn func(runner.Snapshot)) (*nats.Subscription, error) {
	if prefix == "" {
		prefix = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sub, err := nc.Subscribe(prefix+".*", func(msg *nats.Msg) {
		var s runner.Snapshot
		if err := json.Unmarshal(msg.Data, &s); err != nil {
			logger.Warn("dropping malformed snapshot", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		fn(s)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s.*: %w", prefix, err)
	}
	return sub, nil
}
