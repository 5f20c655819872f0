package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the event kind to form a NATS subject.
const DefaultSubjectPrefix = "guido.events"

// natsConn is the subset of *nats.Conn the forwarder uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSForwarder republishes bus events to a NATS server so that fleet tooling
// can observe every robot. Delivery is best effort.
type NATSForwarder struct {
	conn   natsConn
	prefix string
	logger *slog.Logger
}

// DialNATS connects to url and returns a forwarder publishing under prefix.
func DialNATS(url, prefix string, logger *slog.Logger) (*NATSForwarder, error) {
	nc, err := nats.Connect(url,
		nats.Name("guido"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect to NATS: %w", err)
	}
	return newNATSForwarder(nc, prefix, logger), nil
}

func newNATSForwarder(conn natsConn, prefix string, logger *slog.Logger) *NATSForwarder {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSForwarder{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger.With("component", "events.nats"),
	}
}

// Subject returns the NATS subject for an event kind.
func (f *NATSForwarder) Subject(kind Kind) string {
	return f.prefix + "." + string(kind)
}

// Publish sends a single event to NATS.
func (f *NATSForwarder) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", e.Kind, err)
	}
	if err := f.conn.Publish(f.Subject(e.Kind), data); err != nil {
		return fmt.Errorf("events: nats publish %s: %w", e.Kind, err)
	}
	return nil
}

// Run forwards events from the bus until ctx is cancelled, then drains the connection.
func (f *NATSForwarder) Run(ctx context.Context, bus *Bus) error {
	sub, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	return f.Consume(ctx, sub)
}

// Consume forwards events from sub until it closes, then drains the connection.
func (f *NATSForwarder) Consume(ctx context.Context, sub <-chan Event) error {
	defer func() {
		if err := f.conn.Drain(); err != nil {
			f.logger.Warn("nats drain failed", "error", err)
		}
	}()

	for e := range sub {
		if err := f.Publish(ctx, e); err != nil {
			f.logger.Warn("forward failed", "kind", e.Kind, "error", err)
		}
	}
	return nil
}

var _ Publisher = (*NATSForwarder)(nil)
