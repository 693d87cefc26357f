package trace

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/hupe1980/launchmesh/core"
)

// DefaultSubject is the subject prefix used by NATSSink.
const DefaultSubject = "launchmesh.trace"

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes every attempt as JSON to "<subject>.<stage_id>".
type NATSSink struct {
	pub     Publisher
	subject string
}

// NewNATSSink creates a NATSSink. An empty subject selects DefaultSubject.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}

	return &NATSSink{pub: pub, subject: subject}
}

// ConnectNATS dials url with reconnect settings suitable for a long-lived
// trace publisher.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return nc, nil
}

// Record implements Sink.
// NATS Publish does not take a context, so cancellation is checked up front.
func (s *NATSSink) Record(ctx context.Context, a core.StageAttempt) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	subject := s.subject + "." + string(a.StageID)
	if err := s.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return nil
}
