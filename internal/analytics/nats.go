package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher hands clicks to whichever instance of the queue group picks them up.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     *zap.Logger
}

// NewNATSPublisher creates a publisher on subject.
func NewNATSPublisher(conn *nats.Conn, subject string, log *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, log: log}
}

// SubmitClick publishes the click as JSON. Publish is buffered by the client and does not wait for a consumer.
func (p *NATSPublisher) SubmitClick(data *ClickData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal click: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("failed to publish click: %w", err)
	}
	return nil
}

// Submitter accepts clicks for local processing.
type Submitter interface {
	SubmitClick(data *ClickData) error
}

// SubscribeClicks feeds clicks from the queue group into the local processor.
func SubscribeClicks(conn *nats.Conn, subject, queue string, sink Submitter, log *zap.Logger) (*nats.Subscription, error) {
	log = log.With(zap.String("subject", subject), zap.String("queue", queue))

	sub, err := conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		var data ClickData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			log.Warn("discarding malformed click message", zap.Error(err))
			return
		}
		if err := sink.SubmitClick(&data); err != nil {
			log.Warn("failed to queue click from nats", zap.Int64("link_id", data.LinkID), zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	log.Info("subscribed to click stream")
	return sub, nil
}

// ClickStream is a NATS connection whose drain can be awaited.
type ClickStream struct {
	*nats.Conn
	closed chan struct{}
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, log *zap.Logger) (*ClickStream, error) {
	closed := make(chan struct{})
	conn, err := nats.Connect(url,
		nats.Name("shrtlink-backend"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			close(closed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &ClickStream{Conn: conn, closed: closed}, nil
}

// Drain unsubscribes, lets every pending message reach its callback and
// returns once the connection is closed. nats.Conn.Drain alone returns
// before the callbacks have run.
func (s *ClickStream) Drain(ctx context.Context) error {
	if err := s.Conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to drain nats connection: %w", err)
	}

	select {
	case <-s.closed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("nats drain did not finish: %w", ctx.Err())
	}
}
