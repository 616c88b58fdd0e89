// Package events publishes committed collection mutations to NATS so other processes can
// follow a user's pantry and cart.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"pantrypal/inventory"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements inventory.Notifier. Each change goes to
// <prefix>.<user>.<collection> as JSON.
type NATSPublisher struct {
	conn   publisher
	prefix string
	close  func()
}

var _ inventory.Notifier = (*NATSPublisher)(nil)

func NewNATSPublisher(conn publisher, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, close: func() {}}
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("pantrypal"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("SETUP: Connected to NATS", "url", nc.ConnectedUrl(), "prefix", prefix)

	p := NewNATSPublisher(nc, prefix)
	p.close = func() {
		if err := nc.Drain(); err != nil {
			slog.Warn("EVENTS: Drain failed", "error", err)
			nc.Close()
		}
	}
	return p, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, change inventory.Change) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	subject := Subject(p.prefix, change.UserID, change.Collection)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	slog.Debug("EVENTS: Published change", "subject", subject, "op", change.Op, "key", change.Key)
	return nil
}

// Close drains the connection when the publisher owns one.
func (p *NATSPublisher) Close() { p.close() }

// Subject builds the subject for a user's collection. Characters NATS treats as token
// separators or wildcards are replaced in the user id.
func Subject(prefix, userID, collection string) string {
	return prefix + "." + subjectToken(userID) + "." + collection
}

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_")

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}
