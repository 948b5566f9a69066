// Package bus bridges status events between server processes over NATS.
// Each process publishes its persisted changes to the broker and relays
// everything it receives from the broker into its local hub, so viewers see
// every change exactly once regardless of which process stored it.
package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"

	"faculty-availability-backend/internal/hub"
)

// Subscription is an active broker subscription.
type Subscription interface {
	Unsubscribe() error
}

// Conn is the subset of a NATS connection the bridge needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (Subscription, error)
}

type natsConn struct {
	nc *nats.Conn
}

// Connect dials the broker.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("facultyd"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Wrap adapts a NATS connection to Conn.
func Wrap(nc *nats.Conn) Conn {
	return natsConn{nc: nc}
}

func (c natsConn) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

func (c natsConn) Subscribe(subject string, cb nats.MsgHandler) (Subscription, error) {
	sub, err := c.nc.Subscribe(subject, cb)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Subject returns the subject a faculty member's events are published on.
func Subject(prefix string, facultyID int64) string {
	return fmt.Sprintf("%s.%d", strings.TrimSuffix(prefix, "."), facultyID)
}

// Publisher publishes events to the broker. It implements hub.Publisher.
type Publisher struct {
	conn   Conn
	prefix string
}

// NewPublisher creates a broker publisher for subjects under prefix.
func NewPublisher(conn Conn, prefix string) *Publisher {
	return &Publisher{conn: conn, prefix: prefix}
}

// Publish sends ev to the broker. Failures are logged; the change itself is
// already durable and viewers recover by re-fetching.
func (p *Publisher) Publish(ev hub.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Error encoding status event for faculty %d: %v", ev.FacultyID, err)
		return
	}
	if err := p.conn.Publish(Subject(p.prefix, ev.FacultyID), data); err != nil {
		log.Printf("Error publishing status event for faculty %d: %v", ev.FacultyID, err)
	}
}

// Relay feeds broker events into a local publisher, normally the hub.
type Relay struct {
	sub Subscription
}

// StartRelay subscribes to every faculty subject under prefix.
func StartRelay(conn Conn, prefix string, local hub.Publisher) (*Relay, error) {
	subject := strings.TrimSuffix(prefix, ".") + ".*"
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		var ev hub.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("Dropping malformed status event on %s: %v", msg.Subject, err)
			return
		}
		local.Publish(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	log.Printf("Relaying status events from %s", subject)
	return &Relay{sub: sub}, nil
}

// Close stops relaying.
func (r *Relay) Close() error {
	return r.sub.Unsubscribe()
}
