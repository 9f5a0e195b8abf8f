package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject view-change events are published on.
const DefaultSubject = "cspm.feed.updated"

// NATSPublisher publishes view-change events for external consumers
// (other dashboards, alert pipelines). Publish failures are logged and
// dropped; the feed never depends on the bus being up.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("cspmfeed"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) ViewChanged(change ViewChange) {
	data, err := json.Marshal(change)
	if err != nil {
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		log.Printf("failed to publish view change: %v", err)
	}
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
