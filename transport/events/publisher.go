// Package events publishes game activity to NATS so other services can
// follow sessions without polling the REST API.
//
// Subjects:
//
//	memory.session.<id>.state   every state change of a session
//	memory.game.completed       one message per finished game
//	memory.best.<n>x<n>         a new best record for a board size
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match/game/engine"
)

const (
	SubjectPrefix    = "memory"
	SubjectCompleted = SubjectPrefix + ".game.completed"
	SubjectPing      = SubjectPrefix + ".ping"
)

// Conn is the part of *nats.Conn the publisher needs
type Conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// StateEvent is published on every state change
type StateEvent struct {
	SessionID string          `json:"session_id"`
	Snapshot  engine.Snapshot `json:"snapshot"`
	At        time.Time       `json:"at"`
}

// CompletedEvent is published when a game finishes
type CompletedEvent struct {
	SessionID string `json:"session_id"`
	engine.Completion
	At time.Time `json:"at"`
}

// Publisher forwards engine events to NATS
type Publisher struct {
	conn Conn
	log  zerolog.Logger
	now  func() time.Time
}

// NewPublisher wraps an established connection
func NewPublisher(conn Conn, logger zerolog.Logger) *Publisher {
	return &Publisher{
		conn: conn,
		log:  logger.With().Str("component", "events").Logger(),
		now:  time.Now,
	}
}

// Connect dials NATS with reconnects enabled
func Connect(url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	return nats.Connect(url, opts...)
}

// ReplyPing answers requests on memory.ping with the server time
func ReplyPing(nc *nats.Conn) (*nats.Subscription, error) {
	return nc.Subscribe(SubjectPing, func(m *nats.Msg) {
		data, _ := json.Marshal(map[string]int64{"server_ping": time.Now().UnixMilli()})
		m.Respond(data)
	})
}

// StateSubject is the subject for a session's state changes
func StateSubject(sessionID string) string {
	return fmt.Sprintf("%s.session.%s.state", SubjectPrefix, sessionID)
}

// BestSubject is the subject for new best records of a board size
func BestSubject(boardSize int) string {
	return fmt.Sprintf("%s.best.%dx%d", SubjectPrefix, boardSize, boardSize)
}

// SessionChanged publishes the new snapshot of a session
func (p *Publisher) SessionChanged(sessionID string, snap engine.Snapshot) {
	p.publish(StateSubject(sessionID), StateEvent{SessionID: sessionID, Snapshot: snap, At: p.now()})
}

// GameCompleted publishes the completion and, when it set a record, the
// new best
func (p *Publisher) GameCompleted(sessionID string, completion engine.Completion) {
	p.publish(SubjectCompleted, CompletedEvent{SessionID: sessionID, Completion: completion, At: p.now()})
	if completion.NewBest && completion.Best != nil {
		p.publish(BestSubject(completion.BoardSize), completion.Best)
	}
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

func (p *Publisher) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.log.Error().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
