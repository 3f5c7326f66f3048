// Package realtime delivers Postgres change notifications to in-process
// subscribers. Mutating transactions call pg_notify on a per-table channel;
// listeners treat every notification as "re-fetch the snapshot", so delivery
// gaps and duplicates are harmless.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// reconnectAfter is the fixed backoff between listener connection attempts.
const reconnectAfter = 2 * time.Second

// Event is one change notification.
type Event struct {
	Channel string
	Payload string
}

// Listener holds a dedicated connection in LISTEN mode and invokes the
// callbacks from its own goroutine. onResync fires after every (re)connect
// so subscribers can repair anything missed while disconnected.
type Listener struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	channels []string
	onEvent  func(Event)
	onResync func()
}

func NewListener(db *pgxpool.Pool, logger *slog.Logger, channels []string, onEvent func(Event), onResync func()) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		db:       db,
		log:      logger,
		channels: channels,
		onEvent:  onEvent,
		onResync: onResync,
	}
}

// Run blocks until ctx is cancelled, reconnecting on any failure.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listenOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("listener disconnected, reconnecting", "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectAfter):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	// The connection has been in LISTEN mode; never return it to the pool.
	defer conn.Hijack().Close(ctx)

	for _, ch := range l.channels {
		if _, err := conn.Exec(ctx, "LISTEN "+quoteIdent(ch)); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	if l.onResync != nil {
		l.onResync()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if l.onEvent != nil {
			l.onEvent(Event{Channel: n.Channel, Payload: n.Payload})
		}
	}
}

func quoteIdent(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}
