package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/logger"
)

// PgListener republishes Postgres NOTIFY payloads from the bookmarks trigger
// into a local Hub. It covers changes made out of band, e.g. rows written by
// another process or directly in psql, which the service layer never sees.
type PgListener struct {
	dsn            string
	hub            *Hub
	channel        string
	reconnectDelay time.Duration
}

// NewPgListener creates a listener for the given DSN publishing into hub.
func NewPgListener(dsn string, hub *Hub) *PgListener {
	return &PgListener{
		dsn:            dsn,
		hub:            hub,
		channel:        "bookmarks_changes",
		reconnectDelay: 3 * time.Second,
	}
}

// Run starts the LISTEN loop in a background goroutine. The loop reconnects
// after connection failures and stops when ctx is cancelled.
func (l *PgListener) Run(ctx context.Context) {
	go func() {
		for {
			if err := l.listen(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Log.Warnln("change feed listener disconnected, reconnecting", "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(l.reconnectDelay):
			}
		}
	}()
}

func (l *PgListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+l.channel); err != nil {
		return err
	}

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var event Event
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Log.Debugln("skipping malformed change feed payload", "payload", notification.Payload)
			continue
		}

		l.hub.Publish(ctx, event)
	}
}
