// Package usage emits anonymized usage events to Postgres. Tracking is
// strictly best-effort: calls return immediately, failures are logged and
// swallowed, and a missing database degrades to a silent no-op. Nothing in
// here may ever feed back into the conversation state.
package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/leadscout/leadscout/pkg/database"
	"github.com/leadscout/leadscout/pkg/leads"
)

const writeTimeout = 5 * time.Second

// Event is one row in usage_logs. The timestamp is server-assigned by the
// database default, not set here.
type Event struct {
	Query     string
	Mode      leads.Mode
	LeadCount int
	Platform  string
	UserAgent string
}

// Sink writes events to the usage_logs table.
type Sink struct {
	db        *database.PostgresDB
	platform  string
	userAgent string
}

// NewSink returns a sink bound to db. A nil db yields a sink whose Track is a
// no-op, so callers never have to branch on configuration.
func NewSink(db *database.PostgresDB, platform, userAgent string) *Sink {
	return &Sink{db: db, platform: platform, userAgent: userAgent}
}

// Track records one completed query. It dispatches the insert on its own
// goroutine with a background context so it can neither delay the caller nor
// be cancelled by the request that triggered it.
func (s *Sink) Track(query string, mode leads.Mode, leadCount int) {
	if s == nil || s.db == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		_, err := s.db.Pool.Exec(ctx,
			`INSERT INTO usage_logs (query, mode, lead_count, platform, user_agent) VALUES ($1, $2, $3, $4, $5)`,
			query, string(mode), leadCount, s.platform, s.userAgent)
		if err != nil {
			slog.Error("Failed to record usage event", "error", err)
		}
	}()
}
