package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is one bot run.
type Session struct {
	ID        uuid.UUID
	Profile   string
	Mode      string
	StartedAt time.Time
	EndedAt   *time.Time
	XPGained  int64
	Kills     int
	Loots     int
	BankTrips int
	Errors    int
}

// Totals is the final counter block written when a session ends.
type Totals struct {
	XPGained  int64
	Kills     int
	Loots     int
	BankTrips int
	Errors    int
}

// SessionRepo reads and writes bot sessions.
type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Start inserts a new session row and returns its id.
func (r *SessionRepo) Start(ctx context.Context, profile, mode string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO bot_sessions (id, profile, mode, started_at) VALUES ($1, $2, $3, now())`,
		id, profile, mode)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// Finish closes a session with its final totals.
func (r *SessionRepo) Finish(ctx context.Context, id uuid.UUID, totals Totals) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE bot_sessions
		 SET ended_at = now(), xp_gained = $2, kills = $3, loots = $4, bank_trips = $5, errors = $6
		 WHERE id = $1`,
		id, totals.XPGained, totals.Kills, totals.Loots, totals.BankTrips, totals.Errors)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// RecordError appends one failure row to a session.
func (r *SessionRepo) RecordError(ctx context.Context, sessionID uuid.UUID, occurredAt time.Time, task, kind, severity, message string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO bot_errors (session_id, occurred_at, task, kind, severity, message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sessionID, occurredAt, task, kind, severity, message)
	if err != nil {
		return fmt.Errorf("record error: %w", err)
	}
	return nil
}

// Recent returns the newest sessions, most recent first.
func (r *SessionRepo) Recent(ctx context.Context, limit int) ([]Session, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, profile, mode, started_at, ended_at, xp_gained, kills, loots, bank_trips, errors
		 FROM bot_sessions ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Profile, &s.Mode, &s.StartedAt, &s.EndedAt,
			&s.XPGained, &s.Kills, &s.Loots, &s.BankTrips, &s.Errors); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
