package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Log is the append-only record of agent decisions, reactions and
// reflections. It exists for observability only; callers swallow every
// error it returns.
type Log struct {
	pool *pgxpool.Pool
}

func NewLog(pool *pgxpool.Pool) *Log {
	return &Log{pool: pool}
}

func (l *Log) RecordActivity(ctx context.Context, agentID, agentName, kind, detail string) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO activity_log (agent_id, agent_name, kind, detail) VALUES ($1, $2, $3, $4)`,
		agentID, agentName, kind, detail)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

type Entry struct {
	ID         int64     `json:"id"`
	AgentID    string    `json:"agent_id"`
	AgentName  string    `json:"agent_name"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RecentByAgent returns an agent's newest activity entries.
func (l *Log) RecentByAgent(ctx context.Context, agentID string, limit int) ([]Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, agent_id, agent_name, kind, detail, recorded_at
		 FROM activity_log WHERE agent_id = $1
		 ORDER BY recorded_at DESC LIMIT $2`,
		agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AgentID, &e.AgentName, &e.Kind, &e.Detail, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
