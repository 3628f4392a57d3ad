package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ai-society/society/internal/agent"
)

// Embedder turns text into a vector for similarity search over archived
// memories. A nil embedder archives rows without embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Archive persists memories evicted from an agent's in-process store so
// forgotten experience stays queryable. Wired to a MemoryStore through
// its eviction hook.
type Archive struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

func NewArchive(pool *pgxpool.Pool, embedder Embedder, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{pool: pool, embedder: embedder, logger: logger}
}

// Attach hooks the archive into a memory store. Archiving is best-effort:
// failures are logged, never surfaced to the evicting agent.
func (ar *Archive) Attach(agentID uuid.UUID, store *agent.MemoryStore) {
	store.OnEvict(func(m *agent.Memory) {
		if err := ar.Store(context.Background(), agentID, m); err != nil {
			ar.logger.Warn("memory archive failed", "agent_id", agentID, "error", err)
		}
	})
}

func (ar *Archive) Store(ctx context.Context, agentID uuid.UUID, m *agent.Memory) error {
	var embedding any
	if ar.embedder != nil {
		vec, err := ar.embedder.Embed(ctx, m.Content)
		if err != nil {
			ar.logger.Warn("embedding failed, archiving without vector", "error", err)
		} else {
			embedding = pgvector.NewVector(vec)
		}
	}

	_, err := ar.pool.Exec(ctx,
		`INSERT INTO memory_archive (id, agent_id, kind, content, importance, occurred_at, recorded_at, location, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		m.ID, agentID, string(m.Kind), m.Content, m.Importance,
		m.OccurredAt, m.RecordedAt, m.Location, embedding)
	if err != nil {
		return fmt.Errorf("inserting archived memory: %w", err)
	}
	return nil
}

type ArchivedMemory struct {
	ID         uuid.UUID `json:"id"`
	AgentID    uuid.UUID `json:"agent_id"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
}

// SearchSimilar finds archived memories nearest to the query embedding.
// Requires an embedder; without one it returns an empty slice.
func (ar *Archive) SearchSimilar(ctx context.Context, agentID uuid.UUID, query string, limit int) ([]ArchivedMemory, error) {
	if ar.embedder == nil {
		return nil, nil
	}
	vec, err := ar.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := ar.pool.Query(ctx,
		`SELECT id, agent_id, kind, content, importance
		 FROM memory_archive
		 WHERE agent_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <-> $2 LIMIT $3`,
		agentID, pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var out []ArchivedMemory
	for rows.Next() {
		var m ArchivedMemory
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Kind, &m.Content, &m.Importance); err != nil {
			return nil, fmt.Errorf("scanning archive row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
