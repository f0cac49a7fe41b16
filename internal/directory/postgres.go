package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-beacon/internal/domain"
)

// PostgresDirectory reads agents from the agents table.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory returns a directory backed by pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// ListAgents returns the active agents.
func (d *PostgresDirectory) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	if d == nil || d.pool == nil {
		return nil, errors.New("agent directory: no database configured")
	}
	rows, err := d.pool.Query(ctx, `
		SELECT external_id, name, active
		FROM agents
		WHERE active
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	agents, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Agent, error) {
		var a domain.Agent
		err := row.Scan(&a.ID, &a.Name, &a.Active)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan agents: %w", err)
	}
	return agents, nil
}

// Upsert stores agents, for seeding the table from the upstream list.
func (d *PostgresDirectory) Upsert(ctx context.Context, agents []domain.Agent) error {
	if d == nil || d.pool == nil {
		return errors.New("agent directory: no database configured")
	}
	batch := &pgx.Batch{}
	for _, a := range agents {
		batch.Queue(`
			INSERT INTO agents (external_id, name, active, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (external_id) DO UPDATE
			SET name = EXCLUDED.name, active = EXCLUDED.active, updated_at = NOW()`,
			a.ID, a.Name, a.Active)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert agents: %w", err)
	}
	return nil
}
