package directory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-beacon/internal/domain"
)

// Store persists the agent list.
type Store interface {
	Source
	Upsert(ctx context.Context, agents []domain.Agent) error
}

// Mirror serves the upstream agent list and copies it into a store. When
// the upstream is unreachable the last stored list is served instead.
type Mirror struct {
	upstream Source
	store    Store
	logger   *zap.Logger
}

// NewMirror builds a Mirror.
func NewMirror(upstream Source, store Store, logger *zap.Logger) *Mirror {
	return &Mirror{upstream: upstream, store: store, logger: logger}
}

// ListAgents implements Source.
func (m *Mirror) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	agents, err := m.upstream.ListAgents(ctx)
	if err == nil {
		if err := m.store.Upsert(ctx, agents); err != nil {
			m.logger.Warn("failed to store agents", zap.Error(err))
		}
		return agents, nil
	}

	m.logger.Warn("upstream agents unavailable; serving stored list", zap.Error(err))
	stored, storeErr := m.store.ListAgents(ctx)
	if storeErr != nil {
		return nil, errors.Join(err, storeErr)
	}
	return stored, nil
}
