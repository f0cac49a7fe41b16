// Package directory lists the agents offered by the agent filter.
package directory

import (
	"context"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spec-kit/ticket-beacon/internal/domain"
)

// Source lists active agents.
type Source interface {
	ListAgents(ctx context.Context) ([]domain.Agent, error)
}

// Sorted returns agents ordered by name, ignoring case.
func Sorted(agents []domain.Agent) []domain.Agent {
	out := slices.Clone(agents)
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b domain.Agent) int {
		return col.CompareString(a.Name, b.Name)
	})
	return out
}

// Name looks up an agent's display name.
func Name(agents []domain.Agent, id int64) (string, bool) {
	for _, a := range agents {
		if a.ID == id {
			return a.Name, true
		}
	}
	return "", false
}
