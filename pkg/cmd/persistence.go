// Package cmd provides shared construction helpers for the command line
// entrypoints.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/venturahq/tramite/pkg/persistence"
	"github.com/venturahq/tramite/pkg/persistence/memory"
	"github.com/venturahq/tramite/pkg/persistence/postgres"
)

// NewPersistence builds the persistence layer for the given database URL.
// The memory:// scheme selects the volatile in-memory store, anything else
// is treated as a postgres connection string.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if strings.HasPrefix(databaseURL, "memory://") {
		return memory.NewPersistence(), nil
	}

	return postgres.NewPersistence(ctx, logger, databaseURL)
}
