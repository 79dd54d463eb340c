package interlog

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when a database URL is configured,
// otherwise a CSV store at path.
func NewStore(ctx context.Context, databaseURL, path string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return OpenCSV(path)
	}
	return NewPostgresStore(ctx, databaseURL)
}
