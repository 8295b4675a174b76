package ports

import (
	"context"

	"popdash/domain/dataset"
)

// TableSource provides a raw wide table. Implementations read it fresh on
// every call and report any failure as a core.DataSourceError.
type TableSource interface {
	Load(ctx context.Context) (*dataset.RawTable, error)
	// Describe returns a human-readable origin (path, URL, query name) for logs.
	Describe() string
}
