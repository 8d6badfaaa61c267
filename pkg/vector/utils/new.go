// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/papercomputeco/docsearch/pkg/vector"
	"github.com/papercomputeco/docsearch/pkg/vector/chroma"
	"github.com/papercomputeco/docsearch/pkg/vector/inmemory"
	"github.com/papercomputeco/docsearch/pkg/vector/postgres"
	"github.com/papercomputeco/docsearch/pkg/vector/qdrant"
	"github.com/papercomputeco/docsearch/pkg/vector/sqlitevec"
)

// Supported store providers.
const (
	ProviderInMemory  = "inmemory"
	ProviderSQLiteVec = "sqlite"
	ProviderPostgres  = "postgres"
	ProviderChroma    = "chroma"
	ProviderQdrant    = "qdrant"
)

type NewVectorDriverOpts struct {
	// ProviderType selects the store implementation.
	ProviderType string

	// Target is the provider's location: a file path for sqlite, a DSN for
	// postgres, a URL for chroma and host:port for qdrant. Unused for
	// inmemory.
	Target string

	// Collection names the chroma/qdrant collection or the postgres table.
	Collection string

	Dimensions uint
	Conflict   vector.ConflictPolicy
	APIKey     string
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderInMemory, "":
		return inmemory.NewDriver(inmemory.Config{
			Dimensions: o.Dimensions,
			Conflict:   o.Conflict,
		}), nil
	case ProviderSQLiteVec:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
			Conflict:   o.Conflict,
		}, o.Logger)
	case ProviderPostgres:
		return postgres.NewDriver(ctx, postgres.Config{
			DSN:        o.Target,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
			Conflict:   o.Conflict,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
			Conflict:       o.Conflict,
		}, o.Logger)
	case ProviderQdrant:
		host, port, err := splitHostPort(o.Target)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:           host,
			Port:           port,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
			Conflict:       o.Conflict,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

func splitHostPort(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, 0, nil //nolint:nilerr // bare host, default port
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}
