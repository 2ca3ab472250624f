package driver

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
)

type Neo4jDriver struct {
	Driver neo4j.DriverWithContext
	log    zerolog.Logger
}

func NewNeo4jDriver(uri, username, password string, log zerolog.Logger) (*Neo4jDriver, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := d.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Info().Str("uri", uri).Msg("connected to graph store")
	return &Neo4jDriver{Driver: d, log: log}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX canonical_uuid IF NOT EXISTS FOR (n:Canonical) ON (n.uuid)",
		"CREATE INDEX canonical_blocking IF NOT EXISTS FOR (n:Canonical) ON (n.type, n.blocking_key)",
		"CREATE INDEX canonical_name IF NOT EXISTS FOR (n:Canonical) ON (n.name)",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Index may already exist on older servers without IF NOT EXISTS.
			d.log.Warn().Err(err).Str("query", q).Msg("failed to create index")
		}
	}

	return nil
}
