package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jExporter loads an exported graph into a Neo4j database using batch
// UNWIND queries.
type Neo4jExporter struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jExporter connects to Neo4j and returns a ready-to-use exporter.
func NewNeo4jExporter(uri, user, password string) (*Neo4jExporter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jExporter{driver: driver}, nil
}

// Close releases the underlying driver resources.
func (e *Neo4jExporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

func (e *Neo4jExporter) runCypher(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, e.driver, cypher, params, neo4j.EagerResultTransformer)
	return err
}

// Clean removes all previously loaded graph nodes and relationships.
func (e *Neo4jExporter) Clean(ctx context.Context) error {
	queries := []string{
		"MATCH ()-[r:RELATES]->() DELETE r",
		"MATCH (n:ProgramNode) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := e.runCypher(ctx, q, nil); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndexes ensures the required indexes exist.
func (e *Neo4jExporter) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX program_node_id IF NOT EXISTS FOR (n:ProgramNode) ON (n.id)",
		"CREATE INDEX program_node_kind IF NOT EXISTS FOR (n:ProgramNode) ON (n.kind)",
	}
	for _, q := range indexes {
		if err := e.runCypher(ctx, q, nil); err != nil {
			return err
		}
	}
	return nil
}

// Export upserts every node and edge of the graph.
func (e *Neo4jExporter) Export(ctx context.Context, g *IRGraph) error {
	if err := e.loadNodes(ctx, g.Nodes); err != nil {
		return err
	}
	return e.loadEdges(ctx, g.Edges)
}

func (e *Neo4jExporter) loadNodes(ctx context.Context, nodes []IRNode) error {
	batch := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		row := map[string]any{"id": n.ID, "kind": n.Type}
		for k, v := range n.Properties {
			row["p_"+k] = v
		}
		batch = append(batch, row)
	}
	return e.runCypher(ctx,
		`UNWIND $batch AS row
		 MERGE (n:ProgramNode {id: row.id})
		 SET n += row`,
		map[string]any{"batch": batch},
	)
}

func (e *Neo4jExporter) loadEdges(ctx context.Context, edges []IREdge) error {
	batch := make([]map[string]any, 0, len(edges))
	for _, edge := range edges {
		batch = append(batch, map[string]any{
			"src":  edge.Source,
			"dst":  edge.Target,
			"kind": strings.ToUpper(edge.Type),
		})
	}
	return e.runCypher(ctx,
		`UNWIND $batch AS row
		 MATCH (s:ProgramNode {id: row.src}), (d:ProgramNode {id: row.dst})
		 MERGE (s)-[r:RELATES {kind: row.kind}]->(d)`,
		map[string]any{"batch": batch},
	)
}
