// Package neo4jexport loads a dependence graph description into Neo4j so a
// slice can be explored with Cypher. Nodes become PDGNode vertices, control
// edges CONTROL relationships and data edges DATA relationships.
package neo4jexport

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/sunxfancy/cpp-slicer/pkg/render"
)

// DefaultBatchSize is the number of rows sent per UNWIND query.
const DefaultBatchSize = 500

// Config holds connection settings.
type Config struct {
	URI       string
	User      string
	Password  string
	Database  string // empty selects the server default
	BatchSize int
}

// runFunc executes one Cypher statement.
type runFunc func(ctx context.Context, cypher string, params map[string]any) error

// Loader writes graph descriptions into a Neo4j database using batched
// UNWIND upserts.
type Loader struct {
	driver    neo4j.DriverWithContext
	run       runFunc
	batchSize int
}

// NewLoader connects to Neo4j and returns a ready-to-use loader.
func NewLoader(ctx context.Context, cfg Config) (*Loader, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to %s: %w", cfg.URI, err)
	}

	var opts []neo4j.ExecuteQueryConfigurationOption
	if cfg.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
	}
	l := newLoader(func(ctx context.Context, cypher string, params map[string]any) error {
		_, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
		return err
	}, cfg.BatchSize)
	l.driver = driver
	return l, nil
}

func newLoader(run runFunc, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{run: run, batchSize: batchSize}
}

// Close releases the underlying driver.
func (l *Loader) Close(ctx context.Context) error {
	if l.driver == nil {
		return nil
	}
	return l.driver.Close(ctx)
}

// CreateIndexes ensures the lookup indexes exist.
func (l *Loader) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX pdg_node_key IF NOT EXISTS FOR (n:PDGNode) ON (n.key)",
		"CREATE INDEX pdg_node_function IF NOT EXISTS FOR (n:PDGNode) ON (n.source, n.function)",
	}
	for _, q := range indexes {
		if err := l.run(ctx, q, nil); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// Clean removes the nodes and relationships previously loaded for one
// function of one source file.
func (l *Loader) Clean(ctx context.Context, source, function string) error {
	err := l.run(ctx,
		`MATCH (n:PDGNode {source: $source, function: $function}) DETACH DELETE n`,
		map[string]any{"source": source, "function": function},
	)
	if err != nil {
		return fmt.Errorf("cleaning %s in %s: %w", function, source, err)
	}
	return nil
}

// Load replaces the stored graph of d.Function with d: the old nodes are
// removed, then nodes and edges are upserted batch by batch.
func (l *Loader) Load(ctx context.Context, source string, d *render.Description) error {
	if err := l.Clean(ctx, source, d.Function); err != nil {
		return err
	}

	nodes := nodeRows(source, d)
	for _, batch := range batches(nodes, l.batchSize) {
		err := l.run(ctx,
			`UNWIND $batch AS row
			 MERGE (n:PDGNode {key: row.key})
			 SET n.source = row.source, n.function = row.function, n.id = row.id,
			     n.kind = row.kind, n.text = row.text, n.line = row.line,
			     n.column = row.column, n.in_slice = row.in_slice`,
			map[string]any{"batch": batch},
		)
		if err != nil {
			return fmt.Errorf("loading nodes: %w", err)
		}
	}

	control, data := edgeRows(source, d)
	for _, batch := range batches(control, l.batchSize) {
		err := l.run(ctx,
			`UNWIND $batch AS row
			 MATCH (a:PDGNode {key: row.from}), (b:PDGNode {key: row.to})
			 MERGE (a)-[r:CONTROL]->(b)
			 SET r.label = row.label`,
			map[string]any{"batch": batch},
		)
		if err != nil {
			return fmt.Errorf("loading control edges: %w", err)
		}
	}
	for _, batch := range batches(data, l.batchSize) {
		err := l.run(ctx,
			`UNWIND $batch AS row
			 MATCH (a:PDGNode {key: row.from}), (b:PDGNode {key: row.to})
			 MERGE (a)-[:DATA]->(b)`,
			map[string]any{"batch": batch},
		)
		if err != nil {
			return fmt.Errorf("loading data edges: %w", err)
		}
	}
	return nil
}

// NodeKey is the unique key of one node.
func NodeKey(source, function string, id int) string {
	return fmt.Sprintf("%s:%s#%d", source, function, id)
}

func nodeRows(source string, d *render.Description) []map[string]any {
	rows := make([]map[string]any, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		rows = append(rows, map[string]any{
			"key":      NodeKey(source, d.Function, n.ID),
			"source":   source,
			"function": d.Function,
			"id":       n.ID,
			"kind":     n.Kind,
			"text":     n.Text,
			"line":     n.Line,
			"column":   n.Column,
			"in_slice": n.InSlice,
		})
	}
	return rows
}

func edgeRows(source string, d *render.Description) (control, data []map[string]any) {
	for _, e := range d.Edges {
		row := map[string]any{
			"from": NodeKey(source, d.Function, e.From),
			"to":   NodeKey(source, d.Function, e.To),
		}
		if e.Class == render.ClassData {
			data = append(data, row)
			continue
		}
		row["label"] = e.Label
		control = append(control, row)
	}
	return control, data
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	var out [][]map[string]any
	for len(rows) > 0 {
		n := min(size, len(rows))
		out = append(out, rows[:n])
		rows = rows[n:]
	}
	return out
}

// Ping checks that the server at cfg.URI accepts the configured credentials.
func Ping(ctx context.Context, cfg Config) error {
	l, err := NewLoader(ctx, cfg)
	if err != nil {
		return err
	}
	return l.Close(ctx)
}
