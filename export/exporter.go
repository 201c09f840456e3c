// Package export serializes heterogeneous graphs to external stores for
// offline inspection of a perturbation run.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/libshade/libshade/graph"
)

// IRNode represents a node in the exported graph representation.
type IRNode struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// IREdge represents an edge in the exported graph representation.
type IREdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// IRGraph holds the nodes and edges of one exported graph.
type IRGraph struct {
	Nodes []IRNode `json:"nodes"`
	Edges []IREdge `json:"edges"`
}

// Exporter sends an exported graph to a storage backend.
type Exporter interface {
	Export(ctx context.Context, g *IRGraph) error
}

// BuildIR flattens a heterogeneous graph into the exportable form. Node
// order follows the graph's deterministic kind-then-id ordering.
func BuildIR(g *graph.Graph) *IRGraph {
	out := &IRGraph{}
	for _, kind := range graph.NodeKinds {
		for _, node := range g.NodesByKind(kind) {
			out.Nodes = append(out.Nodes, IRNode{
				ID:         node.ID,
				Type:       node.Kind.String(),
				Properties: nodeProperties(node),
			})
		}
	}
	for _, edge := range g.Edges() {
		out.Edges = append(out.Edges, IREdge{
			Source: edge.Src,
			Target: edge.Dst,
			Type:   edge.Kind.String(),
		})
	}
	return out
}

func nodeProperties(node *graph.Node) map[string]interface{} {
	switch attrs := node.Attrs.(type) {
	case graph.PackageAttrs:
		return map[string]interface{}{"name": attrs.Name}
	case graph.ClassAttrs:
		return map[string]interface{}{
			"name":      attrs.Name,
			"package":   attrs.Package,
			"super":     attrs.Super,
			"interface": attrs.Interface,
		}
	case graph.MethodAttrs:
		return map[string]interface{}{
			"name":        attrs.Name,
			"class":       attrs.Class,
			"descriptor":  attrs.Descriptor,
			"return":      attrs.Return,
			"constructor": attrs.Constructor,
		}
	case graph.FieldAttrs:
		return map[string]interface{}{
			"name":  attrs.Name,
			"class": attrs.Class,
			"type":  attrs.Type,
		}
	case graph.ParameterAttrs:
		return map[string]interface{}{
			"name":   attrs.Name,
			"method": attrs.MethodID,
			"index":  attrs.Index,
			"type":   attrs.Type,
		}
	}
	return nil
}

// JSONExporter writes the graph as a JSON document.
type JSONExporter struct {
	fs  afs.Service
	URL string
}

// NewJSONExporter creates an exporter writing to the given destination URL.
func NewJSONExporter(URL string) *JSONExporter {
	return &JSONExporter{fs: afs.New(), URL: URL}
}

// Export marshals the graph and uploads it.
func (e *JSONExporter) Export(ctx context.Context, g *IRGraph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	if err := e.fs.Upload(ctx, e.URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write graph to %s: %w", e.URL, err)
	}
	return nil
}
