// Package graph provides the in-memory property graph the query engine reads.
//
// A Store holds labeled nodes with property maps and typed directed edges with
// property maps. Parallel edges, including parallel edges of the same type between the
// same pair, are kept as independent edges. There is no deletion; a store is rebuilt
// wholesale when instance data is re-ingested.
//
// A Store is not safe for concurrent mutation. Hosts that run queries while loading
// data must serialize access themselves, for example with a sync.RWMutex around the
// store.
package graph

import (
	"iter"
	"log/slog"
	"slices"
)

// Node is a labeled vertex with properties.
type Node struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// HasLabel reports whether the node carries label.
func (n *Node) HasLabel(label string) bool {
	return slices.Contains(n.Labels, label)
}

// Property returns the named property value.
func (n *Node) Property(name string) (any, bool) {
	v, ok := n.Properties[name]
	return v, ok
}

// PrimaryLabel returns the first label, or "" for an unlabeled node.
func (n *Node) PrimaryLabel() string {
	if len(n.Labels) == 0 {
		return ""
	}
	return n.Labels[0]
}

// Edge is a typed directed relationship between two node ids.
type Edge struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Store is an in-memory multi-graph with a label index.
type Store struct {
	nodes   map[string]*Node
	order   []string            // node ids, first insertion order
	byLabel map[string][]string // label -> node ids, insertion order
	edges   []*Edge
	out     map[string][]*Edge
	in      map[string][]*Edge
	logger  *slog.Logger
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		nodes:   make(map[string]*Node),
		byLabel: make(map[string][]string),
		out:     make(map[string][]*Edge),
		in:      make(map[string][]*Edge),
		logger:  logger,
	}
}

// AddNode inserts or replaces a node. Re-inserting an id replaces labels and
// properties (last write wins); the label index keeps the original position for labels
// the node still carries.
func (s *Store) AddNode(id string, labels []string, properties map[string]any) {
	node := &Node{
		ID:         id,
		Labels:     slices.Clone(labels),
		Properties: cloneProps(properties),
	}

	prev, exists := s.nodes[id]
	if exists {
		for _, l := range prev.Labels {
			if !node.HasLabel(l) {
				s.byLabel[l] = slices.DeleteFunc(s.byLabel[l], func(x string) bool { return x == id })
			}
		}
	} else {
		s.order = append(s.order, id)
	}

	seen := make(map[string]struct{}, len(node.Labels))
	for _, l := range node.Labels {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		if exists && prev.HasLabel(l) {
			continue
		}
		s.byLabel[l] = append(s.byLabel[l], id)
	}

	s.nodes[id] = node
}

// AddEdge appends a directed edge. Endpoints need not exist yet.
func (s *Store) AddEdge(source, target, edgeType string, properties map[string]any) {
	e := &Edge{
		Source:     source,
		Target:     target,
		Type:       edgeType,
		Properties: cloneProps(properties),
	}
	s.out[source] = append(s.out[source], e)
	s.in[target] = append(s.in[target], e)
	s.edges = append(s.edges, e)
}

// Node returns the node with id.
func (s *Store) Node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// NodesByLabel yields nodes carrying label in insertion order.
func (s *Store) NodesByLabel(label string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, id := range s.byLabel[label] {
			if !yield(s.nodes[id]) {
				return
			}
		}
	}
}

// OutEdges yields edges leaving id. An empty edgeType matches every type.
func (s *Store) OutEdges(id, edgeType string) iter.Seq[*Edge] {
	return filterEdges(s.out[id], edgeType)
}

// InEdges yields edges entering id. An empty edgeType matches every type.
func (s *Store) InEdges(id, edgeType string) iter.Seq[*Edge] {
	return filterEdges(s.in[id], edgeType)
}

func filterEdges(edges []*Edge, edgeType string) iter.Seq[*Edge] {
	return func(yield func(*Edge) bool) {
		for _, e := range edges {
			if edgeType != "" && e.Type != edgeType {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// NodeCount returns the number of distinct node ids.
func (s *Store) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of edges, counting parallel edges separately.
func (s *Store) EdgeCount() int {
	return len(s.edges)
}

// Labels returns the labels present in the index, sorted.
func (s *Store) Labels() []string {
	labels := make([]string, 0, len(s.byLabel))
	for l, ids := range s.byLabel {
		if len(ids) > 0 {
			labels = append(labels, l)
		}
	}
	slices.Sort(labels)
	return labels
}

func cloneProps(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
