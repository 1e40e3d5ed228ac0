package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/c360/graphrag/errors"
)

// InstanceData is the ingestion format shared by the store and the schema analyzer.
type InstanceData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// LoadStats summarizes one Load call.
type LoadStats struct {
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
	SkippedNodes int `json:"skipped_nodes"`
	SkippedEdges int `json:"skipped_edges"`
}

// Load adds every valid node and edge of data to the store. Nodes without an id and
// edges missing source, target or type are skipped.
func (s *Store) Load(data InstanceData) LoadStats {
	var stats LoadStats

	for _, n := range data.Nodes {
		if n.ID == "" {
			stats.SkippedNodes++
			continue
		}
		s.AddNode(n.ID, n.Labels, n.Properties)
		stats.Nodes++
	}

	for _, e := range data.Edges {
		if e.Source == "" || e.Target == "" || e.Type == "" {
			stats.SkippedEdges++
			continue
		}
		s.AddEdge(e.Source, e.Target, e.Type, e.Properties)
		stats.Edges++
	}

	if stats.SkippedNodes > 0 || stats.SkippedEdges > 0 {
		s.logger.Debug("skipped malformed instance records",
			"component", "graph", "skipped_nodes", stats.SkippedNodes, "skipped_edges", stats.SkippedEdges)
	}
	return stats
}

// LoadFile reads instance data from a JSON file and loads it.
func (s *Store) LoadFile(path string) (LoadStats, error) {
	data, err := ReadInstanceFile(path)
	if err != nil {
		return LoadStats{}, err
	}

	stats := s.Load(data)
	s.logger.Info("loaded knowledge graph",
		"component", "graph", "path", path, "nodes", s.NodeCount(), "edges", s.EdgeCount())
	return stats, nil
}

// ReadInstanceFile decodes a JSON instance-data file.
func ReadInstanceFile(path string) (InstanceData, error) {
	var data InstanceData

	raw, err := os.ReadFile(path)
	if err != nil {
		return data, errors.WrapInvalid(err, "graph", "ReadInstanceFile", "read instance file")
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"graph", "ReadInstanceFile", "decode instance data")
	}
	return data, nil
}

// Snapshot returns the store content in ingestion format, nodes and edges in
// insertion order.
func (s *Store) Snapshot() InstanceData {
	data := InstanceData{
		Nodes: make([]Node, 0, len(s.order)),
		Edges: make([]Edge, 0, len(s.edges)),
	}
	for _, id := range s.order {
		n := s.nodes[id]
		data.Nodes = append(data.Nodes, Node{
			ID:         n.ID,
			Labels:     slices.Clone(n.Labels),
			Properties: cloneProps(n.Properties),
		})
	}
	for _, e := range s.edges {
		data.Edges = append(data.Edges, Edge{
			Source:     e.Source,
			Target:     e.Target,
			Type:       e.Type,
			Properties: cloneProps(e.Properties),
		})
	}
	return data
}
