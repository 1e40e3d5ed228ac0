package graph

import (
	"iter"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/graphrag/errors"
)

func ids[T any](seq iter.Seq[T], id func(T) string) []string {
	var out []string
	for v := range seq {
		out = append(out, id(v))
	}
	return out
}

func nodeIDs(s *Store, label string) []string {
	return ids(s.NodesByLabel(label), func(n *Node) string { return n.ID })
}

func edgeTargets(seq iter.Seq[*Edge]) []string {
	return ids(seq, func(e *Edge) string { return e.Target })
}

func TestStore_AddNodeAndLabelIndex(t *testing.T) {
	s := NewStore(nil)
	s.AddNode("P1", []string{"Policy"}, map[string]any{"policy_number": "P1"})
	s.AddNode("P2", []string{"Policy"}, nil)
	s.AddNode("C1", []string{"Coverage"}, map[string]any{"type": "liability"})

	assert.Equal(t, 3, s.NodeCount())
	assert.Equal(t, []string{"P1", "P2"}, nodeIDs(s, "Policy"))
	assert.Equal(t, []string{"C1"}, nodeIDs(s, "Coverage"))
	assert.Empty(t, nodeIDs(s, "Claim"))
	assert.Equal(t, []string{"Coverage", "Policy"}, s.Labels())

	n, ok := s.Node("P1")
	require.True(t, ok)
	assert.True(t, n.HasLabel("Policy"))
	assert.Equal(t, "Policy", n.PrimaryLabel())
	v, ok := n.Property("policy_number")
	assert.True(t, ok)
	assert.Equal(t, "P1", v)

	_, ok = s.Node("missing")
	assert.False(t, ok)
}

func TestStore_AddNodeLastWriteWins(t *testing.T) {
	s := NewStore(nil)
	s.AddNode("X", []string{"Policy"}, map[string]any{"status": "active"})
	s.AddNode("Y", []string{"Policy"}, nil)
	s.AddNode("X", []string{"Claim"}, map[string]any{"status": "closed"})

	assert.Equal(t, 2, s.NodeCount())
	assert.Equal(t, []string{"Y"}, nodeIDs(s, "Policy"))
	assert.Equal(t, []string{"X"}, nodeIDs(s, "Claim"))

	n, _ := s.Node("X")
	assert.Equal(t, "closed", n.Properties["status"])

	// Re-adding with the same label keeps the original index position.
	s.AddNode("P", []string{"Claim"}, nil)
	s.AddNode("X", []string{"Claim"}, nil)
	assert.Equal(t, []string{"X", "P"}, nodeIDs(s, "Claim"))
}

func TestStore_AddNodeRepeatedLabelsIndexedOnce(t *testing.T) {
	s := NewStore(nil)
	s.AddNode("X", []string{"Policy", "Policy"}, nil)
	assert.Equal(t, []string{"X"}, nodeIDs(s, "Policy"))

	s.AddNode("X", []string{"Policy", "Claim", "Claim"}, nil)
	assert.Equal(t, []string{"X"}, nodeIDs(s, "Policy"))
	assert.Equal(t, []string{"X"}, nodeIDs(s, "Claim"))
}

func TestStore_PropertiesAreCopied(t *testing.T) {
	s := NewStore(nil)
	props := map[string]any{"type": "auto"}
	s.AddNode("P1", []string{"Policy"}, props)
	props["type"] = "home"

	n, _ := s.Node("P1")
	assert.Equal(t, "auto", n.Properties["type"])
}

func TestStore_Edges(t *testing.T) {
	s := NewStore(nil)
	s.AddNode("P1", []string{"Policy"}, nil)
	s.AddNode("C1", []string{"Coverage"}, nil)
	s.AddNode("C2", []string{"Coverage"}, nil)
	s.AddNode("I1", []string{"Insured"}, nil)

	s.AddEdge("P1", "C1", "HAS_COVERAGE", nil)
	s.AddEdge("P1", "C2", "HAS_COVERAGE", map[string]any{"since": "2024"})
	s.AddEdge("P1", "C1", "HAS_COVERAGE", nil) // parallel, same type
	s.AddEdge("P1", "I1", "INSURES", nil)

	assert.Equal(t, 4, s.EdgeCount())
	assert.Equal(t, []string{"C1", "C2", "C1"}, edgeTargets(s.OutEdges("P1", "HAS_COVERAGE")))
	assert.Equal(t, []string{"C1", "C2", "C1", "I1"}, edgeTargets(s.OutEdges("P1", "")))
	assert.Empty(t, edgeTargets(s.OutEdges("C1", "")))

	sources := ids(s.InEdges("C1", "HAS_COVERAGE"), func(e *Edge) string { return e.Source })
	assert.Equal(t, []string{"P1", "P1"}, sources)
	assert.Empty(t, ids(s.InEdges("C1", "INSURES"), func(e *Edge) string { return e.Source }))
}

func TestStore_EdgeToMissingNode(t *testing.T) {
	s := NewStore(nil)
	s.AddEdge("ghost", "P1", "INSURES", nil)
	assert.Equal(t, 1, s.EdgeCount())
	assert.Equal(t, 0, s.NodeCount())
	assert.Equal(t, []string{"P1"}, edgeTargets(s.OutEdges("ghost", "INSURES")))
}

func TestStore_IteratorEarlyStop(t *testing.T) {
	s := NewStore(nil)
	for _, id := range []string{"a", "b", "c"} {
		s.AddNode(id, []string{"L"}, nil)
		s.AddEdge("root", id, "T", nil)
	}

	var seen []string
	for n := range s.NodesByLabel("L") {
		seen = append(seen, n.ID)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)

	count := 0
	for range s.OutEdges("root", "T") {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func sampleData() InstanceData {
	return InstanceData{
		Nodes: []Node{
			{ID: "P1", Labels: []string{"Policy"}, Properties: map[string]any{"policy_number": "P1"}},
			{ID: "", Labels: []string{"Policy"}},
			{ID: "C1", Labels: []string{"Coverage"}, Properties: map[string]any{"type": "liability"}},
		},
		Edges: []Edge{
			{Source: "P1", Target: "C1", Type: "HAS_COVERAGE"},
			{Source: "P1", Target: "C1"},
			{Source: "", Target: "C1", Type: "HAS_COVERAGE"},
		},
	}
}

func TestStore_LoadSkipsMalformedRecords(t *testing.T) {
	s := NewStore(nil)
	stats := s.Load(sampleData())

	assert.Equal(t, LoadStats{Nodes: 2, Edges: 1, SkippedNodes: 1, SkippedEdges: 2}, stats)
	assert.Equal(t, 2, s.NodeCount())
	assert.Equal(t, 1, s.EdgeCount())
}

func TestStore_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"nodes": [
			{"id": "P1", "labels": ["Policy"], "properties": {"policy_number": "P1"}},
			{"id": "C1", "labels": ["Coverage"], "properties": {"type": "liability", "limit": 500000}}
		],
		"edges": [
			{"source": "P1", "target": "C1", "type": "HAS_COVERAGE", "properties": {}}
		]
	}`), 0o600))

	s := NewStore(nil)
	stats, err := s.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.Edges)

	c1, ok := s.Node("C1")
	require.True(t, ok)
	assert.Equal(t, float64(500000), c1.Properties["limit"])
}

func TestStore_LoadFileErrors(t *testing.T) {
	s := NewStore(nil)

	_, err := s.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nodes": [`), 0o600))
	_, err = s.LoadFile(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParsingFailed)
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	s := NewStore(nil)
	s.Load(sampleData())
	s.AddEdge("P1", "C1", "HAS_COVERAGE", nil)

	snap := s.Snapshot()
	assert.Equal(t, []string{"P1", "C1"}, []string{snap.Nodes[0].ID, snap.Nodes[1].ID})
	assert.Len(t, snap.Edges, 2)

	clone := NewStore(nil)
	clone.Load(snap)
	assert.Equal(t, s.NodeCount(), clone.NodeCount())
	assert.Equal(t, s.EdgeCount(), clone.EdgeCount())
	assert.True(t, slices.Equal(nodeIDs(s, "Policy"), nodeIDs(clone, "Policy")))
}
