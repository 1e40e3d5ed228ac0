package schema

import (
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/graph"
	"github.com/c360/graphrag/metric"
	graphschema "github.com/c360/graphrag/schema"
	fixtures "github.com/c360/graphrag/testutil"
)

func TestAnalyze_CarBatch(t *testing.T) {
	a := NewAnalyzer(graphschema.NewDefault(nil), nil)

	p := a.Analyze(fixtures.CarBatch(6))
	require.Len(t, p.NewEntityTypes, 1)
	car := p.NewEntityTypes[0]
	assert.Equal(t, "Car", car.Name)
	assert.Equal(t, 6, car.Frequency)
	assert.GreaterOrEqual(t, car.Confidence, 0.6)

	require.Contains(t, car.Properties, "make")
	mk := car.Properties["make"]
	assert.Equal(t, graphschema.TypeString, mk.Type)
	assert.True(t, mk.Required)
	assert.Equal(t, []string{"Ford", "Honda", "Toyota"}, mk.Enum)

	year := car.Properties["year"]
	assert.Equal(t, graphschema.TypeInteger, year.Type)
	assert.Nil(t, year.Enum, "six distinct years")
	assert.Len(t, year.SampleValues, 6)

	assert.Empty(t, p.NewProperties, "vin_count is seen once")
	require.Len(t, p.NewRelationshipTypes, 1)
	assert.Equal(t, graphschema.Triple{Name: "COVERS_VEHICLE", Source: "Policy", Target: "Car"}, p.NewRelationshipTypes[0].Triple())
	assert.InDelta(t, 0.2, p.NewRelationshipTypes[0].Confidence, 1e-9)
}

func TestAnalyze_KnownDataProposesNothing(t *testing.T) {
	a := NewAnalyzer(graphschema.NewDefault(nil), nil)
	assert.True(t, a.Analyze(fixtures.InsuranceGraph()).Empty())
}

func TestAnalyze_ConfidenceIsMonotonic(t *testing.T) {
	a := NewAnalyzer(graphschema.NewDefault(nil), nil)

	prev := 0.0
	for _, n := range []int{1, 3, 6, 10, 25} {
		p := a.Analyze(fixtures.CarBatch(n))
		require.Len(t, p.NewEntityTypes, 1)
		c := p.NewEntityTypes[0].Confidence
		assert.GreaterOrEqual(t, c, prev, "n=%d", n)
		assert.LessOrEqual(t, c, 1.0)
		prev = c
	}
	assert.Equal(t, 1.0, prev)
}

func TestAnalyze_RelationshipKeyedByTriple(t *testing.T) {
	a := NewAnalyzer(graphschema.NewDefault(nil), nil)
	data := graph.InstanceData{
		Nodes: []graph.Node{
			{ID: "cl", Labels: []string{"Claim"}},
			{ID: "cv", Labels: []string{"Coverage"}},
			{ID: "p", Labels: []string{"Policy"}},
		},
		Edges: []graph.Edge{
			{Source: "cl", Target: "cv", Type: "HAS_COVERAGE", Properties: map[string]any{"weight": 1.5}},
			{Source: "cl", Target: "cv", Type: "HAS_COVERAGE", Properties: map[string]any{"weight": 2}},
			{Source: "p", Target: "cv", Type: "HAS_COVERAGE"},
			{Source: "p", Target: "missing", Type: "INSURES"},
		},
	}

	p := a.Analyze(data)
	require.Len(t, p.NewRelationshipTypes, 1)
	rp := p.NewRelationshipTypes[0]
	assert.Equal(t, graphschema.Triple{Name: "HAS_COVERAGE", Source: "Claim", Target: "Coverage"}, rp.Triple())
	assert.Equal(t, 2, rp.Frequency)
	assert.Equal(t, graphschema.TypeNumber, rp.Properties["weight"].Type)
}

func TestInferType(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, graphschema.TypeNull},
		{true, graphschema.TypeBoolean},
		{42, graphschema.TypeInteger},
		{42.0, graphschema.TypeInteger},
		{4.2, graphschema.TypeNumber},
		{map[string]any{"a": 1}, graphschema.TypeObject},
		{[]any{"x"}, graphschema.TypeArray},
		{"2024-03-15", graphschema.TypeDate},
		{"03/15/2024", graphschema.TypeDate},
		{"03-15-2024", graphschema.TypeDate},
		{"on 2024-03-15", graphschema.TypeString},
		{"hello", graphschema.TypeString},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.value), func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.value))
		})
	}
}

func TestAnalyzeProperty_Heuristics(t *testing.T) {
	observe := func(values ...any) *observation {
		o := newObservation(maxSampleValues)
		for _, v := range values {
			o.observe(v)
		}
		return o
	}

	a := analyze("amount", observe(1, 2.5, 3))
	assert.Equal(t, graphschema.TypeNumber, a.Type)
	assert.False(t, a.Required)
	assert.Nil(t, a.Enum)

	a = analyze("code", observe("A", 1, 2))
	assert.Equal(t, graphschema.TypeString, a.Type)

	a = analyze("flag", observe(true, nil, true))
	assert.Equal(t, graphschema.TypeBoolean, a.Type)

	a = analyze("renewal_date", observe("soon", "later", "never"))
	assert.Equal(t, graphschema.TypeDate, a.Type)

	a = analyze("vin_number", observe("V1", "V2", "V3"))
	assert.True(t, a.Required)

	a = analyze("color", observe("red", "red", "blue", "red", "blue", "red"))
	assert.True(t, a.Required)
	assert.Equal(t, []string{"blue", "red"}, a.Enum)

	values := make([]any, 15)
	for i := range values {
		values[i] = i
	}
	a = analyze("seq", observe(values...))
	assert.Len(t, a.SampleValues, maxSampleValues)
	assert.Nil(t, a.Enum)
}

func TestEvolve_CarScenario(t *testing.T) {
	reg := graphschema.NewDefault(nil)
	before := len(reg.Versions())

	report, err := NewEvolver(reg, nil, nil).Evolve(fixtures.CarBatch(6), 0.1)
	require.NoError(t, err)

	assert.Contains(t, reg.EntityTypes(), "Car")
	assert.True(t, reg.HasRelationship("COVERS_VEHICLE", "Policy", "Car"))
	require.Len(t, report.NewEntityTypes, 1)
	assert.Equal(t, "Car", report.NewEntityTypes[0].Name)
	assert.Equal(t, graphschema.TypeString, report.NewEntityTypes[0].Properties["make"].Type)
	require.Len(t, report.NewRelationshipTypes, 1)
	assert.InDelta(t, 0.2, report.NewRelationshipTypes[0].Confidence, 1e-9)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, 2, report.Applied())
	assert.Equal(t, before+2, report.Version)
	assert.Equal(t, reg.Quality(), report.Quality)

	car, ok := reg.EntityType("Car")
	require.True(t, ok)
	assert.Equal(t, []string{"Ford", "Honda", "Toyota"}, car.Properties["make"].Enum)
}

func TestEvolve_ThresholdGatesChanges(t *testing.T) {
	reg := graphschema.NewDefault(nil)
	e := NewEvolver(reg, nil, nil)

	report, err := e.Evolve(fixtures.CarBatch(6), DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Applied())
	assert.Len(t, report.Proposals.NewEntityTypes, 1, "proposals are reported even when not applied")
	assert.NotContains(t, reg.EntityTypes(), "Car")

	report, err = e.Evolve(fixtures.CarBatch(6), 0.5)
	require.NoError(t, err)
	assert.Len(t, report.NewEntityTypes, 1)
	assert.Empty(t, report.NewRelationshipTypes)
	assert.False(t, reg.HasRelationship("COVERS_VEHICLE", "Policy", "Car"))
}

func TestEvolve_NewPropertiesOnePerEntity(t *testing.T) {
	reg := graphschema.NewDefault(nil)
	data := graph.InstanceData{}
	for i := 0; i < 3; i++ {
		data.Nodes = append(data.Nodes, graph.Node{
			ID:     fmt.Sprintf("p%d", i),
			Labels: []string{"Policy"},
			Properties: map[string]any{
				"policy_number": fmt.Sprintf("P%d", i),
				"agent_code":    "A1",
				"renewal_date":  "2025-01-01",
			},
		})
	}
	before := len(reg.Versions())

	report, err := NewEvolver(reg, nil, nil).Evolve(data, 0.3)
	require.NoError(t, err)
	require.Len(t, report.NewProperties["Policy"], 2)
	assert.Equal(t, "agent_code", report.NewProperties["Policy"][0].Name)
	assert.Equal(t, graphschema.TypeDate, report.NewProperties["Policy"][1].Definition.Type)

	versions := reg.Versions()
	require.Len(t, versions, before+1)
	assert.Equal(t, "Added new properties to Policy: agent_code, renewal_date", versions[len(versions)-1].Description)

	policy, _ := reg.EntityType("Policy")
	assert.Contains(t, policy.Properties, "agent_code")
}

func TestEvolve_RelationshipToMissingEntityRejected(t *testing.T) {
	reg := graphschema.NewDefault(nil)
	data := graph.InstanceData{
		Nodes: []graph.Node{
			{ID: "px", Labels: []string{"Policy"}},
			{ID: "t1", Labels: []string{"Truck"}},
		},
	}
	for i := 0; i < 3; i++ {
		data.Edges = append(data.Edges, graph.Edge{Source: "px", Target: "t1", Type: "TOWS"})
	}

	report, err := NewEvolver(reg, nil, nil).Evolve(data, 0.5)
	require.NoError(t, err)
	assert.Empty(t, report.NewEntityTypes)
	assert.Empty(t, report.NewRelationshipTypes)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "relationship_type", report.Rejected[0].Kind)
	assert.ErrorIs(t, report.Rejected[0].Err, graphschema.ErrUnknownEntityType)
}

func TestEvolve_InvalidThreshold(t *testing.T) {
	e := NewEvolver(graphschema.NewDefault(nil), nil, nil)
	for _, th := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := e.Evolve(fixtures.CarBatch(6), th)
		require.Error(t, err)
		assert.True(t, cerrors.IsInvalid(err))
	}
}

func TestEvolve_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	m, err := NewMetrics(registry)
	require.NoError(t, err)

	reg := graphschema.NewDefault(nil)
	report, err := NewEvolver(reg, m, nil).Evolve(fixtures.CarBatch(6), 0.1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues("entity_type")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues("relationship_type")))
	assert.Equal(t, float64(report.Version), testutil.ToFloat64(registry.CoreMetrics().SchemaVersion))
	assert.Equal(t, report.Quality.Overall, testutil.ToFloat64(m.quality.WithLabelValues("overall")))

	_, err = NewMetrics(registry)
	assert.True(t, cerrors.IsInvalid(err), "metrics register once per registry")
}
