package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/graphrag/graph"
	"github.com/c360/graphrag/metric"
	"github.com/c360/graphrag/processor/query/builder"
	"github.com/c360/graphrag/processor/query/expression"
	"github.com/c360/graphrag/processor/query/intent"
	"github.com/c360/graphrag/processor/query/params"
	fixtures "github.com/c360/graphrag/testutil"
	gq "github.com/c360/graphrag/types/graphquery"
)

func policyToCoverage() gq.PathStep {
	return gq.PathStep{
		From:         gq.NodeRef{Alias: "p", Label: "Policy"},
		Relationship: gq.Relationship{Type: "HAS_COVERAGE", Direction: gq.Outgoing},
		To:           gq.NodeRef{Alias: "c", Label: "Coverage"},
	}
}

func TestExecute_CoverageScenario(t *testing.T) {
	store := graph.NewStore(nil)
	store.AddNode("P1001", []string{"Policy"}, map[string]any{"policy_number": "P1001"})
	store.AddNode("C1", []string{"Coverage"}, map[string]any{"type": "liability", "limit": 500000})
	store.AddEdge("P1001", "C1", "HAS_COVERAGE", nil)

	spec := builder.New().Build(intent.CoverageInquiry, params.Params{params.KeyPolicyNumber: "P1001"})
	res, err := New(store, nil).Execute(context.Background(), spec)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Count, 1)
	assert.Equal(t, []any{"liability"}, res.Values("c.type"))
	assert.Equal(t, []any{500000}, res.Values("c.limit"))
	require.Len(t, res.Paths, 1)
	assert.Equal(t, map[string]string{"p": "P1001", "c": "C1"}, res.Paths[0].Nodes)
}

func TestExecute_EmptyStartSet(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)

	specs := []*gq.Spec{
		{StartNodes: []gq.StartNode{{Label: "Vehicle", Alias: "v"}}, ReturnProperties: []gq.ReturnProperty{{Alias: "v", Property: "vin"}}},
		{
			StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
			Paths:            []gq.PathStep{policyToCoverage()},
			Filters:          []gq.Filter{gq.Where("p", "policy_number", "=", "P9999")},
			ReturnProperties: []gq.ReturnProperty{{Alias: "c", Property: "type"}},
		},
	}
	for _, spec := range specs {
		res, err := x.Execute(context.Background(), spec)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Count)
		assert.Empty(t, res.Properties)
		assert.Empty(t, res.Error)
	}
}

func TestExecute_NoPathProjection(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		ReturnProperties: []gq.ReturnProperty{
			{Alias: "p", Property: "status"},
			{Alias: "p", Property: "policy_number"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []any{"active"}, res.Values("p.status"), "values are deduplicated")
	assert.Equal(t, []any{"P1001", "P1002"}, res.Values("p.policy_number"))
	assert.Len(t, res.Paths, 2)
	assert.Equal(t, []int{2}, res.StepCounts)
}

func TestExecute_NoPathCountsFirstStartSet(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}, {Label: "Claim", Alias: "cl"}},
		Filters:    []gq.Filter{gq.Where("p", "policy_number", "=", "P1001")},
		ReturnProperties: []gq.ReturnProperty{
			{Alias: "p", Property: "policy_number"},
			{Alias: "cl", Property: "claim_number"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []int{1}, res.StepCounts)
	assert.Equal(t, []any{"P1001"}, res.Values("p.policy_number"))
	assert.Equal(t, []any{"CL4001", "CL4002"}, res.Values("cl.claim_number"), "later start sets are still projected")
}

func TestExecute_StartFilterIsCaseInsensitive(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Filters:          []gq.Filter{gq.Where("p", "type", "=", "AUTO")},
		ReturnProperties: []gq.ReturnProperty{{Alias: "p", Property: "policy_number"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"P1001"}, res.Values("p.policy_number"))
}

func TestExecute_StartFilterNotEqualIsCaseSensitive(t *testing.T) {
	store := graph.NewStore(nil)
	store.AddNode("P1", []string{"Policy"}, map[string]any{"policy_number": "P1", "status": "active"})

	res, err := New(store, nil).Execute(context.Background(), &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Filters:          []gq.Filter{gq.Where("p", "status", "!=", "ACTIVE")},
		ReturnProperties: []gq.ReturnProperty{{Alias: "p", Property: "policy_number"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []any{"P1"}, res.Values("p.policy_number"))
}

func TestExecute_PathFilterIsCaseSensitive(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)

	spec := &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Paths:            []gq.PathStep{policyToCoverage()},
		Filters:          []gq.Filter{gq.Where("c", "type", "=", "Flood")},
		ReturnProperties: []gq.ReturnProperty{{Alias: "c", Property: "type"}},
	}
	res, err := x.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)

	spec.Filters = []gq.Filter{gq.Where("c", "type", "=", "flood")}
	res, err = x.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestExecute_NumericFilters(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Paths:      []gq.PathStep{policyToCoverage()},
		Filters: []gq.Filter{
			gq.Where("c", "limit", ">", 100000),
			gq.Where("c", "deductible", "<", 2000.0),
		},
		ReturnProperties: []gq.ReturnProperty{{Alias: "c", Property: "type"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"liability"}, res.Values("c.type"))
}

func TestExecute_CompoundFilters(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)
	base := func(f gq.Filter) *gq.Spec {
		return &gq.Spec{
			StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
			Paths:            []gq.PathStep{policyToCoverage()},
			Filters:          []gq.Filter{f},
			ReturnProperties: []gq.ReturnProperty{{Alias: "c", Property: "type"}},
		}
	}

	res, err := x.Execute(context.Background(), base(gq.AnyOf(
		gq.Condition{Alias: "c", Property: "type", Operator: "=", Value: "liability"},
		gq.Condition{Alias: "c", Property: "type", Operator: "=", Value: "flood"},
	)))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.ElementsMatch(t, []any{"liability", "flood"}, res.Values("c.type"))

	res, err = x.Execute(context.Background(), base(gq.AllOf(
		gq.Condition{Alias: "c", Property: "type", Operator: "=", Value: "liability"},
		gq.Condition{Alias: "p", Property: "policy_number", Operator: "=", Value: "P1001"},
	)))
	require.NoError(t, err)
	assert.Equal(t, []any{"liability"}, res.Values("c.type"))

	res, err = x.Execute(context.Background(), base(gq.AllOf(
		gq.Condition{Alias: "c", Property: "type", Operator: "=", Value: "liability"},
		gq.Condition{Alias: "c", Property: "limit", Operator: "<", Value: 1000},
	)))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
}

func TestExecute_CompoundSkippedAtStartNodes(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Definition", Alias: "d"}},
		Filters: []gq.Filter{gq.AnyOf(
			gq.Condition{Alias: "d", Property: "term", Operator: "=", Value: "no-such-term"},
		)},
		ReturnProperties: []gq.ReturnProperty{{Alias: "d", Property: "term"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestExecute_UnknownOperatorIsSkipped(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Filters: []gq.Filter{
			gq.Where("p", "policy_number", "LIKE", "P%"),
			gq.Where("p", "policy_number", "=", "P1002"),
		},
		ReturnProperties: []gq.ReturnProperty{{Alias: "p", Property: "type"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"home"}, res.Values("p.type"))
}

func TestExecute_CustomOperator(t *testing.T) {
	ev := expression.NewEvaluator()
	ev.Register("LIKE", func(field, _ any, _ expression.CasePolicy) (bool, error) {
		return field == "P1002", nil
	})
	x := New(fixtures.InsuranceStore(), nil, WithEvaluator(ev))

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Filters:          []gq.Filter{gq.Where("p", "policy_number", "LIKE", "P%")},
		ReturnProperties: []gq.ReturnProperty{{Alias: "p", Property: "type"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"home"}, res.Values("p.type"))
}

func TestExecute_Directions(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)
	spec := func(dir gq.Direction) *gq.Spec {
		return &gq.Spec{
			StartNodes: []gq.StartNode{{Label: "Insured", Alias: "i"}},
			Paths: []gq.PathStep{{
				From:         gq.NodeRef{Alias: "i", Label: "Insured"},
				Relationship: gq.Relationship{Direction: dir},
				To:           gq.NodeRef{Alias: "n"},
			}},
			Filters:          []gq.Filter{gq.Where("i", "id_number", "=", "ID123")},
			ReturnProperties: []gq.ReturnProperty{{Alias: "n", Property: "policy_number"}, {Alias: "n", Property: "claim_number"}},
		}
	}

	res, err := x.Execute(context.Background(), spec(gq.Outgoing))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []any{"CL4001"}, res.Values("n.claim_number"))

	res, err = x.Execute(context.Background(), spec(gq.Incoming))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []any{"P1001"}, res.Values("n.policy_number"))

	res, err = x.Execute(context.Background(), spec(gq.Both))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
}

func TestExecute_ParallelEdgesBindOnce(t *testing.T) {
	store := fixtures.InsuranceStore()
	store.AddEdge("P1001", "C1", "HAS_COVERAGE", map[string]any{"endorsement": true})
	x := New(store, nil)

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Paths:            []gq.PathStep{policyToCoverage()},
		Filters:          []gq.Filter{gq.Where("p", "policy_number", "=", "P1001")},
		ReturnProperties: []gq.ReturnProperty{{Alias: "c", Property: "type"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
}

func TestExecute_MultiStepWithUser(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)
	b := builder.New()

	spec := b.Build(intent.PremiumInformation, params.Params{params.KeyUserID: "ID123"})
	res, err := x.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []any{1200}, res.Values("pr.amount"))
	assert.Equal(t, []int{2, 1, 1}, res.StepCounts)
	assert.Equal(t, map[string]string{"p": "P1001", "pr": "PR1", "i": "I1"}, res.Paths[0].Nodes)

	spec = b.Build(intent.ClaimStatus, params.Params{params.KeyUserID: "ID456"})
	res, err = x.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, []any{"approved"}, res.Values("c.status"))
}

func TestExecute_MonotonicNarrowing(t *testing.T) {
	x := New(fixtures.InsuranceStore(), nil)
	spec := &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Paths: []gq.PathStep{
			{
				From:         gq.NodeRef{Alias: "p", Label: "Policy"},
				Relationship: gq.Relationship{Type: "INSURES", Direction: gq.Outgoing},
				To:           gq.NodeRef{Alias: "i", Label: "Insured"},
			},
			{
				From:         gq.NodeRef{Alias: "i", Label: "Insured"},
				Relationship: gq.Relationship{Type: "FILES_CLAIM", Direction: gq.Outgoing},
				To:           gq.NodeRef{Alias: "c", Label: "Claim"},
			},
		},
		Filters:          []gq.Filter{gq.Where("c", "status", "=", "pending")},
		ReturnProperties: []gq.ReturnProperty{{Alias: "c", Property: "claim_number"}},
	}

	res, err := x.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, res.StepCounts)
	for k := 1; k < len(res.StepCounts); k++ {
		assert.LessOrEqual(t, res.StepCounts[k], res.StepCounts[k-1])
	}
	assert.Equal(t, []any{"CL4001"}, res.Values("c.claim_number"))
}

func TestExecute_Procedural(t *testing.T) {
	x := New(nil, nil)

	res, err := x.Execute(context.Background(), builder.New().Build(intent.FilingClaim, nil))
	require.NoError(t, err)
	require.True(t, res.IsProcedural())
	assert.Equal(t, builder.FilingRequiredInfo, res.Procedural.RequiredInfo)
	assert.Equal(t, 0, res.Count)
}

func TestExecute_Failures(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	m, err := NewMetrics(registry)
	require.NoError(t, err)
	x := New(fixtures.InsuranceStore(), nil, WithMetrics(m))

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Paths: []gq.PathStep{{
			From:         gq.NodeRef{Alias: "q", Label: "Policy"},
			Relationship: gq.Relationship{Type: "HAS_COVERAGE", Direction: gq.Outgoing},
			To:           gq.NodeRef{Alias: "c", Label: "Coverage"},
		}},
	})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 0, execErr.Step)
	assert.True(t, errors.Is(err, ErrAliasNotBound))
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, err.Error(), res.Error)

	_, err = x.Execute(context.Background(), nil)
	require.ErrorAs(t, err, &execErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = x.Execute(ctx, &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Paths:      []gq.PathStep{policyToCoverage()},
	})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.errors))
}

func TestExecute_PanicIsRecovered(t *testing.T) {
	ev := expression.NewEvaluator()
	ev.Register("BOOM", func(any, any, expression.CasePolicy) (bool, error) { panic("operator bug") })
	x := New(fixtures.InsuranceStore(), nil, WithEvaluator(ev))

	res, err := x.Execute(context.Background(), &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Filters:    []gq.Filter{gq.Where("p", "type", "BOOM", "x")},
	})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "operator bug")
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.Properties)
}

func TestNewMetrics_NilRegistry(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}
