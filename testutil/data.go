package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/c360/graphrag/graph"
)

// InsuranceGraph returns the fixture graph used across query tests.
//
//	P1001 (auto)  -HAS_COVERAGE-> C1 liability 500000 / 1000, C2 collision 50000 / 500
//	P1001         -INSURES->      I1 Jane Doe (ID123)
//	P1001         -HAS_PREMIUM->  PR1 1200 monthly
//	P1002 (home)  -HAS_COVERAGE-> C3 flood 250000 / 2500
//	P1002         -INSURES->      I2 John Roe (ID456)
//	I1            -FILES_CLAIM->  CL4001 pending 2500
//	I2            -FILES_CLAIM->  CL4002 approved 8000
//	D1 Definition "deductible" (alias "excess")
func InsuranceGraph() graph.InstanceData {
	return graph.InstanceData{
		Nodes: []graph.Node{
			{ID: "P1001", Labels: []string{"Policy"}, Properties: map[string]any{
				"policy_number": "P1001", "type": "auto", "status": "active",
				"effective_date": "2024-01-01", "expiration_date": "2025-01-01",
			}},
			{ID: "P1002", Labels: []string{"Policy"}, Properties: map[string]any{
				"policy_number": "P1002", "type": "home", "status": "active",
				"effective_date": "2024-02-01", "expiration_date": "2025-02-01",
			}},
			{ID: "I1", Labels: []string{"Insured"}, Properties: map[string]any{
				"name": "Jane Doe", "id_number": "ID123",
			}},
			{ID: "I2", Labels: []string{"Insured"}, Properties: map[string]any{
				"name": "John Roe", "id_number": "ID456",
			}},
			{ID: "C1", Labels: []string{"Coverage"}, Properties: map[string]any{
				"type": "liability", "limit": 500000, "deductible": 1000,
			}},
			{ID: "C2", Labels: []string{"Coverage"}, Properties: map[string]any{
				"type": "collision", "limit": 50000, "deductible": 500,
			}},
			{ID: "C3", Labels: []string{"Coverage"}, Properties: map[string]any{
				"type": "flood", "limit": 250000, "deductible": 2500,
			}},
			{ID: "CL4001", Labels: []string{"Claim"}, Properties: map[string]any{
				"claim_number": "CL4001", "date_of_loss": "2024-03-15", "status": "pending", "amount": 2500,
			}},
			{ID: "CL4002", Labels: []string{"Claim"}, Properties: map[string]any{
				"claim_number": "CL4002", "date_of_loss": "2024-05-02", "status": "approved", "amount": 8000,
			}},
			{ID: "PR1", Labels: []string{"Premium"}, Properties: map[string]any{
				"amount": 1200, "payment_frequency": "monthly", "due_date": "2024-07-01",
			}},
			{ID: "D1", Labels: []string{"Definition"}, Properties: map[string]any{
				"term":    "deductible",
				"meaning": "the amount you pay out of pocket before your insurance coverage begins to pay",
				"aliases": []any{"excess"},
			}},
		},
		Edges: []graph.Edge{
			{Source: "P1001", Target: "C1", Type: "HAS_COVERAGE"},
			{Source: "P1001", Target: "C2", Type: "HAS_COVERAGE"},
			{Source: "P1002", Target: "C3", Type: "HAS_COVERAGE"},
			{Source: "P1001", Target: "I1", Type: "INSURES"},
			{Source: "P1002", Target: "I2", Type: "INSURES"},
			{Source: "P1001", Target: "PR1", Type: "HAS_PREMIUM"},
			{Source: "I1", Target: "CL4001", Type: "FILES_CLAIM"},
			{Source: "I2", Target: "CL4002", Type: "FILES_CLAIM"},
		},
	}
}

// InsuranceStore returns a store loaded with InsuranceGraph.
func InsuranceStore() *graph.Store {
	s := graph.NewStore(nil)
	s.Load(InsuranceGraph())
	return s
}

// InsuranceGraphJSON returns InsuranceGraph encoded in the ingestion format.
func InsuranceGraphJSON() []byte {
	raw, err := json.Marshal(InsuranceGraph())
	if err != nil {
		panic(err)
	}
	return raw
}

// CarBatch returns n Car nodes that all carry make and year, plus one Policy that
// covers the first car. Car is not part of the default schema.
func CarBatch(n int) graph.InstanceData {
	makes := []string{"Toyota", "Honda", "Ford"}
	data := graph.InstanceData{
		Nodes: []graph.Node{{ID: "PX", Labels: []string{"Policy"}, Properties: map[string]any{
			"policy_number": "PX", "vin_count": 1,
		}}},
	}
	for i := 0; i < n; i++ {
		data.Nodes = append(data.Nodes, graph.Node{
			ID:     fmt.Sprintf("car-%d", i),
			Labels: []string{"Car"},
			Properties: map[string]any{
				"make": makes[i%len(makes)],
				"year": 2015 + i,
			},
		})
	}
	if n > 0 {
		data.Edges = append(data.Edges, graph.Edge{Source: "PX", Target: "car-0", Type: "COVERS_VEHICLE"})
	}
	return data
}
