// Package executor evaluates graph queries against a property graph by incremental
// path binding.
//
// Execution resolves and filters the start nodes, then extends a list of bindings
// (alias to node assignments) one path step at a time. Each step follows edges of the
// step's type from the node bound to the step's source alias and keeps the neighbors
// that carry the target label and pass the filters on the target alias. Only bindings
// sharing the traversed node are extended, so a step is an equi-join rather than a
// cross product.
//
// String equality is case-insensitive on start nodes and case-sensitive on
// path-extended nodes. Compound filters are evaluated on path-extended nodes only.
package executor

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"slices"

	"github.com/c360/graphrag/graph"
	"github.com/c360/graphrag/processor/query/expression"
	gq "github.com/c360/graphrag/types/graphquery"
)

// Graph is the read side of the property graph store.
type Graph interface {
	Node(id string) (*graph.Node, bool)
	NodesByLabel(label string) iter.Seq[*graph.Node]
	OutEdges(id, edgeType string) iter.Seq[*graph.Edge]
	InEdges(id, edgeType string) iter.Seq[*graph.Edge]
}

// Option configures an Executor.
type Option func(*Executor)

// WithEvaluator replaces the filter evaluator, for example to add operators.
func WithEvaluator(ev *expression.Evaluator) Option {
	return func(x *Executor) {
		if ev != nil {
			x.evaluator = ev
		}
	}
}

// WithMetrics records binding counts and failures.
func WithMetrics(m *Metrics) Option {
	return func(x *Executor) {
		x.metrics = m
	}
}

// Executor runs graph queries. It only reads the graph.
type Executor struct {
	graph     Graph
	evaluator *expression.Evaluator
	metrics   *Metrics
	logger    *slog.Logger
}

// New creates an executor over g.
func New(g Graph, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	x := &Executor{
		graph:     g,
		evaluator: expression.NewEvaluator(),
		logger:    logger.With("component", "executor"),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// binding assigns nodes to aliases in the order they were bound.
type binding struct {
	order []string
	nodes map[string]*graph.Node
}

func newBinding(alias string, n *graph.Node) binding {
	return binding{order: []string{alias}, nodes: map[string]*graph.Node{alias: n}}
}

func (b binding) extend(alias string, n *graph.Node) binding {
	nodes := make(map[string]*graph.Node, len(b.nodes)+1)
	for k, v := range b.nodes {
		nodes[k] = v
	}
	order := b.order
	if _, rebound := nodes[alias]; !rebound {
		order = append(slices.Clip(order), alias)
	}
	nodes[alias] = n
	return binding{order: order, nodes: nodes}
}

func (b binding) resolve(alias string) (map[string]any, bool) {
	n, ok := b.nodes[alias]
	if !ok {
		return nil, false
	}
	return n.Properties, true
}

// Execute runs spec. A procedural spec returns its payload without reading the graph.
// On failure the returned result carries the message with a zero count and the error
// is an *ExecutionError; zero matches is a successful execution.
func (x *Executor) Execute(ctx context.Context, spec *gq.Spec) (res *gq.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Step: -1, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			x.metrics.recordError()
			x.logger.Warn("query execution failed", "error", err)
			res = gq.NewResult()
			res.Error = err.Error()
		}
	}()

	if spec == nil {
		return nil, &ExecutionError{Step: -1, Err: fmt.Errorf("nil query")}
	}

	result := gq.NewResult()
	if spec.IsProcedural() {
		p := *spec.Procedural
		result.Procedural = &p
		return result, nil
	}

	starts := make([][]binding, len(spec.StartNodes))
	for i, sn := range spec.StartNodes {
		starts[i] = x.resolveStart(sn, spec.Filters)
	}

	// Without paths every start set is projected but only the first is counted.
	if len(spec.Paths) == 0 {
		for _, set := range starts {
			for _, b := range set {
				x.project(result, b, spec.ReturnProperties)
			}
		}
		if len(starts) > 0 {
			result.Count = len(starts[0])
		}
		result.StepCounts = []int{result.Count}
		x.metrics.observeSteps(result.StepCounts)
		return result, nil
	}

	var bindings []binding
	if len(starts) > 0 {
		bindings = starts[0]
	}
	result.StepCounts = append(result.StepCounts, len(bindings))

	for i, step := range spec.Paths {
		if err := ctx.Err(); err != nil {
			return nil, &ExecutionError{Step: i, Err: err}
		}
		next, err := x.extend(bindings, step, spec.Filters)
		if err != nil {
			return nil, &ExecutionError{Step: i, Err: err}
		}
		bindings = next
		result.StepCounts = append(result.StepCounts, len(bindings))
	}

	for _, b := range bindings {
		x.project(result, b, spec.ReturnProperties)
	}
	result.Count = len(bindings)
	x.metrics.observeSteps(result.StepCounts)

	x.logger.Debug("query executed", "start_nodes", len(spec.StartNodes), "paths", len(spec.Paths), "count", result.Count)
	return result, nil
}

func (x *Executor) resolveStart(sn gq.StartNode, filters []gq.Filter) []binding {
	var out []binding
	for n := range x.graph.NodesByLabel(sn.Label) {
		if x.passesSimple(n.Properties, sn.Alias, filters, expression.CaseInsensitive) {
			out = append(out, newBinding(sn.Alias, n))
		}
	}
	return out
}

// passesSimple applies the simple filters on alias. Filters with an unknown operator
// are skipped.
func (x *Executor) passesSimple(props map[string]any, alias string, filters []gq.Filter, policy expression.CasePolicy) bool {
	for _, f := range filters {
		if f.Kind != gq.KindSimple || f.Condition.Alias != alias {
			continue
		}
		ok, err := x.evaluator.Match(props, f.Condition, policy)
		if err != nil {
			x.logger.Debug("filter skipped", "alias", alias, "error", err)
			continue
		}
		if !ok {
			return false
		}
	}
	return true
}

func (x *Executor) passesCompound(b binding, alias string, filters []gq.Filter) bool {
	for _, f := range filters {
		if f.Kind != gq.KindCompound || !f.References(alias) {
			continue
		}
		ok, skipped := x.evaluator.MatchCompound(f, b.resolve, expression.CaseSensitive)
		for _, err := range skipped {
			x.logger.Debug("condition skipped", "alias", alias, "error", err)
		}
		if !ok {
			return false
		}
	}
	return true
}

func (x *Executor) extend(bindings []binding, step gq.PathStep, filters []gq.Filter) ([]binding, error) {
	var next []binding
	for _, b := range bindings {
		from, ok := b.nodes[step.From.Alias]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrAliasNotBound, step.From.Alias)
		}

		for _, id := range x.neighbors(from.ID, step.Relationship) {
			n, ok := x.graph.Node(id)
			if !ok {
				continue
			}
			if step.To.Label != "" && !n.HasLabel(step.To.Label) {
				continue
			}
			if !x.passesSimple(n.Properties, step.To.Alias, filters, expression.CaseSensitive) {
				continue
			}
			candidate := b.extend(step.To.Alias, n)
			if !x.passesCompound(candidate, step.To.Alias, filters) {
				continue
			}
			next = append(next, candidate)
		}
	}
	return next, nil
}

// neighbors returns the distinct neighbor ids of id across edges of rel.Type in
// rel.Direction, in edge order.
func (x *Executor) neighbors(id string, rel gq.Relationship) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(n string) {
		if _, dup := seen[n]; dup {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	if rel.Direction != gq.Incoming {
		for e := range x.graph.OutEdges(id, rel.Type) {
			add(e.Target)
		}
	}
	if rel.Direction == gq.Incoming || rel.Direction == gq.Both {
		for e := range x.graph.InEdges(id, rel.Type) {
			add(e.Source)
		}
	}
	return out
}

func (x *Executor) project(result *gq.Result, b binding, returns []gq.ReturnProperty) {
	path := gq.PathResult{
		Nodes:      make(map[string]string, len(b.order)),
		Properties: make(map[string]any),
	}
	for _, alias := range b.order {
		path.Nodes[alias] = b.nodes[alias].ID
	}

	for _, rp := range returns {
		n, ok := b.nodes[rp.Alias]
		if !ok {
			continue
		}
		v, ok := n.Property(rp.Property)
		if !ok {
			continue
		}
		key := rp.Key()
		path.Properties[key] = v
		if !slices.ContainsFunc(result.Properties[key], func(seen any) bool { return reflect.DeepEqual(seen, v) }) {
			result.Properties[key] = append(result.Properties[key], v)
		}
	}
	result.Paths = append(result.Paths, path)
}
