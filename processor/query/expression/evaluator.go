package expression

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/c360/graphrag/types/graphquery"
)

// Evaluator applies filter conditions using a registry of operators.
type Evaluator struct {
	operators map[string]OperatorFunc
}

// NewEvaluator creates an evaluator with =, !=, >, < and CONTAINS registered.
func NewEvaluator() *Evaluator {
	e := &Evaluator{operators: make(map[string]OperatorFunc)}
	e.Register(graphquery.OpEqual, operatorEqual)
	e.Register(graphquery.OpNotEqual, operatorNotEqual)
	e.Register(graphquery.OpGreaterThan, operatorGreaterThan)
	e.Register(graphquery.OpLessThan, operatorLessThan)
	e.Register(graphquery.OpContains, operatorContains)
	return e
}

// Register adds or replaces an operator.
func (e *Evaluator) Register(op string, fn OperatorFunc) {
	e.operators[op] = fn
}

// Supports reports whether op is registered.
func (e *Evaluator) Supports(op string) bool {
	_, ok := e.operators[op]
	return ok
}

// Match evaluates one condition against a node's properties. A missing property
// never matches. An unknown operator returns an error wrapping ErrUnsupportedOperator.
func (e *Evaluator) Match(props map[string]any, c graphquery.Condition, policy CasePolicy) (bool, error) {
	fn, ok := e.operators[c.Operator]
	if !ok {
		return false, &EvaluationError{Alias: c.Alias, Property: c.Property, Operator: c.Operator, Err: ErrUnsupportedOperator}
	}

	value, ok := props[c.Property]
	if !ok {
		return false, nil
	}

	matched, err := fn(value, c.Value, policy)
	if err != nil {
		return false, &EvaluationError{Alias: c.Alias, Property: c.Property, Operator: c.Operator, Err: err}
	}
	return matched, nil
}

// Resolver returns the properties of the node bound to alias.
type Resolver func(alias string) (map[string]any, bool)

// MatchCompound evaluates an AND/OR group. Conditions with unsupported operators
// are skipped and reported through skipped; a group whose conditions were all
// skipped passes. Conditions on an unbound alias do not match.
func (e *Evaluator) MatchCompound(f graphquery.Filter, resolve Resolver, policy CasePolicy) (matched bool, skipped []error) {
	evaluated := 0
	for _, c := range f.Conditions {
		props, ok := resolve(c.Alias)
		var hit bool
		if ok {
			var err error
			hit, err = e.Match(props, c, policy)
			if err != nil {
				skipped = append(skipped, err)
				continue
			}
		}
		evaluated++

		switch f.Logic {
		case graphquery.And:
			if !hit {
				return false, skipped
			}
		default:
			if hit {
				return true, skipped
			}
		}
	}

	if evaluated == 0 {
		return true, skipped
	}
	// AND saw no miss; OR saw no hit.
	return f.Logic == graphquery.And, skipped
}

func operatorEqual(fieldValue, compareValue any, policy CasePolicy) (bool, error) {
	return equal(fieldValue, compareValue, policy), nil
}

// operatorNotEqual always compares strings exactly; only = follows the caller's
// case policy.
func operatorNotEqual(fieldValue, compareValue any, _ CasePolicy) (bool, error) {
	return !equal(fieldValue, compareValue, CaseSensitive), nil
}

func operatorGreaterThan(fieldValue, compareValue any, _ CasePolicy) (bool, error) {
	a, b, ok := numericPair(fieldValue, compareValue)
	return ok && a > b, nil
}

func operatorLessThan(fieldValue, compareValue any, _ CasePolicy) (bool, error) {
	a, b, ok := numericPair(fieldValue, compareValue)
	return ok && a < b, nil
}

// operatorContains is a case-insensitive substring test on strings and a membership
// test on arrays.
func operatorContains(fieldValue, compareValue any, _ CasePolicy) (bool, error) {
	needle, ok := compareValue.(string)
	if !ok {
		needle = fmt.Sprintf("%v", compareValue)
	}

	switch v := fieldValue.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), strings.ToLower(needle)), nil
	case []string:
		for _, item := range v {
			if strings.EqualFold(item, needle) {
				return true, nil
			}
		}
		return false, nil
	case []any:
		for _, item := range v {
			if equal(item, needle, CaseInsensitive) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func equal(a, b any, policy CasePolicy) bool {
	if x, y, ok := numericPair(a, b); ok {
		return x == y
	}

	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString && bIsString {
		if policy == CaseInsensitive {
			return strings.EqualFold(as, bs)
		}
		return as == bs
	}

	return reflect.DeepEqual(a, b)
}

func numericPair(a, b any) (float64, float64, bool) {
	x, ok := toFloat64(a)
	if !ok {
		return 0, 0, false
	}
	y, ok := toFloat64(b)
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
