package condition

import (
	"encoding/json"
	"fmt"
)

// Operator identifies a single-condition comparison.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpBetween Operator = "between"
	OpChange  Operator = "change"
)

// LogicalOperator combines the children of a Group.
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// Expr is either a *Single condition or a nested *Group.
// The set is closed; evaluation dispatches on the concrete type.
type Expr interface {
	isExpr()
}

// Single compares one snapshot field against a value.
// Value is a scalar, or a [min, max] pair for the between operator.
type Single struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

func (*Single) isExpr() {}

// Group combines child expressions with AND/OR. Children own their subtrees,
// so the structure is a tree and recursion needs no cycle handling.
type Group struct {
	Operator   LogicalOperator `json:"operator"`
	Conditions []Expr          `json:"conditions"`
}

func (*Group) isExpr() {}

// UnmarshalJSON dispatches each child on the presence of a "conditions" key:
// objects that have one are nested groups, everything else is a single condition.
func (g *Group) UnmarshalJSON(data []byte) error {
	var raw struct {
		Operator   LogicalOperator   `json:"operator"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	g.Operator = raw.Operator
	g.Conditions = make([]Expr, 0, len(raw.Conditions))

	for i, rm := range raw.Conditions {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(rm, &probe); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}

		if _, nested := probe["conditions"]; nested {
			child := &Group{}
			if err := json.Unmarshal(rm, child); err != nil {
				return fmt.Errorf("condition %d: %w", i, err)
			}
			g.Conditions = append(g.Conditions, child)
			continue
		}

		single := &Single{}
		if err := json.Unmarshal(rm, single); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
		g.Conditions = append(g.Conditions, single)
	}

	return nil
}

// Decode builds an Expr from a generic map, the shape condition payloads take
// when they arrive embedded in flow node data rather than as raw JSON.
func Decode(m map[string]any) (Expr, error) {
	if m == nil {
		return nil, fmt.Errorf("condition is nil")
	}

	rawConditions, nested := m["conditions"]
	if !nested {
		field, _ := m["field"].(string)
		op, err := decodeOperator(m["operator"])
		if err != nil {
			return nil, err
		}
		return &Single{Field: field, Operator: op, Value: m["value"]}, nil
	}

	children, ok := rawConditions.([]any)
	if !ok {
		return nil, fmt.Errorf("conditions must be a list, got %T", rawConditions)
	}

	group := &Group{Operator: And}
	if op, ok := m["operator"].(string); ok && op != "" {
		group.Operator = LogicalOperator(op)
	}
	if group.Operator != And && group.Operator != Or {
		return nil, fmt.Errorf("unknown logical operator %q", group.Operator)
	}

	for i, raw := range children {
		childMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition %d: expected map, got %T", i, raw)
		}
		child, err := Decode(childMap)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		group.Conditions = append(group.Conditions, child)
	}

	return group, nil
}

func decodeOperator(v any) (Operator, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("condition operator missing")
	}
	op := Operator(s)
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpBetween, OpChange:
		return op, nil
	}
	return "", fmt.Errorf("unknown condition operator %q", s)
}
