package runtime

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
)

// exprPattern matches params of the form ${ expression }. Anything else is a
// literal and passes through untouched.
var exprPattern = regexp.MustCompile(`^\$\{(.*)\}$`)

// EvaluateParams resolves expression placeholders in an action node's params
// against the execution's variables. Maps and arrays are walked recursively,
// so nested payloads can template individual leaves.
func EvaluateParams(params, variables map[string]any) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		evaluated, err := evaluateValue(v, variables)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		out[k] = evaluated
	}
	return out, nil
}

func evaluateValue(value any, variables map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		matches := exprPattern.FindStringSubmatch(v)
		if matches == nil {
			return v, nil
		}
		return evalExpression(matches[1], variables)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			evaluated, err := evaluateValue(val, variables)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = evaluated
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			evaluated, err := evaluateValue(val, variables)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = evaluated
		}
		return out, nil
	default:
		return value, nil
	}
}

func evalExpression(expression string, variables map[string]any) (any, error) {
	env := make(map[string]any, len(variables)+1)
	for k, v := range variables {
		env[k] = v
	}
	// null alias for JSON/YAML authored flows
	env["null"] = nil

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("compiling expression %q: %w", expression, err)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluating expression %q: %w", expression, err)
	}
	return result, nil
}
