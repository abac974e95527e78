package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowgrid/flowgrid/runtime/condition"
	"github.com/flowgrid/flowgrid/runtime/plugin"
)

// defaultMaxSteps bounds a single walk so a malformed flow cannot spin the
// engine forever. Legal flows are trees over labeled edges and never get close.
const defaultMaxSteps = 1000

// Engine interprets flow graphs: it walks from the trigger one node at a
// time, invoking registered actions, delegating condition nodes to the
// evaluator, and following the edge the node's outcome selects. Nodes within
// one execution never run concurrently; independent executions may run in
// parallel and share only the registry.
type Engine struct {
	l          *slog.Logger
	registry   *plugin.Registry
	conditions *condition.Evaluator
	maxSteps   int
}

func NewEngine(l *slog.Logger, registry *plugin.Registry, conditions *condition.Evaluator) *Engine {
	return &Engine{
		l:          l,
		registry:   registry,
		conditions: conditions,
		maxSteps:   defaultMaxSteps,
	}
}

// Execute runs the flow once with the given initial variables. It returns the
// execution record in every case; the error is non-nil when the run failed
// (unrecovered action error or configuration problem). A failure routed over
// an error edge whose recovery path completes still reports StatusCompleted.
func (e *Engine) Execute(ctx context.Context, flow *Flow, initial map[string]any) (*Execution, error) {
	exec := NewExecution(flow, initial)
	e.l.Info("flow execution started", "flow", flow.ID, "execution", exec.ID)

	node, err := flow.TriggerNode()
	if err != nil {
		exec.finish(StatusFailed)
		return exec, err
	}

	// Nodes whose action failed but was routed over a failure edge. They are
	// promoted to completed once the recovery node itself completes.
	var pendingRecovery []string

	promote := func() {
		for _, id := range pendingRecovery {
			result := exec.NodeResults[id]
			result.Status = NodeCompleted
			exec.recordNode(id, result)
		}
		pendingRecovery = nil
	}

	fail := func(nodeID string, err error) (*Execution, error) {
		exec.finish(StatusFailed)
		e.l.Error("flow execution failed", "flow", flow.ID, "execution", exec.ID, "node", nodeID, "error", err)
		return exec, err
	}

	for steps := 0; ; steps++ {
		if steps >= e.maxSteps {
			return fail(node.ID, newExecutionError(ErrorCodeMaxSteps,
				fmt.Sprintf("flow %s exceeded %d steps", flow.ID, e.maxSteps), node.ID, nil))
		}
		if _, seen := exec.NodeResults[node.ID]; seen {
			return fail(node.ID, newConfigError(ErrorCodeNodeRevisited,
				fmt.Sprintf("node %s visited twice in one execution", node.ID), node.ID))
		}

		var next *Edge

		switch node.Type {
		case NodeTrigger:
			exec.recordNode(node.ID, NodeResult{Status: NodeCompleted})
			next, _ = flow.DefaultEdge(node.ID)

		case NodeAction:
			edge, err := e.runAction(ctx, flow, exec, node, &pendingRecovery)
			if err != nil {
				return fail(node.ID, err)
			}
			if edge != nil && (edge.SourceHandle == HandleError || edge.Type == EdgeFailure) {
				// Recovery path: skip promotion, the failing node stays
				// pending until the recovery node completes.
				next = edge
				break
			}
			promote()
			next = edge

		case NodeCondition:
			met, err := e.runCondition(exec, node)
			if err != nil {
				return fail(node.ID, err)
			}
			promote()
			handle := HandleFalse
			if met {
				handle = HandleTrue
			}
			// A missing branch edge ends the walk without error.
			next, _ = flow.EdgeWithHandle(node.ID, handle)

		case NodeLoop:
			var data LoopNodeData
			if err := decodeNodeData(node, &data); err != nil {
				return fail(node.ID, err)
			}
			sequence := make([]int, data.Count)
			for i := range sequence {
				sequence[i] = i
			}
			exec.recordNode(node.ID, NodeResult{Status: NodeCompleted, Output: sequence})
			promote()
			next, _ = flow.DefaultEdge(node.ID)

		case NodeDelay:
			var data DelayNodeData
			if err := decodeNodeData(node, &data); err != nil {
				return fail(node.ID, err)
			}
			if err := e.sleep(ctx, time.Duration(data.DelayMs)*time.Millisecond); err != nil {
				exec.recordNode(node.ID, NodeResult{Status: NodeFailed, Error: err.Error()})
				return fail(node.ID, newExecutionError(ErrorCodeCancelled, "delay interrupted", node.ID, err))
			}
			exec.recordNode(node.ID, NodeResult{Status: NodeCompleted})
			promote()
			next, _ = flow.DefaultEdge(node.ID)

		case NodeOutput:
			exec.recordNode(node.ID, NodeResult{Status: NodeCompleted, Output: exec.Variables[LastOutputKey]})
			promote()
			exec.finish(StatusCompleted)
			e.l.Info("flow execution completed", "flow", flow.ID, "execution", exec.ID)
			return exec, nil

		default:
			return fail(node.ID, newConfigError(ErrorCodeInvalidFlow,
				fmt.Sprintf("node %s has unknown type %q", node.ID, node.Type), node.ID))
		}

		if next == nil {
			// Branch ended without reaching an output node; nothing failed.
			exec.finish(StatusCompleted)
			e.l.Info("flow execution completed", "flow", flow.ID, "execution", exec.ID)
			return exec, nil
		}

		target, ok := flow.Node(next.Target)
		if !ok {
			return fail(node.ID, newConfigError(ErrorCodeNodeNotFound,
				fmt.Sprintf("edge %s targets unknown node %s", next.ID, next.Target), node.ID))
		}
		node = target
	}
}

// runAction invokes the node's registered action. On success it records the
// result, updates _lastOutput, and returns the default edge. On failure it
// returns the failure edge when one exists (recording the node as failed
// pending recovery) or the error itself when none does.
func (e *Engine) runAction(ctx context.Context, flow *Flow, exec *Execution, node *Node, pendingRecovery *[]string) (*Edge, error) {
	var data ActionNodeData
	if err := decodeNodeData(node, &data); err != nil {
		return nil, err
	}

	action, ok := e.registry.Action(data.PluginName, data.ActionName)
	if !ok {
		return nil, newConfigError(ErrorCodeActionNotFound,
			fmt.Sprintf("action %s.%s is not registered", data.PluginName, data.ActionName), node.ID)
	}

	params, err := EvaluateParams(data.Params, exec.Variables)
	if err != nil {
		return nil, newConfigError(ErrorCodeInvalidFlow, err.Error(), node.ID)
	}

	result, actionErr := action.Execute(ctx, plugin.ActionCall{Params: params, Variables: exec.Variables})
	if actionErr == nil && result != nil && !result.Success {
		// An unsuccessful result branches exactly like a returned error; the
		// distinction survives in the node result's error text.
		if result.Error != "" {
			actionErr = fmt.Errorf("%s", result.Error)
		} else {
			actionErr = fmt.Errorf("action %s.%s reported failure", data.PluginName, data.ActionName)
		}
	}

	if actionErr != nil {
		e.l.Warn("action failed", "flow", flow.ID, "node", node.ID,
			"action", data.PluginName+"."+data.ActionName, "error", actionErr)

		if edge, ok := flow.FailureEdge(node.ID); ok {
			exec.recordNode(node.ID, NodeResult{Status: NodeFailed, Error: actionErr.Error()})
			*pendingRecovery = append(*pendingRecovery, node.ID)
			return edge, nil
		}

		exec.recordNode(node.ID, NodeResult{Status: NodeFailed, Error: actionErr.Error()})
		return nil, newExecutionError(ErrorCodeActionFailed, actionErr.Error(), node.ID, actionErr)
	}

	var output any
	if result != nil {
		output = result.Data
	}
	exec.recordNode(node.ID, NodeResult{Status: NodeCompleted, Output: output})
	exec.Variables[LastOutputKey] = output

	edge, _ := flow.DefaultEdge(node.ID)
	return edge, nil
}

// runCondition builds the node's condition tree and evaluates it against the
// execution variables as the snapshot.
func (e *Engine) runCondition(exec *Execution, node *Node) (bool, error) {
	var data ConditionNodeData
	if err := decodeNodeData(node, &data); err != nil {
		return false, err
	}

	expr, err := conditionExpr(data)
	if err != nil {
		return false, newConfigError(ErrorCodeInvalidFlow,
			fmt.Sprintf("condition node %s: %v", node.ID, err), node.ID)
	}

	result := e.conditions.Evaluate(expr, exec.Variables, data.TokenKey)
	exec.recordNode(node.ID, NodeResult{Status: NodeCompleted, Output: result})
	return result.Met, nil
}

// conditionExpr prefers the producer's original condition group when present,
// falling back to the flat list combined with the node's logical operator.
func conditionExpr(data ConditionNodeData) (condition.Expr, error) {
	if data.OriginalGroup != nil {
		return condition.Decode(data.OriginalGroup)
	}

	operator := data.Operator
	if operator == "" {
		operator = string(condition.And)
	}
	return condition.Decode(map[string]any{
		"operator":   operator,
		"conditions": toAnySlice(data.Conditions),
	})
}

func toAnySlice(conditions []map[string]any) []any {
	out := make([]any, len(conditions))
	for i, c := range conditions {
		out[i] = c
	}
	return out
}

func decodeNodeData(node *Node, target any) error {
	if err := MapToStruct(node.Data, target); err != nil {
		return newConfigError(ErrorCodeInvalidFlow,
			fmt.Sprintf("node %s payload: %v", node.ID, err), node.ID)
	}
	if err := validateStruct(target); err != nil {
		return newConfigError(ErrorCodeInvalidFlow,
			fmt.Sprintf("node %s payload: %v", node.ID, err), node.ID)
	}
	return nil
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
