package runtime

import (
	"fmt"
)

// NodeType identifies the kind of work a flow node performs. The set is
// closed; the engine dispatches with an exhaustive switch.
type NodeType string

const (
	NodeTrigger   NodeType = "trigger"
	NodeAction    NodeType = "action"
	NodeCondition NodeType = "condition"
	NodeLoop      NodeType = "loop"
	NodeDelay     NodeType = "delay"
	NodeOutput    NodeType = "output"
)

// EdgeType classifies an edge. Failure edges route an action's error to a
// recovery node instead of failing the execution.
type EdgeType string

const (
	EdgeDefault     EdgeType = "default"
	EdgeConditional EdgeType = "conditional"
	EdgeFailure     EdgeType = "failure"
)

// Source-handle labels used by condition and failure routing.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
	HandleError = "error"
)

// Flow is a declarative graph of nodes and edges. It is a pure specification:
// immutable once defined and re-executable any number of times. The JSON
// shape is the interchange format producers such as the order-template
// compiler emit.
type Flow struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Nodes   []Node `json:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
	Edges   []Edge `json:"edges" yaml:"edges" validate:"dive"`
}

// Node is one typed unit of work. Data carries the type-specific payload and
// is decoded into the matching *NodeData struct by the engine.
type Node struct {
	ID   string         `json:"id" yaml:"id" validate:"required"`
	Type NodeType       `json:"type" yaml:"type" validate:"required"`
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Edge is a directed connection between two nodes. SourceHandle ("true",
// "false", "error") selects a branch; unlabeled edges are the default path.
type Edge struct {
	ID           string   `json:"id" yaml:"id"`
	Source       string   `json:"source" yaml:"source" validate:"required"`
	Target       string   `json:"target" yaml:"target" validate:"required"`
	SourceHandle string   `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	Type         EdgeType `json:"type,omitempty" yaml:"type,omitempty"`
}

// ActionNodeData is the payload of an action node.
type ActionNodeData struct {
	PluginName string         `json:"pluginName" validate:"required"`
	ActionName string         `json:"actionName" validate:"required"`
	Params     map[string]any `json:"params"`
}

// ConditionNodeData is the payload of a condition node: either a full
// condition group preserved by the producer, or a flat condition list
// combined with Operator.
type ConditionNodeData struct {
	Operator      string           `json:"operator"`
	Conditions    []map[string]any `json:"conditions"`
	OriginalGroup map[string]any   `json:"_originalConditionGroup"`
	TokenKey      string           `json:"tokenKey"`
}

// LoopNodeData is the payload of a loop node. A count loop emits the
// sequence [0, count-1] as its output; it is a bounded value generator, not
// a control-flow back-edge.
type LoopNodeData struct {
	LoopType string `json:"loopType" validate:"required,oneof=count"`
	Count    int    `json:"count" validate:"gte=0"`
}

// DelayNodeData is the payload of a delay node.
type DelayNodeData struct {
	DelayMs int `json:"delayMs" validate:"gte=0"`
}

// Node returns the node with the given id.
func (f *Flow) Node(id string) (*Node, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i], true
		}
	}
	return nil, false
}

// TriggerNode locates the flow's entry point: the single trigger node with no
// incoming edges.
func (f *Flow) TriggerNode() (*Node, error) {
	inDegree := make(map[string]int, len(f.Nodes))
	for _, e := range f.Edges {
		inDegree[e.Target]++
	}

	var trigger *Node
	for i := range f.Nodes {
		n := &f.Nodes[i]
		if n.Type != NodeTrigger || inDegree[n.ID] > 0 {
			continue
		}
		if trigger != nil {
			return nil, newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("flow %s has multiple entry trigger nodes", f.ID), "")
		}
		trigger = n
	}
	if trigger == nil {
		return nil, newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("flow %s has no entry trigger node", f.ID), "")
	}
	return trigger, nil
}

// OutgoingEdges returns all edges leaving the node.
func (f *Flow) OutgoingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range f.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgeWithHandle returns the outgoing edge carrying the given source handle.
func (f *Flow) EdgeWithHandle(nodeID, handle string) (*Edge, bool) {
	for i := range f.Edges {
		e := &f.Edges[i]
		if e.Source == nodeID && e.SourceHandle == handle {
			return e, true
		}
	}
	return nil, false
}

// DefaultEdge returns the single unlabeled, non-failure outgoing edge.
func (f *Flow) DefaultEdge(nodeID string) (*Edge, bool) {
	for i := range f.Edges {
		e := &f.Edges[i]
		if e.Source == nodeID && e.SourceHandle == "" && e.Type != EdgeFailure {
			return e, true
		}
	}
	return nil, false
}

// FailureEdge returns the outgoing error-recovery edge, selected by either an
// "error" source handle or the failure edge type.
func (f *Flow) FailureEdge(nodeID string) (*Edge, bool) {
	for i := range f.Edges {
		e := &f.Edges[i]
		if e.Source == nodeID && (e.SourceHandle == HandleError || e.Type == EdgeFailure) {
			return e, true
		}
	}
	return nil, false
}

// Validate checks field constraints and the structural rules the engine
// relies on: a single entry trigger, edges referencing existing nodes, at
// most one default edge per non-condition node, and at most one "true" and
// one "false" edge per condition node.
func (f *Flow) Validate() error {
	if err := validate.Struct(f); err != nil {
		return newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("flow %s: %v", f.ID, err), "")
	}

	seen := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if seen[n.ID] {
			return newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("duplicate node id %s", n.ID), n.ID)
		}
		seen[n.ID] = true

		switch n.Type {
		case NodeTrigger, NodeAction, NodeCondition, NodeLoop, NodeDelay, NodeOutput:
		default:
			return newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("node %s has unknown type %q", n.ID, n.Type), n.ID)
		}
	}

	for _, e := range f.Edges {
		if !seen[e.Source] {
			return newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("edge %s references unknown source %s", e.ID, e.Source), "")
		}
		if !seen[e.Target] {
			return newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("edge %s references unknown target %s", e.ID, e.Target), "")
		}
	}

	if _, err := f.TriggerNode(); err != nil {
		return err
	}

	for _, n := range f.Nodes {
		defaults, trues, falses := 0, 0, 0
		for _, e := range f.OutgoingEdges(n.ID) {
			switch {
			case e.SourceHandle == HandleTrue:
				trues++
			case e.SourceHandle == HandleFalse:
				falses++
			case e.SourceHandle == "" && e.Type != EdgeFailure:
				defaults++
			}
		}
		if n.Type == NodeCondition {
			if trues > 1 || falses > 1 {
				return newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("condition node %s has duplicate branch edges", n.ID), n.ID)
			}
		} else if defaults > 1 {
			return newConfigError(ErrorCodeInvalidFlow, fmt.Sprintf("node %s has %d unlabeled outgoing edges", n.ID, defaults), n.ID)
		}
	}

	return nil
}
