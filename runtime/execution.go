package runtime

import (
	"time"

	"github.com/google/uuid"
)

// Status of a flow execution as a whole.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// NodeStatus of a single visited node.
type NodeStatus string

const (
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
)

// LastOutputKey is the variable updated with every successful action's data.
const LastOutputKey = "_lastOutput"

// NodeResult records the outcome of one node visit. Every node reachable from
// the trigger gets exactly one entry per execution.
type NodeResult struct {
	Status NodeStatus `json:"status"`
	Output any        `json:"output,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// Execution is the ephemeral record of one flow run. Each Execute call gets
// its own instance; no state leaks between runs except through the plugin
// registry itself.
type Execution struct {
	ID          string                `json:"id"`
	FlowID      string                `json:"flowId"`
	Status      Status                `json:"status"`
	Variables   map[string]any        `json:"variables"`
	NodeResults map[string]NodeResult `json:"nodeResults"`
	StartedAt   time.Time             `json:"startedAt"`
	FinishedAt  time.Time             `json:"finishedAt,omitempty"`
}

// NewExecution seeds a running execution with a copy of the initial variables.
func NewExecution(flow *Flow, initial map[string]any) *Execution {
	variables := make(map[string]any, len(initial))
	for k, v := range initial {
		variables[k] = v
	}
	return &Execution{
		ID:          uuid.New().String(),
		FlowID:      flow.ID,
		Status:      StatusRunning,
		Variables:   variables,
		NodeResults: make(map[string]NodeResult),
		StartedAt:   time.Now(),
	}
}

func (e *Execution) recordNode(nodeID string, result NodeResult) {
	e.NodeResults[nodeID] = result
}

func (e *Execution) finish(status Status) {
	e.Status = status
	e.FinishedAt = time.Now()
}
