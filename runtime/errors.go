package runtime

import "fmt"

// FlowErrorType classifies where in the lifecycle an error arose.
type FlowErrorType string

const (
	// ErrorTypeConfig marks configuration errors: invalid flow structure,
	// unknown actions, malformed node payloads. Raised synchronously.
	ErrorTypeConfig FlowErrorType = "config"
	// ErrorTypeExecution marks runtime failures inside a flow walk.
	ErrorTypeExecution FlowErrorType = "execution"
)

// Known framework error codes. Actions may surface any string code of their own.
const (
	ErrorCodeInvalidFlow    = "INVALID_FLOW"
	ErrorCodeActionNotFound = "ACTION_NOT_FOUND"
	ErrorCodeNodeNotFound   = "NODE_NOT_FOUND"
	ErrorCodeNodeRevisited  = "NODE_REVISITED"
	ErrorCodeMaxSteps       = "MAX_STEPS_EXCEEDED"
	ErrorCodeActionFailed   = "ACTION_FAILED"
	ErrorCodeCancelled      = "CONTEXT_CANCELLED"
)

// FlowError is the canonical error propagated out of a flow execution.
// It is JSON-serializable so callers can persist or transport it as-is.
type FlowError struct {
	Type    FlowErrorType `json:"type"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Node    string        `json:"node,omitempty"`
	Cause   error         `json:"-"`
}

func (e *FlowError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("[%s/%s] %s (node: %s)", e.Type, e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As.
func (e *FlowError) Unwrap() error {
	return e.Cause
}

func newConfigError(code, message, node string) *FlowError {
	return &FlowError{Type: ErrorTypeConfig, Code: code, Message: message, Node: node}
}

func newExecutionError(code, message, node string, cause error) *FlowError {
	return &FlowError{Type: ErrorTypeExecution, Code: code, Message: message, Node: node, Cause: cause}
}

// ActionError lets a plugin action return execution metadata alongside the
// failure: an error code, categorization, or hints for the caller. The engine
// records the message in the node result and otherwise treats it like any
// action failure.
type ActionError struct {
	Err      error
	Code     string
	Metadata map[string]any
}

func NewActionError(code string, err error) *ActionError {
	return &ActionError{
		Err:      err,
		Code:     code,
		Metadata: make(map[string]any),
	}
}

func (e *ActionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %v", e.Code, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *ActionError) Unwrap() error {
	return e.Err
}

// WithMetadata attaches a metadata entry; chainable.
func (e *ActionError) WithMetadata(key string, value any) *ActionError {
	e.Metadata[key] = value
	return e
}
