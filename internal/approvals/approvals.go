// Package approvals defines the approval-service contract consumed by executors.
package approvals

import "context"

// Decision is the outcome of an approval request.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDenied   Decision = "denied"
)

// Request describes an action an agent wants to perform.
type Request struct {
	// ToolName is the tool the agent wants to invoke.
	ToolName string `json:"tool_name"`

	// Input is the raw tool input, serialized by the underlying CLI.
	Input string `json:"input,omitempty"`

	// SessionID identifies the agent session asking for approval.
	SessionID string `json:"session_id,omitempty"`
}

// Service gates agent-initiated actions. Executors only store and forward a
// Service reference; they never interpret its decisions themselves.
//
// Implementations are shared across executors and must be safe for
// concurrent use.
type Service interface {
	// Approve decides whether the requested action is permitted.
	Approve(ctx context.Context, req Request) (Decision, error)
}

// AutoApprove approves every request. It is the default when no external
// approval service is wired in.
type AutoApprove struct{}

// Approve always returns DecisionApproved.
func (AutoApprove) Approve(ctx context.Context, req Request) (Decision, error) {
	return DecisionApproved, nil
}
