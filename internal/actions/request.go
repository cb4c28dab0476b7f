// Package actions turns declarative agent requests into running processes.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/executors"
	"github.com/nibzard/agentmux/internal/profiles"
)

// InitialRequest describes one fresh agent invocation. It is immutable:
// constructed once by the caller and consumed by a single Spawn call.
type InitialRequest struct {
	Prompt string `json:"prompt"`

	// ExecutorProfileID selects the executor type and named variant.
	ExecutorProfileID profiles.ID `json:"executor_profile_id"`

	// ModelOverride replaces the resolved agent's model for this attempt.
	// It only has an effect on multiplexer profiles.
	ModelOverride string `json:"model_override,omitempty"`

	// WorkingDir is an optional path relative to the caller's base
	// directory. Empty means the base directory itself.
	WorkingDir string `json:"working_dir,omitempty"`
}

// FollowUpRequest resumes a prior session with a new prompt.
type FollowUpRequest struct {
	InitialRequest

	// SessionID is the opaque continuation token handed back by the
	// underlying tool.
	SessionID string `json:"session_id"`
}

// requestAlias mirrors InitialRequest with the backwards-compatible
// profile_variant_label field accepted as an alternate name for the
// profile id.
type requestAlias struct {
	Prompt              string       `json:"prompt"`
	ExecutorProfileID   *profiles.ID `json:"executor_profile_id"`
	ProfileVariantLabel *profiles.ID `json:"profile_variant_label"`
	ModelOverride       string       `json:"model_override"`
	WorkingDir          string       `json:"working_dir"`
}

// UnmarshalJSON decodes the embedded request fields and session_id.
// Embedding promotes the inner UnmarshalJSON, which never reads
// session_id; without this override the outer field stays empty.
func (r *FollowUpRequest) UnmarshalJSON(data []byte) error {
	if err := r.InitialRequest.UnmarshalJSON(data); err != nil {
		return err
	}
	var session struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}
	r.SessionID = session.SessionID
	return nil
}

// UnmarshalJSON accepts profile_variant_label as an alias for
// executor_profile_id. The canonical field wins when both are present.
func (r *InitialRequest) UnmarshalJSON(data []byte) error {
	var alias requestAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	r.Prompt = alias.Prompt
	r.ModelOverride = alias.ModelOverride
	r.WorkingDir = alias.WorkingDir
	switch {
	case alias.ExecutorProfileID != nil:
		r.ExecutorProfileID = *alias.ExecutorProfileID
	case alias.ProfileVariantLabel != nil:
		r.ExecutorProfileID = *alias.ProfileVariantLabel
	default:
		return fmt.Errorf("request is missing executor_profile_id")
	}
	return nil
}

// EffectiveDir computes the directory to run in: the relative override
// joined onto the caller's base directory, or the base directory itself.
func (r *InitialRequest) EffectiveDir(baseDir string) string {
	if r.WorkingDir == "" {
		return baseDir
	}
	return filepath.Join(baseDir, r.WorkingDir)
}

// resolve looks up the profile and applies cross-cutting concerns: the
// model override (multiplexer profiles only) and the approval service.
func (r *InitialRequest) resolve(reg *profiles.Registry, svc approvals.Service) (executors.Executor, error) {
	agent, ok := reg.Get(r.ExecutorProfileID)
	if !ok {
		return nil, &executors.UnknownExecutorTypeError{Profile: r.ExecutorProfileID.String()}
	}
	if r.ModelOverride != "" {
		if mux, ok := agent.(*executors.Multiplexer); ok {
			mux.Model = r.ModelOverride
		}
	}
	if svc != nil {
		agent.UseApprovals(svc)
	}
	return agent, nil
}

// Spawn resolves the profile and starts the agent in the effective
// directory. No process is spawned when resolution fails.
func (r *InitialRequest) Spawn(ctx context.Context, baseDir string, reg *profiles.Registry, svc approvals.Service, env executors.ExecutionEnv) (*executors.SpawnedChild, error) {
	agent, err := r.resolve(reg, svc)
	if err != nil {
		return nil, err
	}
	return agent.Spawn(ctx, r.EffectiveDir(baseDir), r.Prompt, env)
}

// Spawn resumes the request's session via the resolved agent.
func (r *FollowUpRequest) Spawn(ctx context.Context, baseDir string, reg *profiles.Registry, svc approvals.Service, env executors.ExecutionEnv) (*executors.SpawnedChild, error) {
	agent, err := r.resolve(reg, svc)
	if err != nil {
		return nil, err
	}
	return agent.SpawnFollowUp(ctx, r.EffectiveDir(baseDir), r.Prompt, r.SessionID, env)
}

// Resolve exposes profile resolution for callers that need the agent
// before spawning (log normalization, MCP inspection).
func (r *InitialRequest) Resolve(reg *profiles.Registry, svc approvals.Service) (executors.Executor, error) {
	return r.resolve(reg, svc)
}
