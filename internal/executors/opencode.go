package executors

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/msgstore"
)

// Opencode runs the opencode CLI in non-interactive run mode.
type Opencode struct {
	AppendPrompt string       `toml:"append_prompt" json:"append_prompt,omitempty"`
	Model        string       `toml:"model" json:"model,omitempty"`
	Mode         string       `toml:"mode" json:"mode,omitempty"`
	AutoApprove  bool         `toml:"auto_approve" json:"auto_approve,omitempty"`
	Cmd          CmdOverrides `toml:"cmd" json:"cmd,omitempty"`

	approvals approvals.Service
}

// NewOpencode creates an opencode executor with the given overrides.
// AutoApprove defaults to true; the CLI has no interactive prompt channel
// in run mode.
func NewOpencode(appendPrompt, model string, cmd CmdOverrides) *Opencode {
	return &Opencode{AppendPrompt: appendPrompt, Model: model, AutoApprove: true, Cmd: cmd}
}

// UseApprovals injects the approval service. The first call wins.
func (o *Opencode) UseApprovals(svc approvals.Service) {
	if o.approvals != nil {
		log.Debug("approvals already set, ignoring reassignment", "executor", "opencode")
		return
	}
	o.approvals = svc
}

func (o *Opencode) buildArgs(sessionID string) []string {
	args := []string{"run", "--print-logs"}
	if o.Model != "" {
		args = append(args, "--model", o.Model)
	}
	if o.Mode != "" {
		args = append(args, "--mode", o.Mode)
	}
	if sessionID != "" {
		args = append(args, "--session", sessionID)
	}
	return append(args, o.Cmd.ExtraArgs...)
}

func (o *Opencode) spawn(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	args := append(o.buildArgs(sessionID), applyAppendPrompt(prompt, o.AppendPrompt))
	return spawnCommand(ctx, spawnSpec{
		name:   "opencode",
		binary: o.Cmd.Command("opencode"),
		args:   args,
		dir:    dir,
		env:    env,
		extra:  o.Cmd.Env,
	})
}

// Spawn starts a fresh opencode session.
func (o *Opencode) Spawn(ctx context.Context, dir, prompt string, env ExecutionEnv) (*SpawnedChild, error) {
	return o.spawn(ctx, dir, prompt, "", env)
}

// SpawnFollowUp resumes a prior session via --session.
func (o *Opencode) SpawnFollowUp(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	return o.spawn(ctx, dir, prompt, sessionID, env)
}

// NormalizeLogs rewrites opencode logfmt-style output into normalized
// entries. Lines that are not JSON pass through as assistant messages.
func (o *Opencode) NormalizeLogs(store *msgstore.Store, worktreePath string) {
	normalizeStream(store, trimWorktree(worktreePath))
}

// DefaultMCPConfigPath is $XDG_CONFIG_HOME/opencode/opencode.json,
// defaulting to ~/.config/opencode/opencode.json.
func (o *Opencode) DefaultMCPConfigPath() (string, bool) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "opencode", "opencode.json"), true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".config", "opencode", "opencode.json"), true
}

// GetAvailabilityInfo reports whether the opencode binary is on PATH.
func (o *Opencode) GetAvailabilityInfo() AvailabilityInfo {
	return lookupAvailability(o.Cmd.Command("opencode"))
}

// PreconfiguredMCP returns the entries to merge into opencode.json.
func (o *Opencode) PreconfiguredMCP() map[string]MCPServer {
	return preconfiguredServers()
}
