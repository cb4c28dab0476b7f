package executors

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/msgstore"
)

// Codex runs the Codex CLI in non-interactive exec mode. The prompt goes in
// on stdin; resumption spawns "exec resume <session>".
type Codex struct {
	AppendPrompt string       `toml:"append_prompt" json:"append_prompt,omitempty"`
	Model        string       `toml:"model" json:"model,omitempty"`
	Cmd          CmdOverrides `toml:"cmd" json:"cmd,omitempty"`

	approvals approvals.Service
}

// NewCodex creates a Codex executor with the given overrides.
func NewCodex(appendPrompt, model string, cmd CmdOverrides) *Codex {
	return &Codex{AppendPrompt: appendPrompt, Model: model, Cmd: cmd}
}

// UseApprovals injects the approval service. The first call wins.
func (c *Codex) UseApprovals(svc approvals.Service) {
	if c.approvals != nil {
		log.Debug("approvals already set, ignoring reassignment", "executor", "codex")
		return
	}
	c.approvals = svc
}

func (c *Codex) buildArgs(sessionID string) []string {
	args := []string{"exec"}
	if sessionID != "" {
		args = append(args, "resume", sessionID)
	}
	args = append(args, "--json")
	if c.approvals == nil {
		args = append(args, "--full-auto")
	}
	if c.Model != "" {
		args = append(args, "-m", c.Model)
	}
	args = append(args, c.Cmd.ExtraArgs...)
	// "-" reads the prompt from stdin
	return append(args, "-")
}

func (c *Codex) spawn(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	return spawnCommand(ctx, spawnSpec{
		name:   "codex",
		binary: c.Cmd.Command("codex"),
		args:   c.buildArgs(sessionID),
		stdin:  applyAppendPrompt(prompt, c.AppendPrompt),
		dir:    dir,
		env:    env,
		extra:  c.Cmd.Env,
	})
}

// Spawn starts a fresh Codex session.
func (c *Codex) Spawn(ctx context.Context, dir, prompt string, env ExecutionEnv) (*SpawnedChild, error) {
	return c.spawn(ctx, dir, prompt, "", env)
}

// SpawnFollowUp resumes a prior session via "exec resume".
func (c *Codex) SpawnFollowUp(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	return c.spawn(ctx, dir, prompt, sessionID, env)
}

// NormalizeLogs rewrites Codex JSONL records into normalized entries.
func (c *Codex) NormalizeLogs(store *msgstore.Store, worktreePath string) {
	normalizeStream(store, trimWorktree(worktreePath))
}

// DefaultMCPConfigPath is $CODEX_HOME/config.toml, defaulting to
// ~/.codex/config.toml.
func (c *Codex) DefaultMCPConfigPath() (string, bool) {
	home, ok := codexHome()
	if !ok {
		return "", false
	}
	return filepath.Join(home, "config.toml"), true
}

// GetAvailabilityInfo reports whether the codex binary is on PATH.
func (c *Codex) GetAvailabilityInfo() AvailabilityInfo {
	return lookupAvailability(c.Cmd.Command("codex"))
}

// PreconfiguredMCP returns the entries to merge into config.toml.
func (c *Codex) PreconfiguredMCP() map[string]MCPServer {
	return preconfiguredServers()
}

// codexHome resolves the Codex configuration directory.
func codexHome() (string, bool) {
	if dir := os.Getenv("CODEX_HOME"); dir != "" {
		return dir, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".codex"), true
}
