package executors

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/msgstore"
)

// ClaudeCode runs the Claude Code CLI with stream-json output.
type ClaudeCode struct {
	AppendPrompt string       `toml:"append_prompt" json:"append_prompt,omitempty"`
	Model        string       `toml:"model" json:"model,omitempty"`
	Cmd          CmdOverrides `toml:"cmd" json:"cmd,omitempty"`

	approvals approvals.Service
}

// NewClaudeCode creates a Claude executor with the given overrides.
func NewClaudeCode(appendPrompt, model string, cmd CmdOverrides) *ClaudeCode {
	return &ClaudeCode{AppendPrompt: appendPrompt, Model: model, Cmd: cmd}
}

// UseApprovals injects the approval service. The first call wins.
func (c *ClaudeCode) UseApprovals(svc approvals.Service) {
	if c.approvals != nil {
		log.Debug("approvals already set, ignoring reassignment", "executor", "claude")
		return
	}
	c.approvals = svc
}

func (c *ClaudeCode) buildArgs(sessionID string) []string {
	args := []string{"--output-format", "stream-json", "--verbose"}
	if c.approvals == nil {
		args = append(args, "--dangerously-skip-permissions")
	}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	if sessionID != "" {
		args = append(args, "--resume", sessionID)
	}
	args = append(args, c.Cmd.ExtraArgs...)
	return args
}

func (c *ClaudeCode) spawn(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	args := append(c.buildArgs(sessionID), "-p", applyAppendPrompt(prompt, c.AppendPrompt))
	return spawnCommand(ctx, spawnSpec{
		name:   "claude",
		binary: c.Cmd.Command("claude"),
		args:   args,
		dir:    dir,
		env:    env,
		extra:  c.Cmd.Env,
	})
}

// Spawn starts a fresh Claude session.
func (c *ClaudeCode) Spawn(ctx context.Context, dir, prompt string, env ExecutionEnv) (*SpawnedChild, error) {
	return c.spawn(ctx, dir, prompt, "", env)
}

// SpawnFollowUp resumes a prior session via --resume.
func (c *ClaudeCode) SpawnFollowUp(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	return c.spawn(ctx, dir, prompt, sessionID, env)
}

// NormalizeLogs rewrites Claude stream-json records into normalized entries.
func (c *ClaudeCode) NormalizeLogs(store *msgstore.Store, worktreePath string) {
	normalizeStream(store, trimWorktree(worktreePath))
}

// DefaultMCPConfigPath is ~/.claude.json.
func (c *ClaudeCode) DefaultMCPConfigPath() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".claude.json"), true
}

// GetAvailabilityInfo reports whether the claude binary is on PATH.
func (c *ClaudeCode) GetAvailabilityInfo() AvailabilityInfo {
	return lookupAvailability(c.Cmd.Command("claude"))
}

// PreconfiguredMCP returns the entries to merge into ~/.claude.json.
func (c *ClaudeCode) PreconfiguredMCP() map[string]MCPServer {
	return preconfiguredServers()
}
