package executors

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/msgstore"
)

// Gemini runs the Gemini CLI. The prompt goes in on stdin.
type Gemini struct {
	AppendPrompt string       `toml:"append_prompt" json:"append_prompt,omitempty"`
	Model        string       `toml:"model" json:"model,omitempty"`
	Yolo         bool         `toml:"yolo" json:"yolo,omitempty"`
	Cmd          CmdOverrides `toml:"cmd" json:"cmd,omitempty"`

	approvals approvals.Service
}

// NewGemini creates a Gemini executor with the given overrides.
func NewGemini(appendPrompt, model string, cmd CmdOverrides) *Gemini {
	return &Gemini{AppendPrompt: appendPrompt, Model: model, Cmd: cmd}
}

// UseApprovals injects the approval service. The first call wins.
func (g *Gemini) UseApprovals(svc approvals.Service) {
	if g.approvals != nil {
		log.Debug("approvals already set, ignoring reassignment", "executor", "gemini")
		return
	}
	g.approvals = svc
}

func (g *Gemini) buildArgs(sessionID string) []string {
	var args []string
	if g.Model != "" {
		args = append(args, "-m", g.Model)
	}
	if g.Yolo || g.approvals == nil {
		args = append(args, "--yolo")
	}
	if sessionID != "" {
		args = append(args, "--resume", sessionID)
	}
	return append(args, g.Cmd.ExtraArgs...)
}

func (g *Gemini) spawn(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	return spawnCommand(ctx, spawnSpec{
		name:   "gemini",
		binary: g.Cmd.Command("gemini"),
		args:   g.buildArgs(sessionID),
		stdin:  applyAppendPrompt(prompt, g.AppendPrompt),
		dir:    dir,
		env:    env,
		extra:  g.Cmd.Env,
	})
}

// Spawn starts a fresh Gemini session.
func (g *Gemini) Spawn(ctx context.Context, dir, prompt string, env ExecutionEnv) (*SpawnedChild, error) {
	return g.spawn(ctx, dir, prompt, "", env)
}

// SpawnFollowUp resumes a prior session via --resume.
func (g *Gemini) SpawnFollowUp(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	return g.spawn(ctx, dir, prompt, sessionID, env)
}

// NormalizeLogs rewrites Gemini output into normalized entries. Gemini
// mixes plain text and JSON lines; non-JSON lines pass through as
// assistant messages.
func (g *Gemini) NormalizeLogs(store *msgstore.Store, worktreePath string) {
	normalizeStream(store, trimWorktree(worktreePath))
}

// DefaultMCPConfigPath is ~/.gemini/settings.json.
func (g *Gemini) DefaultMCPConfigPath() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".gemini", "settings.json"), true
}

// GetAvailabilityInfo reports whether the gemini binary is on PATH.
func (g *Gemini) GetAvailabilityInfo() AvailabilityInfo {
	return lookupAvailability(g.Cmd.Command("gemini"))
}

// PreconfiguredMCP returns the entries to merge into settings.json.
func (g *Gemini) PreconfiguredMCP() map[string]MCPServer {
	return preconfiguredServers()
}
