package executors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/msgstore"
)

// ClientKind selects which underlying CLI the multiplexer drives.
type ClientKind string

const (
	ClientClaude   ClientKind = "CLAUDE"
	ClientCodex    ClientKind = "CODEX"
	ClientGemini   ClientKind = "GEMINI"
	ClientOpencode ClientKind = "OPENCODE"
)

// DefaultClient is used when a profile leaves the client unset.
const DefaultClient = ClientClaude

// tokenEnvVar is the environment variable carrying the credential token.
const tokenEnvVar = "JBAI_TOKEN"

// tokenDirName is the per-tool configuration directory under home.
const tokenDirName = ".jbai"

// Valid reports whether k names a known client kind.
func (k ClientKind) Valid() bool {
	switch k {
	case ClientClaude, ClientCodex, ClientGemini, ClientOpencode:
		return true
	}
	return false
}

// baseCommand is the kind-specific default command name, used when no
// explicit base-command override is present.
func (k ClientKind) baseCommand() string {
	switch k {
	case ClientCodex:
		return "jbai-codex"
	case ClientGemini:
		return "jbai-gemini"
	case ClientOpencode:
		return "jbai-opencode"
	default:
		return "jbai-claude"
	}
}

// Multiplexer presents the uniform executor contract while dispatching to
// one of the underlying CLI executors selected by Client. It overrides each
// backend's base command with the kind-specific wrapper binary and ensures
// the shared credential file before every spawn.
//
// All fields are set at construction. The approval service is the only
// later mutation, set once via UseApprovals.
type Multiplexer struct {
	AppendPrompt string       `toml:"append_prompt" json:"append_prompt,omitempty"`
	Client       ClientKind   `toml:"client" json:"client"`
	Model        string       `toml:"model" json:"model,omitempty"`
	Cmd          CmdOverrides `toml:"cmd" json:"cmd,omitempty"`

	approvals approvals.Service
}

// NewMultiplexer creates a multiplexer for the given client kind.
func NewMultiplexer(client ClientKind) *Multiplexer {
	if client == "" {
		client = DefaultClient
	}
	return &Multiplexer{Client: client}
}

// Capabilities returns the optional behaviors of the selected client kind.
// Pure function of the kind; every kind supports session resumption, and
// Codex additionally offers setup assistance.
func (m *Multiplexer) Capabilities() []Capability {
	if m.Client == ClientCodex {
		return []Capability{CapabilitySessionResume, CapabilitySetupAssist}
	}
	return []Capability{CapabilitySessionResume}
}

// HasCapability reports whether the selected kind supports cap.
func (m *Multiplexer) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities() {
		if c == cap {
			return true
		}
	}
	return false
}

// UseApprovals injects the shared approval service. The first call wins;
// reassignment after that is ignored.
func (m *Multiplexer) UseApprovals(svc approvals.Service) {
	if m.approvals != nil {
		log.Debug("approvals already set, ignoring reassignment", "executor", "multiplexer")
		return
	}
	m.approvals = svc
}

// cmdWithClient returns the overrides with the kind-specific default base
// command filled in. An explicit override always wins.
func (m *Multiplexer) cmdWithClient() CmdOverrides {
	return m.Cmd.WithDefaultCommand(m.Client.baseCommand())
}

// resolveToken resolves the credential with fallback order: override env
// mapping first, then the caller-supplied execution environment. Presence
// of the override key decides; a blank override suppresses the
// execution-env token rather than falling through to it.
func (m *Multiplexer) resolveToken(env ExecutionEnv) string {
	if v, ok := m.Cmd.Env[tokenEnvVar]; ok {
		return v
	}
	return env.Vars[tokenEnvVar]
}

// ensureTokenFile writes the resolved token to <home>/.jbai/token. The file
// is rewritten only when its trimmed on-disk content differs from the
// token; an empty token after trimming means no credential and no write.
func (m *Multiplexer) ensureTokenFile(env ExecutionEnv) error {
	token := strings.TrimSpace(m.resolveToken(env))
	if token == "" {
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, tokenDirName)
	path := filepath.Join(dir, "token")

	if existing, err := os.ReadFile(path); err == nil {
		if strings.TrimSpace(string(existing)) == token {
			return nil
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	// Tighten permissions on pre-existing files. Failure here only widens
	// access control, not correctness.
	_ = os.Chmod(path, 0o600)
	return nil
}

// build materializes the concrete executor for the selected client kind
// with the overrides applied and the approval service injected.
func (m *Multiplexer) build() Executor {
	cmd := m.cmdWithClient()
	var exec Executor
	switch m.Client {
	case ClientCodex:
		exec = NewCodex(m.AppendPrompt, m.Model, cmd)
	case ClientGemini:
		exec = NewGemini(m.AppendPrompt, m.Model, cmd)
	case ClientOpencode:
		exec = NewOpencode(m.AppendPrompt, m.Model, cmd)
	default:
		exec = NewClaudeCode(m.AppendPrompt, m.Model, cmd)
	}
	if m.approvals != nil {
		exec.UseApprovals(m.approvals)
	}
	return exec
}

// Spawn ensures the credential file, builds the concrete executor and
// delegates the spawn.
func (m *Multiplexer) Spawn(ctx context.Context, dir, prompt string, env ExecutionEnv) (*SpawnedChild, error) {
	if err := m.ensureTokenFile(env); err != nil {
		return nil, err
	}
	return m.build().Spawn(ctx, dir, prompt, env)
}

// SpawnFollowUp resumes a prior session. It fails with
// ErrResumeUnsupported before spawning anything when the selected kind's
// capability set lacks session resumption.
func (m *Multiplexer) SpawnFollowUp(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error) {
	if !m.HasCapability(CapabilitySessionResume) {
		return nil, ErrResumeUnsupported
	}
	if err := m.ensureTokenFile(env); err != nil {
		return nil, err
	}
	return m.build().SpawnFollowUp(ctx, dir, prompt, sessionID, env)
}

// NormalizeLogs delegates to the concrete executor's normalization.
func (m *Multiplexer) NormalizeLogs(store *msgstore.Store, worktreePath string) {
	m.build().NormalizeLogs(store, worktreePath)
}

// DefaultMCPConfigPath is the selected tool's own config file location.
func (m *Multiplexer) DefaultMCPConfigPath() (string, bool) {
	return m.build().DefaultMCPConfigPath()
}

// PreconfiguredMCP returns the selected tool's auxiliary-server entries.
func (m *Multiplexer) PreconfiguredMCP() map[string]MCPServer {
	return m.build().PreconfiguredMCP()
}

// GetMCPConfig returns the config-merge instruction for the selected kind.
// Insertion paths, skeleton documents and merge policy differ per backend;
// the differences are data, not logic.
func (m *Multiplexer) GetMCPConfig() MCPConfig {
	servers := m.PreconfiguredMCP()
	switch m.Client {
	case ClientCodex:
		return MCPConfig{
			ServersPath: []string{"mcp_servers"},
			Template:    map[string]any{"mcp_servers": map[string]any{}},
			Servers:     servers,
			Replace:     true,
		}
	case ClientOpencode:
		return MCPConfig{
			ServersPath: []string{"mcp"},
			Template: map[string]any{
				"mcp":     map[string]any{},
				"$schema": "https://opencode.ai/config.json",
			},
			Servers: servers,
			Replace: true,
		}
	default:
		return MCPConfig{
			ServersPath: []string{"mcpServers"},
			Template:    map[string]any{"mcpServers": map[string]any{}},
			Servers:     servers,
			Replace:     false,
		}
	}
}

// GetAvailabilityInfo inspects the credential file. A token file means a
// prior login, reported with its modification time; the bare config
// directory means an installation without confirmed login. The mtime
// heuristic can be wrong when the file is touched externally, and a login
// elsewhere will not show up here.
func (m *Multiplexer) GetAvailabilityInfo() AvailabilityInfo {
	home, err := os.UserHomeDir()
	if err != nil {
		return AvailabilityInfo{State: AvailabilityNotFound}
	}

	tokenPath := filepath.Join(home, tokenDirName, "token")
	if info, err := os.Stat(tokenPath); err == nil {
		return AvailabilityInfo{
			State:             AvailabilityLoginDetected,
			LastAuthTimestamp: info.ModTime().Unix(),
		}
	}

	if _, err := os.Stat(filepath.Join(home, tokenDirName)); err == nil {
		return AvailabilityInfo{State: AvailabilityInstallationFound}
	}
	return AvailabilityInfo{State: AvailabilityNotFound}
}
