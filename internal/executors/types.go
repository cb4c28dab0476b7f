package executors

import (
	"context"
	"errors"
	"io"
	"os/exec"

	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/msgstore"
)

// Capability is an optional behavior a backend supports.
type Capability string

const (
	// CapabilitySessionResume indicates spawn-follow-up can resume a prior
	// session by its opaque identifier.
	CapabilitySessionResume Capability = "SESSION_RESUME"

	// CapabilitySetupAssist indicates the backend can help configure itself
	// on first use.
	CapabilitySetupAssist Capability = "SETUP_ASSIST"
)

// AvailabilityState describes whether a backend tool looks usable.
type AvailabilityState string

const (
	AvailabilityNotFound          AvailabilityState = "NOT_FOUND"
	AvailabilityInstallationFound AvailabilityState = "INSTALLATION_FOUND"
	AvailabilityLoginDetected     AvailabilityState = "LOGIN_DETECTED"
)

// AvailabilityInfo is a best-effort, filesystem-only probe result.
type AvailabilityInfo struct {
	State AvailabilityState `json:"state"`

	// LastAuthTimestamp is seconds since epoch of the last detected login.
	// Only set when State is AvailabilityLoginDetected.
	LastAuthTimestamp int64 `json:"last_auth_timestamp,omitempty"`
}

// ExecutionEnv carries the caller-supplied environment for a spawn.
type ExecutionEnv struct {
	Vars map[string]string
}

// Executor is the uniform contract every CLI backend satisfies.
type Executor interface {
	// Spawn starts a fresh agent run in dir. It returns a live handle as
	// soon as the process has started.
	Spawn(ctx context.Context, dir, prompt string, env ExecutionEnv) (*SpawnedChild, error)

	// SpawnFollowUp resumes the session identified by sessionID. The id is
	// opaque; its format is owned by the underlying tool.
	SpawnFollowUp(ctx context.Context, dir, prompt, sessionID string, env ExecutionEnv) (*SpawnedChild, error)

	// NormalizeLogs rewrites raw process output in the store into the
	// tool-agnostic normalized entry shape. It returns immediately and
	// keeps normalizing until the store closes.
	NormalizeLogs(store *msgstore.Store, worktreePath string)

	// UseApprovals injects the shared approval service. The first call
	// wins; later reassignment is ignored.
	UseApprovals(svc approvals.Service)

	// DefaultMCPConfigPath returns the conventional on-disk location of the
	// tool's own config file, or ok=false when it cannot be determined.
	DefaultMCPConfigPath() (path string, ok bool)

	// GetAvailabilityInfo probes the filesystem for installation and login
	// traces. It never fails; absence yields AvailabilityNotFound.
	GetAvailabilityInfo() AvailabilityInfo

	// PreconfiguredMCP returns the auxiliary-server entries this tool
	// should have merged into its config.
	PreconfiguredMCP() map[string]MCPServer
}

// SpawnedChild is a handle to a started agent process.
type SpawnedChild struct {
	Cmd    *exec.Cmd
	Stdout io.ReadCloser
	Stderr io.ReadCloser
}

// Wait blocks until the process exits and returns its exit code.
func (c *SpawnedChild) Wait() (int, error) {
	err := c.Cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Kill terminates the process.
func (c *SpawnedChild) Kill() error {
	if c.Cmd.Process == nil {
		return nil
	}
	return c.Cmd.Process.Kill()
}
