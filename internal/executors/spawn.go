package executors

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// spawnSpec captures one concrete invocation to start.
type spawnSpec struct {
	name   string // executor name, used in errors and logs
	binary string
	args   []string
	stdin  string // piped to the process when non-empty
	dir    string
	env    ExecutionEnv
	extra  map[string]string // override env vars, applied last
}

// spawnCommand starts the process described by spec and returns a live
// handle. Suspension occurs only while the OS creates the process, never
// while it runs.
func spawnCommand(ctx context.Context, spec spawnSpec) (*SpawnedChild, error) {
	cmd := exec.CommandContext(ctx, spec.binary, spec.args...)
	if spec.dir != "" {
		cmd.Dir = spec.dir
	}
	cmd.Env = mergeEnv(os.Environ(), spec.env.Vars, spec.extra)
	if spec.stdin != "" {
		cmd.Stdin = strings.NewReader(ensurePromptTerminator(spec.stdin))
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Executor: spec.name, Err: fmt.Errorf("create stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Executor: spec.name, Err: fmt.Errorf("create stderr pipe: %w", err)}
	}

	log.Debug("spawning agent", "executor", spec.name, "binary", spec.binary, "args", spec.args, "dir", spec.dir)

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Executor: spec.name, Err: err}
	}

	return &SpawnedChild{Cmd: cmd, Stdout: stdout, Stderr: stderr}, nil
}

// mergeEnv layers KEY=VALUE pairs: base first, then each map in order, later
// values winning.
func mergeEnv(base []string, layers ...map[string]string) []string {
	merged := map[string]string{}
	order := make([]string, 0, len(base))
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := merged[key]; !seen {
			order = append(order, key)
		}
		merged[key] = value
	}
	for _, layer := range layers {
		for key, value := range layer {
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = value
		}
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, key+"="+merged[key])
	}
	return out
}

func ensurePromptTerminator(prompt string) string {
	if strings.HasSuffix(prompt, "\n") {
		return prompt
	}
	return prompt + "\n"
}

// lookupAvailability is the shared filesystem probe for concrete executors:
// a binary on PATH means an installation is present.
func lookupAvailability(binary string) AvailabilityInfo {
	if _, err := exec.LookPath(binary); err == nil {
		return AvailabilityInfo{State: AvailabilityInstallationFound}
	}
	return AvailabilityInfo{State: AvailabilityNotFound}
}
