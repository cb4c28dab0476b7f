package executors

import (
	"os"
	"strings"

	"github.com/nibzard/agentmux/internal/msgstore"
)

// applyAppendPrompt appends the configured suffix to the prompt, separated
// by a blank line.
func applyAppendPrompt(prompt, appendPrompt string) string {
	if appendPrompt == "" {
		return prompt
	}
	return strings.TrimRight(prompt, "\n") + "\n\n" + appendPrompt
}

// trimWorktree rewrites absolute worktree paths in normalized content to
// worktree-relative ones.
func trimWorktree(worktreePath string) func(msgstore.NormalizedEntry) msgstore.NormalizedEntry {
	if worktreePath == "" {
		return nil
	}
	prefix := strings.TrimRight(worktreePath, "/") + "/"
	return func(entry msgstore.NormalizedEntry) msgstore.NormalizedEntry {
		entry.Content = strings.ReplaceAll(entry.Content, prefix, "")
		return entry
	}
}

// preconfiguredServers returns the auxiliary-server entries every backend
// gets: the agentmux MCP bridge through which approval requests flow.
func preconfiguredServers() map[string]MCPServer {
	bin, err := os.Executable()
	if err != nil {
		bin = "agentmux"
	}
	return map[string]MCPServer{
		"agentmux": {
			Command: bin,
			Args:    []string{"mcp", "serve"},
		},
	}
}
