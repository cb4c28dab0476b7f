// Package profiles resolves named profiles to configured executors.
package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/nibzard/agentmux/internal/executors"
)

// ID identifies a profile: an executor name plus an optional variant label.
// String form is "EXECUTOR" or "EXECUTOR:variant".
type ID struct {
	Executor string `json:"executor"`
	Variant  string `json:"variant,omitempty"`
}

// ParseID parses the string form of a profile id.
func ParseID(s string) ID {
	executor, variant, _ := strings.Cut(s, ":")
	return ID{Executor: executor, Variant: variant}
}

func (id ID) String() string {
	if id.Variant == "" {
		return id.Executor
	}
	return id.Executor + ":" + id.Variant
}

// UnmarshalJSON accepts either the object form {"executor": ..,
// "variant": ..} or the compact string form "EXECUTOR:variant".
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ParseID(s)
		return nil
	}
	type plain ID
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*id = ID(p)
	return nil
}

// Profile is one configured executor in the profiles file.
type Profile struct {
	// Type selects the executor implementation: "multiplexer" (default),
	// "claude", "codex", "gemini" or "opencode".
	Type string `toml:"type"`

	// Client is the multiplexer's underlying CLI kind.
	Client executors.ClientKind `toml:"client"`

	Model        string                 `toml:"model"`
	AppendPrompt string                 `toml:"append_prompt"`
	Cmd          executors.CmdOverrides `toml:"cmd"`
}

// Build materializes a fresh executor instance for this profile. Each call
// returns a new value so callers can inject per-request state without
// sharing.
func (p Profile) Build() (executors.Executor, error) {
	switch p.Type {
	case "", "multiplexer":
		client := p.Client
		if client == "" {
			client = executors.DefaultClient
		}
		if !client.Valid() {
			return nil, fmt.Errorf("invalid client kind %q", client)
		}
		mux := executors.NewMultiplexer(client)
		mux.AppendPrompt = p.AppendPrompt
		mux.Model = p.Model
		mux.Cmd = p.Cmd
		return mux, nil
	case "claude":
		return executors.NewClaudeCode(p.AppendPrompt, p.Model, p.Cmd), nil
	case "codex":
		return executors.NewCodex(p.AppendPrompt, p.Model, p.Cmd), nil
	case "gemini":
		return executors.NewGemini(p.AppendPrompt, p.Model, p.Cmd), nil
	case "opencode":
		return executors.NewOpencode(p.AppendPrompt, p.Model, p.Cmd), nil
	}
	return nil, fmt.Errorf("invalid profile type %q", p.Type)
}

// Registry maps profile ids to their configurations.
type Registry struct {
	profiles map[string]Profile
}

// file is the on-disk layout of profiles.toml.
type file struct {
	Profiles map[string]Profile `toml:"profiles"`
}

// Defaults returns the built-in registry: one multiplexer profile per
// client kind.
func Defaults() *Registry {
	return &Registry{profiles: map[string]Profile{
		"JBAI_CLAUDE":   {Client: executors.ClientClaude},
		"JBAI_CODEX":    {Client: executors.ClientCodex},
		"JBAI_GEMINI":   {Client: executors.ClientGemini},
		"JBAI_OPENCODE": {Client: executors.ClientOpencode},
	}}
}

// DefaultPath returns the profiles file location: AGENTMUX_PROFILES when
// set, otherwise ~/.agentmux/profiles.toml.
func DefaultPath() string {
	if path := os.Getenv("AGENTMUX_PROFILES"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentmux", "profiles.toml")
}

// Load reads user profiles from path on top of the built-in defaults. A
// missing file yields the defaults alone.
func Load(path string) (*Registry, error) {
	reg := Defaults()
	if path == "" {
		return reg, nil
	}

	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("loading profiles file %s: %w", path, err)
	}
	for name, profile := range f.Profiles {
		reg.profiles[name] = profile
	}
	log.Debug("loaded profiles", "path", path, "count", len(f.Profiles))
	return reg, nil
}

// Get resolves an id to a fresh executor instance. Lookup tries the full
// "EXECUTOR:variant" key first, then the bare executor name.
func (r *Registry) Get(id ID) (executors.Executor, bool) {
	profile, ok := r.profiles[id.String()]
	if !ok && id.Variant != "" {
		profile, ok = r.profiles[id.Executor]
	}
	if !ok {
		return nil, false
	}
	exec, err := profile.Build()
	if err != nil {
		log.Warn("profile failed to build", "profile", id.String(), "err", err)
		return nil, false
	}
	return exec, true
}

// Names returns all configured profile names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}

// Set adds or replaces a profile. Used by tests and the CLI.
func (r *Registry) Set(name string, profile Profile) {
	if r.profiles == nil {
		r.profiles = map[string]Profile{}
	}
	r.profiles[name] = profile
}
