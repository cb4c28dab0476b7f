package executors

import "testing"

// TestMCPConfigApplyMerge tests non-destructive merging into an existing
// document.
func TestMCPConfigApplyMerge(t *testing.T) {
	cfg := MCPConfig{
		ServersPath: []string{"mcpServers"},
		Servers:     map[string]MCPServer{"agentmux": {Command: "agentmux"}},
	}
	doc := map[string]any{
		"mcpServers": map[string]any{
			"user-server": map[string]any{"command": "mine"},
		},
		"theme": "dark",
	}

	got := cfg.Apply(doc)

	servers := got["mcpServers"].(map[string]any)
	if _, ok := servers["user-server"]; !ok {
		t.Error("merge dropped the user's own server entry")
	}
	if _, ok := servers["agentmux"]; !ok {
		t.Error("merge did not add the agentmux entry")
	}
	if got["theme"] != "dark" {
		t.Error("merge touched unrelated keys")
	}
}

// TestMCPConfigApplyReplace tests destructive replacement of existing
// entries.
func TestMCPConfigApplyReplace(t *testing.T) {
	cfg := MCPConfig{
		ServersPath: []string{"mcp"},
		Servers:     map[string]MCPServer{"agentmux": {Command: "agentmux"}},
		Replace:     true,
	}
	doc := map[string]any{
		"mcp": map[string]any{
			"stale": map[string]any{"command": "old"},
		},
	}

	servers := cfg.Apply(doc)["mcp"].(map[string]any)
	if _, ok := servers["stale"]; ok {
		t.Error("replace kept a stale entry")
	}
	if len(servers) != 1 {
		t.Errorf("replaced entries = %d, want 1", len(servers))
	}
}

// TestMCPConfigApplyNilDoc tests starting from the template skeleton.
func TestMCPConfigApplyNilDoc(t *testing.T) {
	cfg := MCPConfig{
		ServersPath: []string{"mcp"},
		Template: map[string]any{
			"mcp":     map[string]any{},
			"$schema": "https://opencode.ai/config.json",
		},
		Servers: map[string]MCPServer{"agentmux": {Command: "agentmux"}},
		Replace: true,
	}

	got := cfg.Apply(nil)
	if got["$schema"] != "https://opencode.ai/config.json" {
		t.Error("template skeleton keys missing from the new document")
	}
	servers, ok := got["mcp"].(map[string]any)
	if !ok || len(servers) != 1 {
		t.Errorf("servers node = %v, want one agentmux entry", got["mcp"])
	}
}

// TestMCPConfigApplyEmptyPath tests that a zero-value config is a no-op
// rather than a panic.
func TestMCPConfigApplyEmptyPath(t *testing.T) {
	var cfg MCPConfig
	doc := map[string]any{"keep": "me"}
	if got := cfg.Apply(doc); got["keep"] != "me" {
		t.Errorf("Apply() = %v, want the document unchanged", got)
	}
	if got := cfg.Apply(nil); got == nil {
		t.Error("Apply(nil) = nil, want an empty document")
	}
}

// TestMCPConfigApplyTemplateNotAliased tests that documents built from the
// template do not share nested maps with it or each other.
func TestMCPConfigApplyTemplateNotAliased(t *testing.T) {
	cfg := MCPConfig{
		ServersPath: []string{"mcpServers"},
		Template:    map[string]any{"mcpServers": map[string]any{}},
		Servers:     map[string]MCPServer{"agentmux": {Command: "agentmux"}},
	}

	first := cfg.Apply(nil)
	second := cfg.Apply(nil)

	first["mcpServers"].(map[string]any)["rogue"] = "entry"
	if _, ok := second["mcpServers"].(map[string]any)["rogue"]; ok {
		t.Error("documents share the template's nested map")
	}
	if _, ok := cfg.Template["mcpServers"].(map[string]any)["rogue"]; ok {
		t.Error("template mutated through an applied document")
	}
}

// TestMCPConfigApplyNestedPath tests creation of intermediate path nodes.
func TestMCPConfigApplyNestedPath(t *testing.T) {
	cfg := MCPConfig{
		ServersPath: []string{"tools", "mcpServers"},
		Servers:     map[string]MCPServer{"agentmux": {Command: "agentmux"}},
	}

	got := cfg.Apply(map[string]any{})
	tools, ok := got["tools"].(map[string]any)
	if !ok {
		t.Fatalf("intermediate node not created: %v", got)
	}
	if _, ok := tools["mcpServers"].(map[string]any); !ok {
		t.Errorf("leaf node not created: %v", tools)
	}
}
