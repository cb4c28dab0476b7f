package executors

// MCPServer is one auxiliary protocol server entry, in the shape the
// backend's native config expects.
type MCPServer struct {
	Command string            `json:"command,omitempty" toml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" toml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" toml:"env,omitempty"`

	// Type and URL describe non-stdio transports where the backend
	// supports them.
	Type string `json:"type,omitempty" toml:"type,omitempty"`
	URL  string `json:"url,omitempty" toml:"url,omitempty"`
}

// MCPConfig describes how preconfigured server entries merge into a
// backend's native config document. Differences across backends are data,
// not logic: no two backends share a document shape.
type MCPConfig struct {
	// ServersPath is the ordered key path at which entries live.
	ServersPath []string `json:"servers_path"`

	// Template is the default skeleton document used when the backend has
	// no config file yet.
	Template map[string]any `json:"template"`

	// Servers are the preconfigured entries to merge in.
	Servers map[string]MCPServer `json:"servers"`

	// Replace fully replaces existing user entries at ServersPath instead
	// of merging non-destructively.
	Replace bool `json:"replace"`
}

// Apply merges the preconfigured servers into doc at ServersPath and
// returns the document. A nil doc starts from a copy of the template.
func (m MCPConfig) Apply(doc map[string]any) map[string]any {
	if doc == nil {
		doc = deepCopy(m.Template)
	}
	if len(m.ServersPath) == 0 {
		return doc
	}

	node := doc
	for _, key := range m.ServersPath[:len(m.ServersPath)-1] {
		child, ok := node[key].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[key] = child
		}
		node = child
	}

	leaf := m.ServersPath[len(m.ServersPath)-1]
	existing, ok := node[leaf].(map[string]any)
	if m.Replace || !ok {
		existing = map[string]any{}
	}
	for name, server := range m.Servers {
		existing[name] = server
	}
	node[leaf] = existing
	return doc
}

// deepCopy clones nested map nodes so documents started from the template
// never alias it.
func deepCopy(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		if child, ok := v.(map[string]any); ok {
			dst[k] = deepCopy(child)
			continue
		}
		dst[k] = v
	}
	return dst
}
