package executors

// CmdOverrides carries optional invocation overrides merged into a backend's
// default command line.
type CmdOverrides struct {
	// BaseCommand replaces the backend's default binary when set.
	BaseCommand string `toml:"base_command" json:"base_command,omitempty"`

	// Env is added to the spawned process environment. Keys are unique;
	// values are opaque.
	Env map[string]string `toml:"env" json:"env,omitempty"`

	// ExtraArgs are appended after the backend's own arguments.
	ExtraArgs []string `toml:"extra_args" json:"extra_args,omitempty"`
}

// Command returns the binary to run: the explicit override when present,
// otherwise the supplied default. These two paths never both apply.
func (c CmdOverrides) Command(fallback string) string {
	if c.BaseCommand != "" {
		return c.BaseCommand
	}
	return fallback
}

// WithDefaultCommand returns a copy with BaseCommand filled in from fallback
// when no explicit override was set.
func (c CmdOverrides) WithDefaultCommand(fallback string) CmdOverrides {
	if c.BaseCommand == "" {
		c.BaseCommand = fallback
	}
	return c
}
