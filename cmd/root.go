// Package cmd implements the CLI command structure for agentmux.
package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/nibzard/agentmux/internal/actions"
	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/executors"
	"github.com/nibzard/agentmux/internal/logging"
	"github.com/nibzard/agentmux/internal/mcpserve"
	"github.com/nibzard/agentmux/internal/msgstore"
	"github.com/nibzard/agentmux/internal/profiles"
	"github.com/nibzard/agentmux/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the agentmux CLI.
func Run(ctx context.Context, args []string) error {
	logging.Setup()

	// .env values feed the execution environment; a missing file is fine.
	_ = godotenv.Load()

	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "run":
		return runCommand(ctx, args[1:], false)
	case "resume":
		return runCommand(ctx, args[1:], true)
	case "status":
		return statusCommand(args[1:])
	case "mcp":
		return mcpCommand(ctx, args[1:])
	case "profiles":
		return profilesCommand(args[1:])
	case "version":
		fmt.Println(Version)
		return nil
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	}
	printUsage(os.Stderr)
	return fmt.Errorf("unknown command: %s", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: agentmux <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run       Start an agent for a prompt")
	fmt.Fprintln(w, "  resume    Resume a prior agent session")
	fmt.Fprintln(w, "  status    Report backend availability for a profile")
	fmt.Fprintln(w, "  mcp       Print the MCP config instruction, or \"mcp serve\" to run the approval bridge")
	fmt.Fprintln(w, "  profiles  List configured profiles")
	fmt.Fprintln(w, "  version   Print the version")
}

// envSnapshot captures the caller's environment for the spawned agent.
func envSnapshot() executors.ExecutionEnv {
	vars := map[string]string{}
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			vars[key] = value
		}
	}
	return executors.ExecutionEnv{Vars: vars}
}

func loadRegistry() (*profiles.Registry, error) {
	return profiles.Load(profiles.DefaultPath())
}

func runCommand(ctx context.Context, args []string, followUp bool) error {
	name := "run"
	if followUp {
		name = "resume"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	profile := fs.String("profile", "JBAI_CLAUDE", "Executor profile id (EXECUTOR or EXECUTOR:variant)")
	model := fs.String("model", "", "Model override for this attempt")
	workdir := fs.String("workdir", "", "Working directory relative to the base directory")
	base := fs.String("base", "", "Base directory (default: current directory)")
	prompt := fs.String("prompt", "", "Prompt text (default: read from stdin)")
	session := fs.String("session", "", "Session id to resume (resume only)")
	requestFile := fs.String("request", "", "Read a JSON request payload from this file instead of flags")
	follow := fs.Bool("follow", false, "Follow normalized output in a TUI")
	if err := fs.Parse(args); err != nil {
		return err
	}

	baseDir := *base
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		baseDir = wd
	}

	var initial *actions.InitialRequest
	var sessionID string
	if *requestFile != "" {
		data, err := os.ReadFile(*requestFile)
		if err != nil {
			return fmt.Errorf("read request file: %w", err)
		}
		if followUp {
			req, err := actions.DecodeFollowUpRequest(data)
			if err != nil {
				return err
			}
			initial, sessionID = &req.InitialRequest, req.SessionID
		} else {
			req, err := actions.DecodeInitialRequest(data)
			if err != nil {
				return err
			}
			initial = req
		}
	} else {
		text := *prompt
		if text == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read prompt from stdin: %w", err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("prompt is empty")
		}
		initial = &actions.InitialRequest{
			Prompt:            text,
			ExecutorProfileID: profiles.ParseID(*profile),
			ModelOverride:     *model,
			WorkingDir:        *workdir,
		}
		sessionID = *session
	}
	if followUp && sessionID == "" {
		return fmt.Errorf("resume requires -session or a session_id in the request payload")
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	// No approval service here: non-interactive runs rely on each
	// backend's own auto-approve flags. Backends that want gated
	// approvals call back into "agentmux mcp serve".
	env := envSnapshot()

	var child *executors.SpawnedChild
	if followUp {
		req := &actions.FollowUpRequest{InitialRequest: *initial, SessionID: sessionID}
		child, err = req.Spawn(ctx, baseDir, reg, nil, env)
	} else {
		child, err = initial.Spawn(ctx, baseDir, reg, nil, env)
	}
	if err != nil {
		return err
	}

	agent, err := initial.Resolve(reg, nil)
	if err != nil {
		return err
	}

	store := msgstore.New()
	agent.NormalizeLogs(store, initial.EffectiveDir(baseDir))

	runLog, err := logging.NewRunLogger(logging.DefaultBaseDir(), initial.EffectiveDir(baseDir))
	if err != nil {
		log.Warn("run transcript disabled", "err", err)
	}
	var transcriptDone <-chan struct{}
	if runLog != nil {
		transcriptDone = runLog.Attach(store)
		defer runLog.Close()
	}

	go func() {
		store.Stream(child.Stdout, child.Stderr)
		code, err := child.Wait()
		if err != nil {
			log.Error("wait for agent", "err", err)
		}
		store.PushFinished(code)
	}()

	if *follow && ui.IsTTY(os.Stdout) {
		if err := ui.Follow(store); err != nil {
			return err
		}
	} else {
		printRecords(store)
	}
	if transcriptDone != nil {
		<-transcriptDone
	}

	if id := store.SessionID(); id != "" {
		log.Info("session", "id", id)
	}
	return nil
}

// printRecords streams normalized entries to stdout until the store closes.
func printRecords(store *msgstore.Store) {
	records, cancel := store.Subscribe()
	defer cancel()
	for rec := range records {
		switch rec.Kind {
		case msgstore.KindNormalized:
			entry := rec.Entry
			switch entry.Kind {
			case "session_start":
				log.Info("session started", "id", entry.SessionID)
			case "tool":
				fmt.Printf("[tool] %s\n", entry.Tool)
			case "error":
				fmt.Fprintf(os.Stderr, "%s\n", entry.Content)
			default:
				if entry.Content != "" {
					fmt.Println(entry.Content)
				}
			}
		case msgstore.KindFinished:
			log.Info("agent finished", "exit_code", rec.ExitCode)
		}
	}
}

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	profile := fs.String("profile", "JBAI_CLAUDE", "Executor profile id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	agent, ok := reg.Get(profiles.ParseID(*profile))
	if !ok {
		return &executors.UnknownExecutorTypeError{Profile: *profile}
	}

	info := agent.GetAvailabilityInfo()
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func mcpCommand(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "serve" {
		mcpserve.Version = Version
		srv := mcpserve.New(approvals.AutoApprove{}, os.Stdin, os.Stdout)
		return srv.Run(ctx)
	}

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	profile := fs.String("profile", "JBAI_CLAUDE", "Executor profile id")
	merged := fs.Bool("merged", false, "Print the merged config document instead of the instruction")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	agent, ok := reg.Get(profiles.ParseID(*profile))
	if !ok {
		return &executors.UnknownExecutorTypeError{Profile: *profile}
	}
	mux, ok := agent.(*executors.Multiplexer)
	if !ok {
		return fmt.Errorf("profile %s is not a multiplexer profile", *profile)
	}

	cfg := mux.GetMCPConfig()
	if path, ok := mux.DefaultMCPConfigPath(); ok {
		log.Info("native config", "path", path)
	}

	out := any(cfg)
	if *merged {
		out = cfg.Apply(nil)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func profilesCommand(args []string) error {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	names := reg.Names()
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
