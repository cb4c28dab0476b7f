// Package logging configures console logging and writes JSONL run transcripts.
package logging

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/agentmux/internal/msgstore"
)

// Setup configures the default console logger from the environment.
// AGENTMUX_LOG_LEVEL selects the level (debug, info, warn, error);
// AGENTMUX_LOG_FORMAT selects text, json or logfmt output.
func Setup() {
	log.SetPrefix("agentmux")

	switch strings.ToLower(os.Getenv("AGENTMUX_LOG_LEVEL")) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	switch strings.ToLower(os.Getenv("AGENTMUX_LOG_FORMAT")) {
	case "json":
		log.SetFormatter(log.JSONFormatter)
	case "logfmt":
		log.SetFormatter(log.LogfmtFormatter)
	}
}

// DefaultBaseDir is where run transcripts live.
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentmux"
	}
	return filepath.Join(home, ".agentmux", "logs")
}

// RunLogger manages one per-run JSONL transcript file.
type RunLogger struct {
	Dir     string
	RunID   string
	LogPath string
	file    *os.File
}

// NewRunLogger creates a per-run transcript under
// <baseDir>/<project-slug>/<run-id>.jsonl.
func NewRunLogger(baseDir, workDir string) (*RunLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("log base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	logDir := filepath.Join(baseDir, projectSlug(resolvedWorkDir))
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	id := runID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s.jsonl", id))
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	return &RunLogger{
		Dir:     logDir,
		RunID:   id,
		LogPath: logPath,
		file:    file,
	}, nil
}

// Attach subscribes to the store and writes every record as one JSON line
// until the store closes. It returns immediately; the returned channel
// closes when the transcript is complete.
func (r *RunLogger) Attach(store *msgstore.Store) <-chan struct{} {
	done := make(chan struct{})
	records, cancel := store.Subscribe()
	go func() {
		defer close(done)
		defer cancel()
		for rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			if _, err := r.file.Write(append(data, '\n')); err != nil {
				log.Warn("write transcript", "path", r.LogPath, "err", err)
				return
			}
		}
	}()
	return done
}

// Close closes the transcript file.
func (r *RunLogger) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

func projectSlug(projectRoot string) string {
	name := filepath.Base(projectRoot)
	return fmt.Sprintf("%s-%s", slugify(name), hashPath(projectRoot))
}

func slugify(input string) string {
	if strings.TrimSpace(input) == "" {
		return "project"
	}

	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "project"
	}
	return slug
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}

func runID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}
