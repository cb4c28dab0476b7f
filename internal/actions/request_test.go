// Package actions tests for request decoding and profile resolution.
package actions

import (
	"errors"
	"testing"

	"github.com/nibzard/agentmux/internal/executors"
	"github.com/nibzard/agentmux/internal/profiles"
)

// TestDecodeInitialRequest tests payload validation and field decoding.
func TestDecodeInitialRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    InitialRequest
		wantErr bool
	}{
		{
			name:    "canonical field",
			payload: `{"prompt":"fix it","executor_profile_id":"JBAI_CLAUDE:deep"}`,
			want: InitialRequest{
				Prompt:            "fix it",
				ExecutorProfileID: profiles.ID{Executor: "JBAI_CLAUDE", Variant: "deep"},
			},
		},
		{
			name:    "legacy alias accepted",
			payload: `{"prompt":"fix it","profile_variant_label":{"executor":"JBAI_CODEX"}}`,
			want: InitialRequest{
				Prompt:            "fix it",
				ExecutorProfileID: profiles.ID{Executor: "JBAI_CODEX"},
			},
		},
		{
			name:    "canonical wins over alias",
			payload: `{"prompt":"p","executor_profile_id":"JBAI_GEMINI","profile_variant_label":"JBAI_CODEX"}`,
			want: InitialRequest{
				Prompt:            "p",
				ExecutorProfileID: profiles.ID{Executor: "JBAI_GEMINI"},
			},
		},
		{
			name:    "optional overrides",
			payload: `{"prompt":"p","executor_profile_id":"JBAI_CLAUDE","model_override":"opus","working_dir":"src/app"}`,
			want: InitialRequest{
				Prompt:            "p",
				ExecutorProfileID: profiles.ID{Executor: "JBAI_CLAUDE"},
				ModelOverride:     "opus",
				WorkingDir:        "src/app",
			},
		},
		{
			name:    "missing prompt rejected",
			payload: `{"executor_profile_id":"JBAI_CLAUDE"}`,
			wantErr: true,
		},
		{
			name:    "empty prompt rejected",
			payload: `{"prompt":"","executor_profile_id":"JBAI_CLAUDE"}`,
			wantErr: true,
		},
		{
			name:    "missing profile rejected",
			payload: `{"prompt":"p"}`,
			wantErr: true,
		},
		{
			name:    "malformed json rejected",
			payload: `{"prompt":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInitialRequest([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeInitialRequest() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeInitialRequest() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("request = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

// TestDecodeFollowUpRequest tests that session_id survives decoding
// alongside the embedded request fields.
func TestDecodeFollowUpRequest(t *testing.T) {
	req, err := DecodeFollowUpRequest([]byte(`{"prompt":"go on","executor_profile_id":"JBAI_CODEX","session_id":"conv-1"}`))
	if err != nil {
		t.Fatalf("DecodeFollowUpRequest() error = %v", err)
	}
	if req.SessionID != "conv-1" {
		t.Errorf("SessionID = %q, want %q", req.SessionID, "conv-1")
	}
	if req.Prompt != "go on" || req.ExecutorProfileID.Executor != "JBAI_CODEX" {
		t.Errorf("embedded fields = %+v, want prompt and profile decoded", req.InitialRequest)
	}

	// The alias field and session_id must decode together.
	req, err = DecodeFollowUpRequest([]byte(`{"prompt":"more","profile_variant_label":"JBAI_CLAUDE:deep","session_id":"s-2"}`))
	if err != nil {
		t.Fatalf("DecodeFollowUpRequest() with alias error = %v", err)
	}
	if req.SessionID != "s-2" || req.ExecutorProfileID.Variant != "deep" {
		t.Errorf("request = %+v, want session s-2 and variant deep", req)
	}

	_, err = DecodeFollowUpRequest([]byte(`{"prompt":"go on","executor_profile_id":"JBAI_CODEX"}`))
	var ve *RequestValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want RequestValidationError", err)
	}
	if ve.Path != "session_id" {
		t.Errorf("error path = %q, want %q", ve.Path, "session_id")
	}
}

// TestEffectiveDir tests working-directory resolution against the base.
func TestEffectiveDir(t *testing.T) {
	req := InitialRequest{WorkingDir: "src/app"}
	if got := req.EffectiveDir("/repo"); got != "/repo/src/app" {
		t.Errorf("EffectiveDir() = %q, want %q", got, "/repo/src/app")
	}

	req.WorkingDir = ""
	if got := req.EffectiveDir("/repo"); got != "/repo" {
		t.Errorf("EffectiveDir() = %q, want base directory", got)
	}
}

// TestResolveUnknownProfile tests the error shape for unknown profiles.
func TestResolveUnknownProfile(t *testing.T) {
	req := InitialRequest{
		Prompt:            "p",
		ExecutorProfileID: profiles.ID{Executor: "NOT_CONFIGURED", Variant: "v"},
	}

	_, err := req.Resolve(profiles.Defaults(), nil)
	var unknown *executors.UnknownExecutorTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownExecutorTypeError", err)
	}
	if unknown.Profile != "NOT_CONFIGURED:v" {
		t.Errorf("error profile = %q, want the full id string", unknown.Profile)
	}
}

// TestResolveModelOverride tests that the override reaches multiplexer
// profiles only.
func TestResolveModelOverride(t *testing.T) {
	reg := profiles.Defaults()
	reg.Set("RAW_CLAUDE", profiles.Profile{Type: "claude", Model: "base"})

	req := InitialRequest{
		Prompt:            "p",
		ExecutorProfileID: profiles.ID{Executor: "JBAI_CLAUDE"},
		ModelOverride:     "opus",
	}
	agent, err := req.Resolve(reg, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if mux := agent.(*executors.Multiplexer); mux.Model != "opus" {
		t.Errorf("multiplexer Model = %q, want the override", mux.Model)
	}

	req.ExecutorProfileID = profiles.ID{Executor: "RAW_CLAUDE"}
	agent, err = req.Resolve(reg, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if claude := agent.(*executors.ClaudeCode); claude.Model != "base" {
		t.Errorf("concrete executor Model = %q, want untouched", claude.Model)
	}
}
