package actions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// requestSchema validates incoming request payloads before decoding.
const requestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "prompt": {"type": "string", "minLength": 1},
    "executor_profile_id": {"$ref": "#/$defs/profileId"},
    "profile_variant_label": {"$ref": "#/$defs/profileId"},
    "model_override": {"type": ["string", "null"]},
    "working_dir": {"type": ["string", "null"]},
    "session_id": {"type": "string", "minLength": 1}
  },
  "required": ["prompt"],
  "anyOf": [
    {"required": ["executor_profile_id"]},
    {"required": ["profile_variant_label"]}
  ],
  "$defs": {
    "profileId": {
      "oneOf": [
        {"type": "string", "minLength": 1},
        {
          "type": "object",
          "properties": {
            "executor": {"type": "string", "minLength": 1},
            "variant": {"type": "string"}
          },
          "required": ["executor"]
        }
      ]
    }
  }
}`

var compiledRequestSchema = jsonschema.MustCompileString("request.schema.json", requestSchema)

// RequestValidationError represents a schema violation in a request payload.
type RequestValidationError struct {
	Path    string
	Message string
}

func (e *RequestValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("request validation failed at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("request validation failed: %s", e.Message)
}

// validatePayload checks raw JSON against the request schema.
func validatePayload(data []byte) error {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}
	if err := compiledRequestSchema.Validate(payload); err != nil {
		return mapSchemaError(err)
	}
	return nil
}

// DecodeInitialRequest validates and decodes an initial request payload.
func DecodeInitialRequest(data []byte) (*InitialRequest, error) {
	if err := validatePayload(data); err != nil {
		return nil, err
	}
	var req InitialRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// DecodeFollowUpRequest validates and decodes a follow-up request payload.
// The session id is required.
func DecodeFollowUpRequest(data []byte) (*FollowUpRequest, error) {
	if err := validatePayload(data); err != nil {
		return nil, err
	}
	var req FollowUpRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.SessionID == "" {
		return nil, &RequestValidationError{Path: "session_id", Message: "missing session id"}
	}
	return &req, nil
}

// mapSchemaError converts a jsonschema ValidationError to the first useful
// RequestValidationError.
func mapSchemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &RequestValidationError{Message: err.Error()}
	}
	var result error
	collectSchemaErrors(ve, &result)
	if result != nil {
		return result
	}
	return &RequestValidationError{Message: ve.Message}
}

func collectSchemaErrors(err *jsonschema.ValidationError, result *error) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		*result = &RequestValidationError{
			Path:    jsonPointerToPath(err.InstanceLocation),
			Message: err.Message,
		}
		return
	}
	for _, cause := range err.Causes {
		if *result == nil {
			collectSchemaErrors(cause, result)
		}
	}
}

// jsonPointerToPath converts a JSON pointer to a dotted path string.
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	path := ""
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}
