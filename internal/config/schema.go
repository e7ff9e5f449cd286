package config

import (
	"encoding/json"
	"fmt"
	"strings"

	vderrors "github.com/systmms/vaultdoor/internal/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// configSchema is the JSON schema the YAML document must satisfy. Shape
// checks live here; cross-field rules (per-type required settings) live in
// Config.Validate.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "vaultdoor configuration",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "listen": {"type": "string", "minLength": 1},
    "api_token": {"type": "string"},
    "docs": {"type": "boolean"},
    "debug": {"type": "boolean"},
    "no_color": {"type": "boolean"},
    "cors_origins": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "cache": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "capacity": {"type": "integer", "minimum": 1}
      }
    },
    "store": {
      "type": "object",
      "properties": {
        "type": {
          "type": "string",
          "enum": [
            "memory",
            "azure.keyvault",
            "azure",
            "aws.secretsmanager",
            "aws.ssm",
            "gcp.secretmanager",
            "gcp",
            "sql",
            "keychain"
          ]
        }
      },
      "additionalProperties": true
    }
  }
}`

// validateSchema checks a raw YAML document against the embedded schema
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return vderrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if doc == nil {
		return nil
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return vderrors.ConfigError{
			Message:    fmt.Sprintf("configuration does not match the expected schema:\n  - %s", strings.Join(messages, "\n  - ")),
			Suggestion: "Compare your file against the annotated example in the README",
		}
	}

	return nil
}
