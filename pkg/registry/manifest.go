package registry

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
)

// manifestSchema rejects malformed permission and tool specs before a
// third-party registration reaches storage.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "version", "tools"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+"},
    "description": {"type": "string"},
    "author": {"type": "string"},
    "homepage": {"type": "string"},
    "tools": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "returns": {"type": "string"},
          "parameters": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "type"],
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "type": {"enum": ["string", "number", "boolean", "array", "object"]},
                "required": {"type": "boolean"}
              }
            }
          }
        }
      }
    },
    "permissions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"enum": ["network", "filesystem", "env", "exec", "database", "custom"]},
          "scope": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

var (
	manifestSchemaOnce sync.Once
	compiledManifest   *jsonschema.Schema
	manifestSchemaErr  error
)

func manifestValidator() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(manifestSchema))
		if err != nil {
			manifestSchemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("manifest.schema.json", doc); err != nil {
			manifestSchemaErr = err
			return
		}
		compiledManifest, manifestSchemaErr = compiler.Compile("manifest.schema.json")
	})
	return compiledManifest, manifestSchemaErr
}

// ValidateManifest checks a third-party manifest against the schema.
func ValidateManifest(manifest *models.Manifest) error {
	if manifest == nil {
		return errors.New("manifest is required")
	}

	schema, err := manifestValidator()
	if err != nil {
		return errors.Wrap(err, "manifest schema unavailable")
	}

	raw, err := json.Marshal(manifest)
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "failed to decode manifest")
	}

	return schema.Validate(instance)
}
