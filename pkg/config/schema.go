package config

import (
	"bytes"
	encjson "encoding/json"
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "https://clasp.dev/schema/config.json"

// schemaJSON describes the accepted shape of a config file. Loading is
// lenient; Validate is strict and reports every violation.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "scan": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "globs": {"type": "array", "items": {"type": "string"}},
        "ignore_globs": {"type": "array", "items": {"type": "string"}},
        "gitignore": {"type": "boolean"},
        "max_file_size": {"type": "string"}
      }
    },
    "patterns": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "similarity_threshold": {"type": "number", "minimum": 0, "maximum": 1},
        "min_occurrences": {"type": "integer", "minimum": 1},
        "min_variants": {"type": "integer", "minimum": 1}
      }
    },
    "scoring": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "variant_weight": {"type": "number", "minimum": 0, "maximum": 100},
        "frequency_weight": {"type": "number", "minimum": 0, "maximum": 100}
      }
    },
    "extract": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "strategies": {"type": "object", "additionalProperties": {"type": "string", "minLength": 1}},
        "file_types": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}},
        "match_timeout_ms": {"type": "integer", "minimum": 1}
      }
    },
    "cache": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "dir": {"type": "string"},
        "ttl": {"type": "integer", "minimum": 1}
      }
    },
    "output": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "color": {"type": "boolean"},
        "console": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "enabled": {"type": "boolean"},
            "top": {"type": "integer", "minimum": 0}
          }
        },
        "json": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "enabled": {"type": "boolean"},
            "path": {"type": "string"}
          }
        }
      }
    }
  }
}`

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
}

// Validate checks a config file against the schema and then checks that every
// strategy referenced by a file type exists. Unlike Load it substitutes nothing.
func Validate(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Round-trip through JSON so the validator sees JSON types only.
	raw, err := encjson.Marshal(k.Raw())
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	sch, err := compileSchema()
	if err != nil {
		return fmt.Errorf("invalid built-in schema: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return err
	}

	cfg, _, err := Load(path)
	if err != nil {
		return err
	}
	return cfg.CheckStrategies()
}

// CheckStrategies reports file types that reference unknown strategies.
func (c *Config) CheckStrategies() error {
	var missing []string
	for ext, names := range c.Extract.FileTypes {
		for _, name := range names {
			if _, ok := c.Extract.Strategies[name]; !ok {
				missing = append(missing, ext+"->"+name)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, strings.Join(missing, ", "))
	}
	return nil
}
