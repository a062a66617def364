package planfmt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaSource is the JSON Schema for the serialized plan shape: one
// namespace entry per key, each with an ordered rule list, each rule
// carrying a pattern of typed stages. Mirrors spec §6's keyed-table
// description of the plan's external shape.
const schemaSource = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["FormatVersion", "Namespaces"],
  "properties": {
    "FormatVersion": {"type": "string"},
    "Namespaces": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["Name", "Rules"],
        "properties": {
          "Name": {"type": "string"},
          "Imports": {"type": "array"},
          "Rules": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["Name", "Pattern"],
              "properties": {
                "Name": {"type": "string"},
                "Pattern": {
                  "type": "array",
                  "items": {"$ref": "#/definitions/stage"}
                },
                "Storage": {"type": "array"}
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "stage": {
      "type": "object",
      "required": ["Type"],
      "properties": {
        "Type": {
          "type": "string",
          "enum": ["ExactMatch", "PatternMatch", "Group", "Select", "Numeric", "Identifier"]
        },
        "Children": {
          "type": "array",
          "items": {"$ref": "#/definitions/stage"}
        }
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("plan.schema.json", bytes.NewReader([]byte(schemaSource))); err != nil {
		return nil, fmt.Errorf("planfmt: invalid embedded schema: %w", err)
	}
	sch, err := compiler.Compile("plan.schema.json")
	if err != nil {
		return nil, fmt.Errorf("planfmt: failed to compile schema: %w", err)
	}
	compiledSchema = sch
	return sch, nil
}

// Validate checks that cp, round-tripped through JSON, matches the
// plan-shape schema. Codegen hosts that consume a JSON rendering of the
// plan (rather than the canonical CBOR form) call this to fail fast on
// a malformed or unexpectedly-shaped plan.
func Validate(cp *CanonicalPlan) error {
	sch, err := schema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("planfmt: failed to render plan as JSON: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("planfmt: failed to decode rendered plan: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("planfmt: plan does not match expected shape: %w", err)
	}
	return nil
}
