package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/coderecap/coderecap/internal/clients"
)

// clientsSchema constrains the routing rules: every rule names a client and
// at least one pattern; excludes and context are optional.
const clientsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["client", "patterns"],
    "additionalProperties": false,
    "properties": {
      "client":   {"type": "string", "minLength": 1},
      "patterns": {"type": "array", "items": {"type": "string", "minLength": 1}, "minItems": 1},
      "exclude":  {"type": "array", "items": {"type": "string", "minLength": 1}},
      "context":  {"type": "string"}
    }
  }
}`

// ErrInvalidClients indicates the clients section does not match its schema.
var ErrInvalidClients = errors.New("clients section is invalid")

func validateClients(rules []clients.Rule) error {
	if len(rules) == 0 {
		return nil
	}

	doc, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("marshal clients: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(clientsSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate clients: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidClients, strings.Join(problems, "; "))
}
