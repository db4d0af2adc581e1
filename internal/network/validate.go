package network

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

// schemaTypes lists the client messages whose payload is checked.
var schemaTypes = []string{
	MsgTypeJoin,
	MsgTypeChat,
	MsgTypeClaimHex,
	MsgTypeMoveUnit,
	MsgTypeBuildStructure,
}

func loadSchemas() {
	compiler := jsonschema.NewCompiler()
	for _, typ := range schemaTypes {
		name := "schemas/" + typ + ".schema.json"
		data, err := schemaFS.ReadFile(name)
		if err != nil {
			schemasErr = err
			return
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			schemasErr = fmt.Errorf("add schema %s: %w", name, err)
			return
		}
	}
	compiled := make(map[string]*jsonschema.Schema, len(schemaTypes))
	for _, typ := range schemaTypes {
		s, err := compiler.Compile("schemas/" + typ + ".schema.json")
		if err != nil {
			schemasErr = fmt.Errorf("compile schema %s: %w", typ, err)
			return
		}
		compiled[typ] = s
	}
	schemas = compiled
}

// ValidatePayload checks the payload of a client message against its JSON
// schema. Message types without a schema pass unchecked. An empty or null
// payload is validated as an empty object.
func ValidatePayload(msgType string, payload json.RawMessage) error {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s, ok := schemas[msgType]
	if !ok {
		return nil
	}
	if trimmed := bytes.TrimSpace(payload); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		payload = json.RawMessage("{}")
	}
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("decode %s payload: %w", msgType, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msgType, err)
	}
	return nil
}
