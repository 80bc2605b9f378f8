package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://gridbot.ai/schemas/"

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		names := map[string]string{
			TypeHello:   "hello.schema.json",
			TypeWelcome: "welcome.schema.json",
			TypeReq:     "req.schema.json",
			TypeRes:     "res.schema.json",
		}
		for _, file := range names {
			raw, err := schemaFS.ReadFile("schemas/" + file)
			if err != nil {
				schemasErr = err
				return
			}
			if err := c.AddResource(schemaBase+file, bytes.NewReader(raw)); err != nil {
				schemasErr = fmt.Errorf("schema %s: %w", file, err)
				return
			}
		}
		out := make(map[string]*jsonschema.Schema, len(names))
		for typ, file := range names {
			s, err := c.Compile(schemaBase + file)
			if err != nil {
				schemasErr = fmt.Errorf("compile %s: %w", file, err)
				return
			}
			out[typ] = s
		}
		schemas = out
	})
	return schemas, schemasErr
}

// Validate checks a raw message against the schema for its type.
func Validate(raw []byte) error {
	base, err := DecodeBase(raw)
	if err != nil {
		return err
	}
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	s, ok := all[strings.ToUpper(base.Type)]
	if !ok {
		return fmt.Errorf("no schema for message type %q", base.Type)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// ValidateValue marshals v and validates the result.
func ValidateValue(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Validate(raw)
}
