package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema describes the JSON types of a phase document. Presence and
// non-emptiness are checked by the ordered rules so the first violation can
// be named precisely; the schema only rejects wrong types.
type documentSchema struct {
	Name       string
	Definition map[string]any
}

var str = map[string]any{"type": "string"}

var outlineSchema = &documentSchema{
	Name: "course-outline",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": str,
			"modules": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":   str,
						"lessons": map[string]any{"type": "array", "items": str},
					},
				},
			},
		},
	},
}

var contentSchema = &documentSchema{
	Name: "course-content",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":          str,
			"estimated_time": str,
			"modules": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":       str,
						"description": str,
						"lessons": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"title":   str,
									"content": str,
									"quiz": map[string]any{
										"type": []any{"object", "null"},
										"properties": map[string]any{
											"question": str,
											"answer":   str,
										},
									},
								},
							},
						},
					},
				},
			},
			"next_steps": map[string]any{"type": "array", "items": str},
		},
	},
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

func compiledSchema(s *documentSchema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(s.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a generic JSON value, not Go maps with typed slices.
	defBytes, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", s.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(s.Name, compiled)
	return compiled, nil
}

// checkTypes validates doc against s and returns a short reason naming the
// first offending location, or "" when the document is well typed.
func checkTypes(s *documentSchema, doc any) (string, error) {
	compiled, err := compiledSchema(s)
	if err != nil {
		return "", err
	}
	err = compiled.Validate(doc)
	if err == nil {
		return "", nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return "", err
	}
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return fmt.Sprintf("%s: has the wrong JSON type", location(leaf.InstanceLocation)), nil
}

// location renders a JSON pointer path as "modules[0].lessons[1].content".
func location(path []string) string {
	if len(path) == 0 {
		return "document"
	}
	var b strings.Builder
	for _, p := range path {
		if isIndex(p) {
			b.WriteString("[" + p + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
