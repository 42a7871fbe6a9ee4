package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const catalogSchemaURL = "schema://catalog.json"

// catalogSchema describes the catalog file format.
var catalogSchema = map[string]any{
	"type":     "object",
	"required": []any{"modules"},
	"properties": map[string]any{
		"modules": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "title", "topics"},
				"properties": map[string]any{
					"id":    map[string]any{"type": "string", "format": "uuid"},
					"title": map[string]any{"type": "string", "minLength": 1},
					"topics": map[string]any{
						"type":  "array",
						"items": map[string]any{"$ref": "#/$defs/topic"},
					},
				},
			},
		},
	},
	"$defs": map[string]any{
		"topic": map[string]any{
			"type":     "object",
			"required": []any{"id", "title", "lessons"},
			"properties": map[string]any{
				"id":    map[string]any{"type": "string", "format": "uuid"},
				"title": map[string]any{"type": "string", "minLength": 1},
				"lessons": map[string]any{
					"type":  "array",
					"items": map[string]any{"$ref": "#/$defs/lesson"},
				},
			},
		},
		"lesson": map[string]any{
			"type":     "object",
			"required": []any{"id", "title", "type"},
			"properties": map[string]any{
				"id":        map[string]any{"type": "string", "format": "uuid"},
				"title":     map[string]any{"type": "string"},
				"type":      map[string]any{"enum": lessonTypeEnum()},
				"published": map[string]any{"type": "boolean"},
			},
		},
	},
}

func lessonTypeEnum() []any {
	types := AllLessonTypes()
	out := make([]any, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// getCompiledSchema compiles the catalog schema once.
func getCompiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler expects a parsed JSON value, so round-trip the literal.
		defBytes, err := json.Marshal(catalogSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
		if err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		c.AssertFormat()
		if err := c.AddResource(catalogSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(catalogSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// file mirrors the on-disk JSON layout.
type file struct {
	Modules []struct {
		ID     uuid.UUID `json:"id"`
		Title  string    `json:"title"`
		Topics []struct {
			ID      uuid.UUID `json:"id"`
			Title   string    `json:"title"`
			Lessons []struct {
				ID        uuid.UUID  `json:"id"`
				Title     string     `json:"title"`
				Type      LessonType `json:"type"`
				Published *bool      `json:"published"` // absent means published
			} `json:"lessons"`
		} `json:"topics"`
	} `json:"modules"`
}

// Parse validates raw catalog JSON against the catalog schema and builds a
// Catalog from it.
func Parse(raw []byte) (*Catalog, error) {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	compiled, err := getCompiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	modules := make([]Module, 0, len(f.Modules))
	for _, fm := range f.Modules {
		m := Module{ID: fm.ID, Title: fm.Title}
		for _, ft := range fm.Topics {
			t := Topic{ID: ft.ID, Title: ft.Title}
			for _, fl := range ft.Lessons {
				t.Lessons = append(t.Lessons, Lesson{
					ID:        fl.ID,
					Title:     fl.Title,
					Type:      fl.Type,
					Published: fl.Published == nil || *fl.Published,
				})
			}
			m.Topics = append(m.Topics, t)
		}
		modules = append(modules, m)
	}
	return New(modules)
}

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}
