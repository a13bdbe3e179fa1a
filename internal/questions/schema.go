package questions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// fileSchema describes a question import file.
var fileSchema = map[string]any{
	"type":     "object",
	"required": []any{"questions"},
	"properties": map[string]any{
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"question_text", "correct_answer"},
				"properties": map[string]any{
					"id":            map[string]any{"type": "string"},
					"topic":         map[string]any{"type": "string"},
					"difficulty":    map[string]any{"type": "string", "enum": []any{"easy", "medium", "hard"}},
					"question_type": map[string]any{"type": "string", "enum": []any{"multiple_choice", "true_false"}},
					"question_text": map[string]any{"type": "string", "minLength": 1},
					"options": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"correct_answer": map[string]any{"type": "string", "minLength": 1},
					"explanation":    map[string]any{"type": "string"},
				},
			},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func questionFileSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a decoded JSON value, not Go literals.
		b, err := json.Marshal(fileSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const url = "schema://question-file.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}

type importFile struct {
	Questions []*Record `json:"questions"`
}

// Decode reads a question import file, validates it against the import
// schema and returns normalized records bound to materialID. Records
// without an id receive a generated one.
func Decode(r io.Reader, materialID string) ([]*Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	sch, err := questionFileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile question schema: %w", err)
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, fmt.Errorf("question file does not match schema: %w", err)
	}

	var f importFile
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	for i, q := range f.Questions {
		q.MaterialID = materialID
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.Normalize()
		switch q.Type {
		case TypeTrueFalse:
			if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
				return nil, fmt.Errorf("question %d (%s): true/false answer must be true or false, got %q", i, q.ID, q.CorrectAnswer)
			}
		case TypeMultipleChoice:
			if len(q.Options) < 2 {
				return nil, fmt.Errorf("question %d (%s): multiple choice needs at least 2 options, got %d", i, q.ID, len(q.Options))
			}
			if !hasOption(q) {
				return nil, fmt.Errorf("question %d (%s): correct answer %q is not one of its options", i, q.ID, q.CorrectAnswer)
			}
		}
	}
	return f.Questions, nil
}

func hasOption(r *Record) bool {
	for _, o := range r.Options {
		if r.CheckAnswer(o) {
			return true
		}
	}
	return false
}
