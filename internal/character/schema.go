package character

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FieldError describes one attribute that failed validation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every attribute problem found for a persona.
type ValidationError struct {
	Type   Type
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("character: invalid %s attributes: %s", e.Type, strings.Join(msgs, "; "))
}

// ValidateAttributes normalizes attrs and checks them against the persona's
// schema. The normalized attributes are returned on success.
func ValidateAttributes(t Type, attrs Attributes) (Attributes, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	schema, err := schemaFS.ReadFile("schemas/" + string(t) + ".json")
	if err != nil {
		return nil, fmt.Errorf("character: load schema for %s: %w", t, err)
	}

	normalized := Normalize(attrs)
	doc, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("character: marshal attributes: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("character: validate attributes: %w", err)
	}
	if result.Valid() {
		return normalized, nil
	}

	verr := &ValidationError{Type: t}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "(root)" || field == "" {
			if prop, ok := desc.Details()["property"].(string); ok {
				field = prop
			} else {
				field = "(root)"
			}
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	sort.Slice(verr.Errors, func(i, j int) bool { return verr.Errors[i].Field < verr.Errors[j].Field })
	return nil, verr
}
