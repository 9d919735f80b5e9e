package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const preferencesSchemaName = "dashboard_preferences.json"

// ErrInvalidPreferences marks a patch rejected by validation.
var ErrInvalidPreferences = errors.New("dashboard: invalid preferences")

// PreferencesValidator checks preference patches before they reach the store.
type PreferencesValidator interface {
	Validate(patch PreferencesPatch) error
}

// JSONSchemaValidator validates patches against the preferences JSON schema.
type JSONSchemaValidator struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{}
}

// Validate ensures the patch carries lists of unique, non-empty section ids.
func (v *JSONSchemaValidator) Validate(patch PreferencesPatch) error {
	schema, err := v.compiled()
	if err != nil {
		return err
	}
	if err := schema.Validate(patchPayload(patch)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}
	return nil
}

func (v *JSONSchemaValidator) compiled() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		data, err := json.Marshal(preferencesSchema())
		if err != nil {
			v.err = fmt.Errorf("dashboard: marshal preferences schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(preferencesSchemaName, bytes.NewReader(data)); err != nil {
			v.err = fmt.Errorf("dashboard: load preferences schema: %w", err)
			return
		}
		v.schema, v.err = compiler.Compile(preferencesSchemaName)
		if v.err != nil {
			v.err = fmt.Errorf("dashboard: compile preferences schema: %w", v.err)
		}
	})
	return v.schema, v.err
}

// patchPayload converts the patch into the generic JSON shape the schema
// validator walks. Nil fields are omitted so they stay optional.
func patchPayload(patch PreferencesPatch) map[string]any {
	payload := map[string]any{}
	if patch.WidgetOrder != nil {
		payload["widget_order"] = idsPayload(patch.WidgetOrder)
	}
	if patch.HiddenSections != nil {
		payload["hidden_sections"] = idsPayload(patch.HiddenSections)
	}
	return payload
}

func idsPayload(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
