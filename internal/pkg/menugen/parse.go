package menugen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var errNotSingleObject = errors.New("model output is not a single JSON object")

// parseMenu decodes the model's reply strictly: the content must be exactly
// one JSON object matching the menu schema, with nothing before or after it.
// Prose-wrapped or truncated replies are rejected so the caller can surface a
// clean generation failure instead of serving half a menu.
func parseMenu(content string) (*Menu, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()

	var menu Menu
	if err := dec.Decode(&menu); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotSingleObject, err)
	}
	// Anything but whitespace after the object means the model added prose.
	if dec.More() {
		return nil, errNotSingleObject
	}

	if err := validate.Struct(&menu); err != nil {
		return nil, fmt.Errorf("model output failed schema validation: %w", err)
	}
	return &menu, nil
}
