package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"givto/internal/models"
	"givto/internal/validation"
)

// Variables holds the raw operation arguments
type Variables map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

func invalidArg(name, message string) error {
	return validation.ValidationError{Field: name, Message: message}
}

// String returns a required string argument
func (v Variables) String(name string) (string, error) {
	s, err := v.OptionalString(name)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", invalidArg(name, "is required")
	}
	return *s, nil
}

// OptionalString returns a nullable string argument
func (v Variables) OptionalString(name string) (*string, error) {
	raw, ok := v[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, invalidArg(name, "must be a string")
	}
	return &s, nil
}

// UserInput returns a required UserInput argument
func (v Variables) UserInput(name string) (models.UserInput, error) {
	raw, ok := v[name]
	if !ok || isNull(raw) {
		return models.UserInput{}, invalidArg(name, "is required")
	}
	return decodeUserInput(name, raw)
}

// UserInputs returns a required list of UserInput. Null entries are rejected.
func (v Variables) UserInputs(name string) ([]models.UserInput, error) {
	raw, ok := v[name]
	if !ok || isNull(raw) {
		return nil, invalidArg(name, "is required")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalidArg(name, "must be a list")
	}
	inputs := make([]models.UserInput, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("%s[%d]", name, i)
		if isNull(item) {
			return nil, invalidArg(field, "must not be null")
		}
		input, err := decodeUserInput(field, item)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

// Timestamp returns a nullable Date argument
func (v Variables) Timestamp(name string) (*time.Time, error) {
	return ParseTimestamp(name, v[name])
}

func decodeUserInput(field string, raw json.RawMessage) (models.UserInput, error) {
	var input models.UserInput
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		return models.UserInput{}, invalidArg(field, "must be an object with name and email")
	}
	return input, nil
}

// checkVariables rejects undeclared arguments and missing required ones
func checkVariables(op Operation, vars Variables) error {
	declared := make(map[string]Arg, len(op.Args))
	for _, arg := range op.Args {
		declared[arg.Name] = arg
		if arg.Required() && isNull(vars[arg.Name]) {
			return invalidArg(arg.Name, "is required")
		}
	}
	for name := range vars {
		if _, ok := declared[name]; !ok {
			return invalidArg(name, fmt.Sprintf("is not an argument of %s", op.Name))
		}
	}
	return nil
}
