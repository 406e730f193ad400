package record

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tbxark/civicdesk/registry"
)

// OperationAdd is the only operation a record accepts. Record values form a flat
// object, so an add creates a field or overwrites it.
const OperationAdd = "add"

// Operation is a single RFC6902 operation against the record value document.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Apply validates raw for field and writes it. On an unknown field or a rejected
// value the original record is returned unchanged with false.
func Apply(r Record, field string, raw any) (Record, bool) {
	next, err := ApplyValue(r, field, raw)
	if err != nil {
		return r, false
	}
	return next, true
}

// ApplyValue is Apply with the reason a value was rejected.
func ApplyValue(r Record, field string, raw any) (Record, error) {
	f, ok := registry.Field(r.Kind, field)
	if !ok {
		return r, registry.Invalid("field %q is not part of %s", field, r.Kind)
	}
	value, err := f.Validate(raw)
	if err != nil {
		return r, err
	}
	if IsEmpty(value) {
		return r, registry.Invalid("%s is required", f.Label)
	}
	next, err := ApplyOperations(r, []Operation{{Op: OperationAdd, Path: f.Pointer(), Value: value}})
	if err != nil {
		return r, err
	}
	return next, nil
}

// ApplyOperations applies ops after checking every path names a declared field.
func ApplyOperations(r Record, ops []Operation) (Record, error) {
	if len(ops) == 0 {
		return r, nil
	}
	if err := ValidatePaths(ops, AllowedPaths(r.Kind)); err != nil {
		return r, err
	}

	values := r.Values
	if values == nil {
		values = map[string]any{}
	}
	currentJSON, err := json.Marshal(values)
	if err != nil {
		return r, fmt.Errorf("failed to marshal record values: %w", err)
	}

	patchJSON, err := json.Marshal(ops)
	if err != nil {
		return r, fmt.Errorf("failed to marshal patch operations: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return r, fmt.Errorf("failed to decode patch: %w", err)
	}
	modifiedJSON, err := patch.Apply(currentJSON)
	if err != nil {
		return r, fmt.Errorf("failed to apply patch: %w", err)
	}

	var next map[string]any
	if err := json.Unmarshal(modifiedJSON, &next); err != nil {
		return r, fmt.Errorf("failed to unmarshal record values: %w", err)
	}
	return Record{Kind: r.Kind, Values: next}, nil
}

// AllowedPaths returns the JSON pointers writable for kind.
func AllowedPaths(kind registry.Kind) map[string]bool {
	fields := registry.Fields(kind)
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f.Pointer()] = true
	}
	return allowed
}

// ValidatePaths checks that every op is an add of a declared field.
func ValidatePaths(ops []Operation, allowed map[string]bool) error {
	for i, op := range ops {
		if op.Op != OperationAdd {
			return fmt.Errorf("operation %d: %w: %q is not supported", i, registry.ErrValidation, op.Op)
		}
		if !allowed[op.Path] {
			return fmt.Errorf("operation %d: %w: path %q is not in the allowed paths set", i, registry.ErrValidation, op.Path)
		}
	}
	return nil
}
