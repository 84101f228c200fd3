package domain

import (
	"encoding/json"
	"slices"
)

// ApplyPayloadPatch merges patch into p and returns the new payload.
// Every key must be one of p.Fields(); values are checked by decoding the
// merged document back into the variant, so a value of the wrong shape
// fails with a TypeMismatchError. p itself is never modified.
func ApplyPayloadPatch(p Payload, patch map[string]any) (Payload, error) {
	t := p.BlockType()
	fields := p.Fields()
	for key := range patch {
		if slices.Contains(blockHeaderFields, key) {
			return nil, &TypeMismatchError{BlockType: t, Field: key, Reason: "field is not editable"}
		}
		if !slices.Contains(fields, key) {
			return nil, &TypeMismatchError{BlockType: t, Field: key, Reason: "field not defined for this block type"}
		}
	}

	current, err := json.Marshal(p)
	if err != nil {
		return nil, asTypeMismatch(t, err)
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return nil, asTypeMismatch(t, err)
	}
	for key, value := range patch {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, &TypeMismatchError{BlockType: t, Field: key, Reason: err.Error()}
		}
		merged[key] = raw
	}
	body, err := json.Marshal(merged)
	if err != nil {
		return nil, asTypeMismatch(t, err)
	}

	next, err := decodePayload(t, body)
	if err != nil {
		return nil, err
	}
	if err := next.validate(); err != nil {
		return nil, err
	}
	return next, nil
}
