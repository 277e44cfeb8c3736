package util

import (
	"encoding/json"
	"fmt"
)

// UnmarshalWithKind decodes data into target after checking that its type
// metadata names expectedKind and a known apiVersion. target should be a
// pointer to a type without its own UnmarshalJSON, usually an alias of the
// caller's type.
func UnmarshalWithKind(data []byte, target any, expectedKind string) error {
	var meta TypeMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}

	if err := meta.Validate(expectedKind); err != nil {
		return fmt.Errorf("cannot decode document as kind '%s': %w", expectedKind, err)
	}

	return json.Unmarshal(data, target)
}
