package util

import (
	"errors"
	"fmt"
	"slices"
)

const (
	APIVersionV1Alpha1 = "htmlrunner/v1alpha1"
)

var (
	ErrUnknownAPIVersion = errors.New("unknown apiVersion")
	ErrInvalidKind       = errors.New("invalid kind")
)

// supportedAPIVersions lists every version a document may declare. An
// empty version means the current one.
var supportedAPIVersions = []string{"", APIVersionV1Alpha1}

// TypeMeta identifies the kind and schema version of a YAML document.
type TypeMeta struct {
	APIVersion string `json:"apiVersion,omitempty"`
	Kind       string `json:"kind"`
}

// GetAPIVersion returns the declared version, defaulting to the current one.
func (t *TypeMeta) GetAPIVersion() string {
	if t.APIVersion == "" {
		return APIVersionV1Alpha1
	}
	return t.APIVersion
}

// Validate reports every problem with the header at once.
func (t *TypeMeta) Validate(expectedKind string) error {
	return errors.Join(
		ValidateAPIVersion(t.APIVersion),
		validateKind(t.Kind, expectedKind),
	)
}

func ValidateAPIVersion(version string) error {
	if slices.Contains(supportedAPIVersions, version) {
		return nil
	}
	return fmt.Errorf("%w: '%s'", ErrUnknownAPIVersion, version)
}

func validateKind(kind, expected string) error {
	if kind == expected {
		return nil
	}
	return fmt.Errorf("%w '%s': expected '%s'", ErrInvalidKind, kind, expected)
}
