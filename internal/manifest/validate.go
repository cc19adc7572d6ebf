package manifest

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	// ErrMissingAPIVersion indicates a manifest is missing the apiVersion field.
	ErrMissingAPIVersion = errors.New("missing apiVersion field")

	// ErrMissingKind indicates a manifest is missing the kind field.
	ErrMissingKind = errors.New("missing kind field")

	// ErrMissingName indicates a manifest is missing metadata.name.
	ErrMissingName = errors.New("missing metadata.name field")
)

// Validate checks that the manifest carries apiVersion, kind and a name.
func (m *Manifest) Validate() error {
	var errs []error
	if m.GetAPIVersion() == "" {
		errs = append(errs, ErrMissingAPIVersion)
	}
	if m.GetKind() == "" {
		errs = append(errs, ErrMissingKind)
	}
	if m.GetName() == "" {
		errs = append(errs, ErrMissingName)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid manifest %s: %w", m.FullResourceName(), errors.Join(errs...))
	}
	return nil
}
