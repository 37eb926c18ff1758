package tool

import "fmt"

// RequireField returns an error if the string value is empty.
func RequireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("'%s' is required", name)
	}
	return nil
}

// ValidateMaxLength checks that value is at most max bytes long.
func ValidateMaxLength(name, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("'%s' must be at most %d characters", name, max)
	}
	return nil
}

// ValidateAll returns the first non-nil error from the given list.
//
//	if err := ValidateAll(RequireField("message", m), ValidateMaxLength("message", m, 500)); err != nil { ... }
func ValidateAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
