package schema

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// NotEmpty rejects nil values and empty strings.
func NotEmpty() Validator {
	return func(v any) error {
		switch v := v.(type) {
		case nil:
			return errors.New("value is required")
		case string:
			if v == "" {
				return errors.New("value must not be empty")
			}
		}
		return nil
	}
}

// MaxLen rejects strings longer than n characters.
func MaxLen(n int) Validator {
	return func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) > n {
			return fmt.Errorf("value is longer than %d characters", n)
		}
		return nil
	}
}
