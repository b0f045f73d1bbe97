package validation

import (
	"errors"
)

var ErrInvalidPin = errors.New("PIN must be exactly 6 digits")

// ValidatePin enforces the 6-digit numeric PIN format before any hash
// comparison happens.
func ValidatePin(pin string) error {
	if len(pin) != 6 {
		return ErrInvalidPin
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}
