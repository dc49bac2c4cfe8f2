package filter

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidFilter wraps every validation failure.
var ErrInvalidFilter = errors.New("invalid filter")

// validatorInstance is a package-level validator instance.
var validatorInstance = validator.New()

// Validate checks pagination bounds, enum membership and the price range.
func Validate(f FilterState) error {
	if err := validatorInstance.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return nil
}
