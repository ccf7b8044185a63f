package usecase

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidID = errors.New("invalid id")
	ErrNotFound  = errors.New("not found")
)

// ValidationError wraps a rejected car record. Its message lists the offending fields.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	var fieldErrs validator.ValidationErrors
	if errors.As(e.Err, &fieldErrs) && len(fieldErrs) > 0 {
		msg := "invalid car:"
		for i, fe := range fieldErrs {
			if i > 0 {
				msg += ","
			}
			msg += fmt.Sprintf(" %s failed %s", fe.Namespace(), fe.Tag())
		}
		return msg
	}
	return "invalid car: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
