package auth

import (
	"net/mail"
	"strings"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields and the email format.
func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", strings.TrimSpace(d.Email)).Required().Custom(emailAddress)
	v.Field("password", d.Password).Required()
	return v.Validate()
}

func emailAddress(value interface{}) *internal.AppError {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil || !strings.Contains(s, "@") {
		return internal.NewValidationFieldError("email", "email is not a valid address", internal.ErrCodeValidationFailed)
	}
	return nil
}
