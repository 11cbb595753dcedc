package orders

import (
	"errors"
	"reflect"
	"strings"

	"pickup-kitchen/apperr"

	"github.com/go-playground/validator/v10"
)

// Contact is captured on the order at checkout, independent of any account.
type Contact struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,min=7,max=20"`
	Email     string `json:"email" validate:"required,email,max=254"`
}

func (c Contact) normalized() Contact {
	return Contact{
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Phone:     strings.TrimSpace(c.Phone),
		Email:     strings.ToLower(strings.TrimSpace(c.Email)),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateContact reports the first offending field as a ValidationError.
func validateContact(v *validator.Validate, c Contact) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Invalid("contact", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Invalid(fe.Field(), "is required")
	case "email":
		return apperr.Invalid(fe.Field(), "must be a valid email address")
	case "min":
		return apperr.Invalid(fe.Field(), "must be at least "+fe.Param()+" characters")
	case "max":
		return apperr.Invalid(fe.Field(), "must be at most "+fe.Param()+" characters")
	default:
		return apperr.Invalid(fe.Field(), "is invalid")
	}
}
