package service

import (
	"reflect"
	"strings"

	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// inputs checks request structs against their binding tags, the same rules
// gin applies when it binds a body.
var inputs = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateInput(req any) error {
	if err := inputs.Struct(req); err != nil {
		return apperrors.FromBindError(err)
	}
	return nil
}

// nonNegative reports a field error for amounts below zero. validator has no
// notion of decimal.Decimal, so amounts are checked here.
func nonNegative(field string, v *decimal.Decimal) error {
	if v != nil && v.IsNegative() {
		return apperrors.NewFieldError(field, "Ensure this value is greater than or equal to 0.")
	}
	return nil
}
