package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromBindError converts gin binding failures into the field-keyed shape.
// Field names come from the json tags, so the validator must have a tag name
// func registered (see handler.RegisterValidation).
func FromBindError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := New(ErrValidation, MsgInvalidInput, err)
		for _, fe := range verrs {
			out.WithDetail(fieldPath(fe), describe(fe))
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "nonFieldErrors"
		}
		return NewFieldError(field, fmt.Sprintf("Expected %s.", typeErr.Type.String()))
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return New(ErrValidation, "JSON parse error", err)
	}
	if errors.Is(err, io.EOF) {
		return New(ErrValidation, MsgInvalidInput, err)
	}
	return New(ErrValidation, err.Error(), err)
}

// fieldPath strips the root struct name from the validator namespace so that
// nested fields read like "legs[0].strike".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "uuid", "uuid4":
		return "Must be a valid UUID."
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "len":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("Ensure this field has exactly %s elements.", fe.Param())
		}
		return fmt.Sprintf("Ensure this field has exactly %s characters.", fe.Param())
	case "min":
		if isNumeric(fe) {
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		}
		return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
	case "max":
		if isNumeric(fe) {
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	default:
		return "Invalid value."
	}
}

func isNumeric(fe validator.FieldError) bool {
	switch fe.Kind().String() {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"float32", "float64":
		return true
	}
	return false
}
