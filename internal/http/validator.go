package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// describeValidation renders validator errors as one readable line.
func describeValidation(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	var details strings.Builder
	for _, fe := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		field := fe.Namespace()
		switch fe.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", field))
		case "oneof":
			details.WriteString(fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "min":
			if fe.Kind() == reflect.Slice {
				details.WriteString(fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", field, fe.Param()))
			}
		case "max":
			if fe.Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", field, fe.Param()))
			}
		case "url":
			details.WriteString(fmt.Sprintf("%s must be a valid URL", field))
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return details.String()
}
