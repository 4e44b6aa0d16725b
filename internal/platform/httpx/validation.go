package httpx

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// FieldErrors collects validator failures keyed by field name.
type FieldErrors map[string]string

// ValidationErrors converts a validator error into FieldErrors.
func ValidationErrors(err error) FieldErrors {
	out := FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[lowerFirst(fe.Field())] = fe.Tag()
	}
	return out
}

// RespondValidation writes a 400 envelope listing invalid fields.
func RespondValidation(w http.ResponseWriter, err error) {
	fields := ValidationErrors(err)
	message := "Request validation failed"
	if len(fields) == 1 {
		for name, tag := range fields {
			message = name + " failed on " + tag
		}
	}
	Fail(w, http.StatusBadRequest, message, fields)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
