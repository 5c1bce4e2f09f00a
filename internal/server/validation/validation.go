// Package validation turns gin binding failures into field-level
// validation errors.
package validation

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
	"github.com/go-playground/validator/v10"
)

type FieldErrors map[string]string

// FromBindError converts err from ShouldBindJSON into a Validation error.
// dst is the struct pointer that was bound; its json tags name the fields.
func FromBindError(err error, dst any) *apperr.Error {
	fields := FieldErrors{}

	var ve validator.ValidationErrors
	var te *json.UnmarshalTypeError
	switch {
	case errors.As(err, &ve):
		for _, fe := range ve {
			fields[fieldKey(dst, fe.StructField())] = messageForTag(fe.Tag(), fe.Param())
		}
	case errors.As(err, &te) && te.Field != "":
		fields[te.Field] = "must be of type " + te.Type.String()
	case errors.Is(err, io.EOF):
		fields["_"] = "request body is required"
	default:
		fields["_"] = "malformed request body"
	}

	return apperr.Invalid("invalid request", fields)
}

func fieldKey(dst any, structField string) string {
	fallback := strings.ToLower(structField[:1]) + structField[1:]

	t := reflect.TypeOf(dst)
	if t == nil {
		return fallback
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fallback
	}

	f, ok := t.FieldByName(structField)
	if !ok {
		return fallback
	}
	tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if tag == "" || tag == "-" {
		return fallback
	}
	return tag
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	default:
		return "invalid value"
	}
}
