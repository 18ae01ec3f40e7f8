package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	govalidator "github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

// TagName matches gin's binding tag so request structs validate the same
// way inside and outside HTTP handlers.
const TagName = "binding"

var bloodPressurePattern = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)

// BloodPressure reports whether s looks like "120/80".
func BloodPressure(s string) bool {
	return bloodPressurePattern.MatchString(s)
}

// FieldError is a single failed rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var messages = map[string]string{
	"required":      "is required",
	"oneof":         "must be one of: %s",
	"max":           "must be at most %s",
	"gt":            "must be greater than %s",
	"gte":           "must be at least %s",
	"bloodpressure": "must look like 120/80",
}

// RegisterCustom installs the domain rules and JSON field naming on v.
func RegisterCustom(v *govalidator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v.RegisterValidation("bloodpressure", func(fl govalidator.FieldLevel) bool {
		return BloodPressure(fl.Field().String())
	})
}

// Validator validates request structs outside of gin binding.
type Validator struct {
	v *govalidator.Validate
}

func New() *Validator {
	v := govalidator.New()
	v.SetTagName(TagName)
	if err := RegisterCustom(v); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

// Validate returns a ValidationError describing every failed field.
func (v *Validator) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}
	fields := FieldErrors(err)
	if len(fields) == 0 {
		return apperrors.Validation(err.Error(), err)
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return apperrors.Validation(strings.Join(parts, "; "), err)
}

// FieldErrors flattens validator errors. Other errors yield nil.
func FieldErrors(err error) []FieldError {
	var verrs govalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := messages[e.Tag()]
		switch {
		case !ok:
			msg = "failed " + e.Tag() + " check"
		case strings.Contains(msg, "%s"):
			msg = fmt.Sprintf(msg, e.Param())
		}
		out = append(out, FieldError{Field: fieldPath(e), Message: msg})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(e govalidator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}
