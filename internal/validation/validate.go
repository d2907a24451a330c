// Package validation checks inbound payloads before they reach a service.
// It is pure: nothing here talks to the store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/model"
)

// Normalizer is implemented by payloads that clean themselves up (trim
// whitespace, lower-case emails) before validation.
type Normalizer interface {
	Normalize()
}

var (
	once     sync.Once
	instance *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		v.RegisterAlias("id", "uuid")
		mustRegister(v, "service_type", func(s string) bool { return model.ServiceType(s).Valid() })
		mustRegister(v, "briefing_status", func(s string) bool { return model.BriefingStatus(s).Valid() })
		mustRegister(v, "project_status", func(s string) bool { return model.ProjectStatus(s).Valid() })
		mustRegister(v, "role", func(s string) bool { return model.Role(s).Valid() })
		mustRegister(v, "notification_type", func(s string) bool { return model.NotificationType(s).Valid() })
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, ok func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return ok(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// Validate normalises payload (when it implements Normalizer) and checks its
// struct tags.  Failures are returned as *apperrors.ValidationError.
func Validate(payload any) error {
	if n, ok := payload.(Normalizer); ok {
		n.Normalize()
	}
	err := engine().Struct(payload)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	out := &apperrors.ValidationError{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		field := fieldPath(fe)
		if _, seen := out.Fields[field]; !seen {
			out.Fields[field] = message(fe)
		}
	}
	return out
}

// fieldPath drops the root struct name from the namespace, keeping nested
// and indexed segments such as "features[3]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	sized := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map || fe.Kind() == reflect.Array
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if sized {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if sized {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "id", "uuid":
		return "must be a valid identifier"
	case "unique":
		return "must not contain duplicates"
	case "datetime":
		return "must be a date in the format YYYY-MM-DD"
	case "service_type", "briefing_status", "project_status", "role", "notification_type":
		return "is not an accepted value"
	}
	return "is invalid"
}

// ID checks that raw is a well-formed store identifier.  field names the
// offending parameter in the returned *apperrors.ValidationError.
func ID(field, raw string) error {
	if err := engine().Var(raw, "required,id"); err != nil {
		return apperrors.NewValidationError(field, "must be a valid identifier")
	}
	return nil
}
