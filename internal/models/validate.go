package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
)

// ValidationError reports a bad request field. Field uses the JSON name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid trip request: " + e.Message
	}
	return fmt.Sprintf("invalid trip request: %s %s", e.Field, e.Message)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(DateLayout, fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("groupcategory", func(fl validator.FieldLevel) bool {
			_, ok := ParseGroupCategory(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// Validate checks field presence, shape, the budget ceiling and that the
// trip ends after it starts.
func Validate(req TripRequest) error {
	if err := requestValidator().Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return &ValidationError{Message: err.Error()}
		}
		return fieldError(fieldErrs[0])
	}
	if req.Budget > budget.MaxBudget {
		return &ValidationError{Field: "budget", Message: "must not exceed " + budget.MaxBudget.String()}
	}
	start, end, err := req.Dates()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return &ValidationError{Field: "end_date", Message: "must be after start_date"}
	}
	return nil
}

func fieldError(e validator.FieldError) *ValidationError {
	msg := ""
	switch e.Tag() {
	case "required":
		msg = "is required"
	case "gt":
		msg = "must be greater than " + e.Param()
	case "isodate":
		msg = "must be a YYYY-MM-DD date"
	case "groupcategory":
		labels := make([]string, len(groupCategories))
		for i, gc := range groupCategories {
			labels[i] = string(gc)
		}
		msg = fmt.Sprintf("must be one of [%s]", strings.Join(labels, ", "))
	case "len", "alpha":
		msg = "must be a 3-letter currency code"
	default:
		msg = fmt.Sprintf("failed %s validation", e.Tag())
	}
	return &ValidationError{Field: e.Field(), Message: msg}
}
