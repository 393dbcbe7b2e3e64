package session

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"novel-client/internal/models"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateAction нормализует действие (обрезает пробелы во вводе)
// и проверяет его против текущего набора вариантов.
func (c *Controller) validateAction(a Action) (Action, error) {
	a.CustomInput = strings.TrimSpace(a.CustomInput)

	if err := c.validate.Struct(a); err != nil {
		return Action{}, toValidationError(err)
	}
	if a.Choice != "" && !slices.Contains(c.choices, a.Choice) {
		return Action{}, &ValidationError{Field: "choice", Reason: fmt.Sprintf("%q is not one of the offered choices", a.Choice)}
	}
	return a, nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required_without":
		return &ValidationError{Reason: "either a choice or custom input is required"}
	case "excluded_with":
		return &ValidationError{Reason: "choice and custom input are mutually exclusive"}
	case "max":
		if field == "customInput" {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", models.MaxCustomInputLength)}
		}
		return &ValidationError{Field: field, Reason: "must be at most " + fe.Param()}
	case "gte", "lte":
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be between 0 and 1, got %v", fe.Value())}
	}
	return &ValidationError{Field: field, Reason: fmt.Sprintf("failed %q check", fe.Tag())}
}
