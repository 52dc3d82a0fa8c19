package router

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/todoapi/internal/models"
)

func newValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Fields of untyped request structs hold whatever JSON type was sent.
	_ = validate.RegisterValidation("string", func(fieldLevel validator.FieldLevel) bool {
		return fieldLevel.Field().Kind() == reflect.String
	})

	return validate
}

// validationErrors reports every violation of request, not only the first.
func validationErrors(validate *validator.Validate, request interface{}) ([]models.ValidationError, error) {
	err := validate.Struct(request)
	if err == nil {
		return nil, nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}

	result := make([]models.ValidationError, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		result = append(result, models.ValidationError{
			Path:    fieldError.Field(),
			Message: validationMessage(fieldError),
		})
	}

	return result, nil
}

func validationMessage(fieldError validator.FieldError) string {
	field := fieldError.Field()

	switch fieldError.Tag() {
	case "required":
		return models.RequiredError(field)
	case "string":
		return field + " must be a string"
	case "min":
		return field + " is not allowed to be empty"
	case "max":
		return fmt.Sprintf("%s length must be less than or equal to %s characters long", field, fieldError.Param())
	default:
		return field + " is invalid"
	}
}

// unknownKeyErrors reports every key of body that is not one of known.
func unknownKeyErrors(body map[string]interface{}, known ...string) []models.ValidationError {
	allowed := make(map[string]bool, len(known))
	for _, key := range known {
		allowed[key] = true
	}

	var unknown []string
	for key := range body {
		if !allowed[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	result := make([]models.ValidationError, 0, len(unknown))
	for _, key := range unknown {
		result = append(result, models.ValidationError{
			Path:    key,
			Message: key + " is not allowed",
		})
	}

	return result
}
