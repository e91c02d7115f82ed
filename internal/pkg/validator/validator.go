package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Permission scope validation
	validate.RegisterValidation("perm_scope", func(fl validator.FieldLevel) bool {
		scope := fl.Field().String()
		return scope == "site" || scope == "subreddit"
	})

	// Permission type validation
	validate.RegisterValidation("perm_type", func(fl validator.FieldLevel) bool {
		typ := fl.Field().String()
		return typ == "core" || typ == "custom"
	})

	// Permission action validation
	validate.RegisterValidation("perm_action", func(fl validator.FieldLevel) bool {
		action := fl.Field().String()
		validActions := []string{
			"create", "read", "update_own", "update_any",
			"delete_own", "delete_any", "manage_own", "manage_any",
		}
		for _, a := range validActions {
			if action == a {
				return true
			}
		}
		return false
	})

	// Global role validation
	validate.RegisterValidation("global_role", func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		validRoles := []string{"admin", "moderator", "user"}
		for _, r := range validRoles {
			if role == r {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "oneof":
			errors[field] = "Must be one of: " + err.Param()
		case "perm_scope":
			errors[field] = "Invalid scope. Must be: site or subreddit"
		case "perm_type":
			errors[field] = "Invalid type. Must be: core or custom"
		case "perm_action":
			errors[field] = "Invalid action"
		case "global_role":
			errors[field] = "Invalid role. Must be: admin, moderator, or user"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
