package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	displayNamePattern = regexp.MustCompile(`^[A-Z][ a-zA-Z]*$`)
	usernamePattern    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)
)

// New returns a validator with the coordinate and account tags registered.
func New() *validator.Validate {
	validate := validator.New()
	RegisterCustomValidations(validate)
	return validate
}

func RegisterCustomValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation("lat", validateLat)
	_ = validate.RegisterValidation("lng", validateLng)
	_ = validate.RegisterValidation("display_name", validateDisplayName)
	_ = validate.RegisterValidation("username", validateUsername)
}

func validateLat(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90.0 && lat <= 90.0
}

func validateLng(fl validator.FieldLevel) bool {
	lng := fl.Field().Float()
	return lng >= -180.0 && lng <= 180.0
}

func validateDisplayName(fl validator.FieldLevel) bool {
	return displayNamePattern.MatchString(fl.Field().String())
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}
