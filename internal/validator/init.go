package validator

import (
	"reflect"
	"strings"

	"ctchen222/rally-tracker/internal/court"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json field names so errors match the payloads clients send.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := RegisterCourtValidations(validate); err != nil {
		panic(err)
	}
}

// RegisterCourtValidations adds the court_zone and shot_type tags to v.
func RegisterCourtValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("court_zone", func(fl validator.FieldLevel) bool {
		return court.Zone(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("shot_type", func(fl validator.FieldLevel) bool {
		return court.ShotType(fl.Field().String()).Valid()
	})
}

func GetValidator() *validator.Validate {
	return validate
}
