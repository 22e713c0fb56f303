package auth

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// validateClaims rejects tokens whose subject could not be a UserID.
func validateClaims(claims *CustomClaims) error {
	return validate.Struct(claims)
}
