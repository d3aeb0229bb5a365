package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

type GistfeedValidator struct {
	v *validator.Validate
}

func NewValidator() *GistfeedValidator {
	v := validator.New()
	_ = v.RegisterValidation("githubusername", validateGithubUsername)
	return &GistfeedValidator{v}
}

func (cv *GistfeedValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

func (cv *GistfeedValidator) Var(field interface{}, tag string) error {
	return cv.v.Var(field, tag)
}

// GitHub usernames are alphanumeric with inner dashes, at most 39 chars.
func validateGithubUsername(fl validator.FieldLevel) bool {
	return regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`).MatchString(fl.Field().String())
}
