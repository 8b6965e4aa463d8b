package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is a package-level validator instance.
// Using a single instance lets the validator cache struct information.
var validatorInstance = validator.New()

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func init() {
	_ = validatorInstance.RegisterValidation("safepath", validateSafePath)
	_ = validatorInstance.RegisterValidation("slug", validateSlug)
	_ = validatorInstance.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
		return Visibility(fl.Field().String()).Valid()
	})
	_ = validatorInstance.RegisterValidation("section", func(fl validator.FieldLevel) bool {
		return Section(fl.Field().String()).Valid()
	})
}

// Validator returns the shared validator so the HTTP layer applies the same
// custom rules as the domain.
func Validator() *validator.Validate {
	return validatorInstance
}

// Validate checks v against its struct tags. Failures are reported as
// ErrInvalidInput with the offending fields listed.
func Validate(v any) error {
	err := validatorInstance.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// validateSafePath ensures the path doesn't contain any directory traversal attempts.
func validateSafePath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if strings.Contains(path, "..") ||
		strings.Contains(path, "~") ||
		strings.HasPrefix(path, "/") ||
		strings.Contains(path, "\\") {
		return false
	}
	return path == filepath.Clean(path)
}

func validateSlug(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) >= 3 && len(s) <= 40 && slugPattern.MatchString(s)
}

// IsValidSlug reports whether s can be used as a profile slug.
func IsValidSlug(s string) bool {
	return len(s) >= 3 && len(s) <= 40 && slugPattern.MatchString(s)
}
