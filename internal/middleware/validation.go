package middleware

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	govalidator "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/cupping-console/pkg/validator"
)

var (
	validationOnce sync.Once
	validationErr  error
)

// SetupValidation installs the domain rules on gin's binding validator so
// ShouldBind* enforces the same tags as the services. Safe to call repeatedly.
func SetupValidation() error {
	validationOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			validationErr = fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
			return
		}
		validationErr = validator.RegisterCustom(v)
	})
	return validationErr
}
