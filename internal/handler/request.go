package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/validator"
)

// ParamID parses the uuid path parameter name.
func ParamID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid "+name, err)
	}
	return id, nil
}

// GenderHint reads the optional ?gender= used to pick a partition without probing.
func GenderHint(c *gin.Context) model.Gender {
	return model.Gender(strings.ToLower(c.Query("gender")))
}

// BindJSON decodes and validates the body into obj.
func BindJSON(c *gin.Context, obj interface{}) error {
	return bindError(c.ShouldBindJSON(obj))
}

// BindQuery decodes and validates the query string into obj.
func BindQuery(c *gin.Context, obj interface{}) error {
	return bindError(c.ShouldBindQuery(obj))
}

func bindError(err error) error {
	if err == nil {
		return nil
	}
	var verrs govalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation("malformed request: "+err.Error(), err)
	}
	fields := validator.FieldErrors(err)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return apperrors.Validation(strings.Join(parts, "; "), err)
}
