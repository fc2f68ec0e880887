package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-directory/pkg/errors"
	"github.com/jwalitptl/patient-directory/pkg/validator"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithError writes err using the status of the wrapped AppError,
// including field errors when validation failed.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}

	resp := NewErrorResponse(appErr.Message)
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) {
		resp.Errors = fieldErrs
	}
	c.JSON(appErr.HTTPStatus(), resp)
}
