package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("patient", nil).HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, BadRequest("bad", nil).HTTPStatus())
	assert.Equal(t, http.StatusConflict, Conflict("dup").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal(errors.New("x")).HTTPStatus())
}

func TestAppError_Error(t *testing.T) {
	cause := errors.New("id 7")

	err := NotFound("patient", cause)

	assert.Equal(t, "patient not found: id 7", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Patient with this name already exists", Conflict("Patient with this name already exists").Error())
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Conflict("dup"))

	appErr, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrConflict, appErr.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestHTTPStatusError(t *testing.T) {
	err := &HTTPStatusError{StatusCode: 503}

	assert.Equal(t, "HTTP error! status: 503", err.Error())
}
