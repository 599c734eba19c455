package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecart/web/api"
)

func TestAPIErrorHandling(t *testing.T) {
	t.Parallel()

	t.Run("it exposes validation details for BadRequest", func(t *testing.T) {
		t.Parallel()

		// Arrange
		validationErr := errors.New("invalid limit parameter: limit must be numeric")

		// Act
		apiErr := api.BadRequest(validationErr)

		// Assert
		assert.Equal(t, http.StatusBadRequest, apiErr.HTTPCode())
		assert.Equal(t, "invalid limit parameter: limit must be numeric", apiErr.Error())
		assert.Equal(t, validationErr, apiErr.Cause())
	})

	t.Run("it exposes the reason for NotFound", func(t *testing.T) {
		t.Parallel()

		// Arrange
		cause := errors.New("reconciliation journal is disabled")

		// Act
		apiErr := api.NotFound(cause)

		// Assert
		assert.Equal(t, http.StatusNotFound, apiErr.HTTPCode())
		assert.Equal(t, "reconciliation journal is disabled", apiErr.Error())
	})

	t.Run("it hides details for InternalServerError", func(t *testing.T) {
		t.Parallel()

		// Arrange
		internalErr := errors.New("journal query failed: password authentication failed for user 'stakecart'")

		// Act
		apiErr := api.InternalServerError(internalErr)

		// Assert
		assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPCode())
		assert.Equal(t, "Internal Server Error", apiErr.Error())
		assert.Equal(t, internalErr, apiErr.Cause())
	})

	t.Run("it classifies unknown errors as InternalServerError", func(t *testing.T) {
		t.Parallel()

		// Arrange
		unknownErr := errors.New("connection reset by peer")

		// Act
		apiErr := api.Wrap(unknownErr)

		// Assert
		require.NotNil(t, apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPCode())
		assert.Equal(t, unknownErr, apiErr.Cause())
	})

	t.Run("it marshals code and message", func(t *testing.T) {
		t.Parallel()

		// Arrange
		apiErr := api.BadRequest(errors.New("invalid limit parameter: limit must be between 1 and 100"))

		// Act
		jsonBytes, err := json.Marshal(apiErr)

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `{"code": 400, "message": "invalid limit parameter: limit must be between 1 and 100"}`, string(jsonBytes))
	})

	t.Run("it does not wrap an API error twice", func(t *testing.T) {
		t.Parallel()

		// Arrange
		apiErr := api.BadRequest(errors.New("bad"))

		// Act
		wrapped := api.Wrap(apiErr)

		// Assert
		assert.Same(t, apiErr, wrapped)
	})

	t.Run("it unwraps to the cause", func(t *testing.T) {
		t.Parallel()

		// Arrange
		cause := errors.New("original error")

		// Act
		apiErr := api.NotFound(cause)

		// Assert
		assert.ErrorIs(t, apiErr, cause)
		assert.Nil(t, api.Wrap(nil))
	})
}
