package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeBadRequest:         http.StatusBadRequest,
		CodeValidationFailed:   http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeInvalidCredentials: http.StatusUnauthorized,
		CodeNotFound:           http.StatusNotFound,
		CodeRecipeNotFound:     http.StatusNotFound,
		CodeProductNotFound:    http.StatusNotFound,
		CodeIngredientNotFound: http.StatusNotFound,
		CodeProductInUse:       http.StatusConflict,
		CodeSlugConflict:       http.StatusConflict,
		CodeBarcodeTaken:       http.StatusConflict,
		CodeTooManyRequests:    http.StatusTooManyRequests,
		CodeDatabaseError:      http.StatusInternalServerError,
		CodeInternal:           http.StatusInternalServerError,
	}

	for code, want := range cases {
		err := NewAppError(code, "msg", "")
		assert.Equal(t, want, err.StatusCode(), string(code))
	}
}

func TestUnknownCodeIsInternal(t *testing.T) {
	err := NewAppError(ErrorCode("UPSTREAM_TIMEOUT"), "msg", "")

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode())
	assert.True(t, err.Internal())
}

func TestDomainErrorsCarryMetadata(t *testing.T) {
	cases := map[string]*AppError{
		"recipe":        NewRecipeNotFoundError("pancakes"),
		"product_id":    NewProductNotFoundError("7"),
		"ingredient_id": NewIngredientNotFoundError("c0ffee"),
		"id":            NewProductInUseError("product", "7"),
		"slug":          NewSlugConflictError("pancakes"),
		"barcode":       NewBarcodeTakenError("3017620422003"),
	}

	for key, err := range cases {
		assert.Contains(t, err.Metadata, key, string(err.Code))
	}
}

func TestWrapKeepsAppErrorThroughWrapping(t *testing.T) {
	inner := NewProductInUseError("product", "7")
	wrapped := fmt.Errorf("delete: %w", inner)

	got := Wrap(wrapped, "ignored")

	require.NotNil(t, got)
	assert.Equal(t, CodeProductInUse, got.Code)
	assert.True(t, Is(wrapped, CodeProductInUse))
	assert.Equal(t, CodeProductInUse, GetCode(wrapped))
}

func TestWrapPlainError(t *testing.T) {
	cause := stderrors.New("boom")

	got := Wrap(cause, "failed")

	assert.Equal(t, CodeInternal, got.Code)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, Wrap(nil, "x"))
}

func TestToErrorResponseHidesInternalDetails(t *testing.T) {
	dbErr := NewDatabaseError("search recipes", stderrors.New("syntax error near SELECT"))
	notFound := NewRecipeNotFoundError("pancakes")

	internal := ToErrorResponse(dbErr, "req-1")
	public := ToErrorResponse(notFound, "req-2")

	assert.Equal(t, CodeDatabaseError, internal.Error.Code)
	assert.Empty(t, internal.Error.Details)
	assert.Nil(t, internal.Error.Metadata)
	assert.Equal(t, "req-1", internal.Error.RequestID)

	assert.Contains(t, public.Error.Details, "pancakes")
	assert.Equal(t, "pancakes", public.Error.Metadata["recipe"])
}

func TestValidationErrorsMessage(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "limit", Tag: "max", Message: "limit must be at most 200"},
		{Field: "sortBy", Tag: "oneof", Message: "sortBy is not a known sort key"},
	})

	assert.Equal(t, CodeValidationFailed, err.Code)
	assert.Equal(t, "limit must be at most 200; sortBy is not a known sort key", err.Details)
}
