package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		common.ErrValidation:                         http.StatusBadRequest,
		fmt.Errorf("%w: bad", common.ErrValidation):  http.StatusBadRequest,
		common.ErrInvalidToken:                       http.StatusBadRequest,
		common.ErrorUnauthorized:                     http.StatusUnauthorized,
		common.ErrTokenExpired:                       http.StatusUnauthorized,
		common.ErrTokenUsed:                          http.StatusUnauthorized,
		common.ErrRefreshTokenExpired:                http.StatusUnauthorized,
		common.ErrorNotFound:                         http.StatusNotFound,
		common.ErrConflict:                           http.StatusConflict,
		common.ErrVersionConflict:                    http.StatusConflict,
		common.ErrAlreadySigned:                      http.StatusConflict,
		common.ErrDocumentLocked:                     http.StatusConflict,
		common.ErrInvalidTransition:                  http.StatusConflict,
		fmt.Errorf("wrap: %w", common.ErrorInternal): http.StatusInternalServerError,
		errors.New("connection refused"):             http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, nopLogger{}, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(context.Background(), rec, nopLogger{}, fmt.Errorf("%w: signerName is required", common.ErrValidation))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation error: signerName is required"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
