package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeInternal, "store unavailable", cause)

	assert.Contains(t, err.Error(), "store unavailable")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := New(CodeValidationFailed, "amount must be positive")
	assert.Equal(t, "VALIDATION_FAILED: amount must be positive", err.Error())
}

func TestStatusMapsKnownCodes(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeEmailNotVerified, http.StatusForbidden},
		{CodeValidationFailed, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeIdempotencyInFlight, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
		{CodeNoCredentials, http.StatusUnprocessableEntity},
		{CodeChallengeExpired, http.StatusNotFound},
		{CodeCredentialCompromise, http.StatusUnauthorized},
		{CodeInsufficientFunds, http.StatusUnprocessableEntity},
		{CodeLimitExceeded, http.StatusUnprocessableEntity},
		{CodeWalletBlocked, http.StatusForbidden},
		{CodeSameWalletTransfer, http.StatusBadRequest},
		{CodeRecipientNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		err := New(tc.code, "x")
		assert.Equal(t, tc.want, err.Status(), "code %s", tc.code)
	}
}

func TestStatusDefaultsToInternalForUnknownCode(t *testing.T) {
	err := New(Code("SOMETHING_NEW"), "x")
	assert.Equal(t, http.StatusInternalServerError, err.Status())
}

func TestAsExtractsTypedError(t *testing.T) {
	wrapped := Internal("boom", errors.New("inner"))

	e, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeInternal, e.Code)

	_, ok = As(errors.New("plain error"))
	assert.False(t, ok)
}

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeRateLimited, "too many")
	assert.True(t, Is(err, CodeRateLimited))
	assert.False(t, Is(err, CodeForbidden))
	assert.False(t, Is(errors.New("plain"), CodeRateLimited))
}
