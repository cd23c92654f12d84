package server

import (
	"errors"
	"net/http"
	"testing"

	commissiondomain "github.com/crowdlink/refpay/internal/commission/domain"
	referraldomain "github.com/crowdlink/refpay/internal/referral/domain"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "validation error struct",
			err:        newValidationError("name", "invalid_name", "invalid name"),
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "invalid name sentinel",
			err:        userdomain.ErrInvalidName,
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "self referral",
			err:        referraldomain.ErrSelfReferral,
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "invalid amount",
			err:        commissiondomain.ErrInvalidAmount,
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "already referred",
			err:        referraldomain.ErrAlreadyReferred,
			wantStatus: http.StatusConflict,
			wantType:   "conflict",
		},
		{
			name:       "referral limit",
			err:        referraldomain.ErrReferralLimit,
			wantStatus: http.StatusConflict,
			wantType:   "conflict",
		},
		{
			name:       "user not found",
			err:        userdomain.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "buyer not found",
			err:        commissiondomain.ErrBuyerNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "referrer not found",
			err:        referraldomain.ErrReferrerNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "service unavailable",
			err:        ErrServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "service_unavailable",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantType, payload.Type)
		})
	}
}

func TestMapError_ValidationPayloadCarriesFieldErrors(t *testing.T) {
	status, payload := mapError(newValidationError("amount", "invalid_amount", "amount must be non-negative"))
	assert.Equal(t, http.StatusBadRequest, status)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "amount", payload.Errors[0].Field)
		assert.Equal(t, "invalid_amount", payload.Errors[0].Code)
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(referraldomain.ErrAlreadyReferred)
	assert.Equal(t, "conflict", typ)
	assert.Equal(t, "already_referred", code)

	typ, code = classifyErrorForLog(userdomain.ErrNotFound)
	assert.Equal(t, "not_found", typ)
	assert.Equal(t, "user_not_found", code)

	typ, code = classifyErrorForLog(nil)
	assert.Empty(t, typ)
	assert.Empty(t, code)
}
