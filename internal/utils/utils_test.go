package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBookingCodeFormat(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	code := BookingCode("NF", now)
	assert.Regexp(t, regexp.MustCompile(`^NF20260301[0-9A-F]{6}$`), code)
	assert.NotEqual(t, code, BookingCode("NF", now))
}

func TestLedgerIDs(t *testing.T) {
	now := time.Unix(1767225600, 0)
	assert.Regexp(t, `^TXN1767225600[0-9A-F]{4}$`, TransactionID(now))
	assert.Equal(t, "REFUND_rfnd_1", RefundTransactionID("rfnd_1"))
	assert.Equal(t, "NF_1767225600_42", Receipt("NF", now, 42))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 7, "ADMIN", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, float64(7), claims["sub"])
	assert.Equal(t, "ADMIN", claims["role"])

	_, err = ParseAccessToken("other", tok.Token)
	assert.Error(t, err)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	tok, err := NewAccessToken("secret", 7, "CUSTOMER", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", tok.Token)
	assert.Error(t, err)
}

func TestRefreshTokenHash(t *testing.T) {
	rt, err := NewRefreshToken(24 * time.Hour)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.Len(t, HashRefreshRaw(rt.Raw), 64)
	assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
}

func TestVerifyPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(string(hash), "s3cret"))
	assert.False(t, VerifyPassword(string(hash), "nope"))
	assert.False(t, VerifyPassword(string(hash), ""))
	assert.False(t, VerifyPassword("plain-text", "plain-text"))

	// password_hash() output uses the $2y$ prefix
	php := "$2y$" + strings.TrimPrefix(string(hash), "$2a$")
	assert.True(t, VerifyPassword(php, "s3cret"))
}

func TestValidateStruct(t *testing.T) {
	type req struct {
		Seats  []string `json:"seats" validate:"required,min=1,dive,required"`
		Amount float64  `json:"base_amount" validate:"gt=0"`
	}
	errs := ValidateStruct(req{})
	require.NotNil(t, errs)
	assert.Contains(t, errs, "seats")
	assert.Contains(t, errs, "base_amount")
	assert.Equal(t, "base_amount: Must be greater than 0; seats: This field is required", FormatValidationErrors(errs))

	assert.Nil(t, ValidateStruct(req{Seats: []string{"A1"}, Amount: 1}))
}
