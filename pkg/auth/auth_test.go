package auth_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixchain/realtime/pkg/auth"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims auth.AppClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() auth.AppClaims {
	return auth.AppClaims{
		Role:          "patient",
		WalletAddress: "0xabc",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "p1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifyTokenValid(t *testing.T) {
	v := auth.NewJWTVerifier(testSecret)

	identity, err := v.VerifyToken(signToken(t, validClaims(), testSecret))
	require.NoError(t, err)
	assert.Equal(t, "p1", identity.UserID)
	assert.Equal(t, auth.RolePatient, identity.Role)
	assert.Equal(t, "0xabc", identity.WalletAddress)
}

func TestVerifyTokenMissing(t *testing.T) {
	v := auth.NewJWTVerifier(testSecret)

	_, err := v.VerifyToken("")
	require.ErrorIs(t, err, auth.ErrNoToken)
	// The reason text is part of the client contract.
	assert.Equal(t, "No authentication token provided", err.Error())
}

func TestVerifyTokenExpired(t *testing.T) {
	v := auth.NewJWTVerifier(testSecret)
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	_, err := v.VerifyToken(signToken(t, claims, testSecret))
	require.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	v := auth.NewJWTVerifier(testSecret)

	_, err := v.VerifyToken(signToken(t, validClaims(), "other-secret"))
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyTokenMalformed(t *testing.T) {
	v := auth.NewJWTVerifier(testSecret)

	_, err := v.VerifyToken("not-a-jwt")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyTokenMissingSubject(t *testing.T) {
	v := auth.NewJWTVerifier(testSecret)
	claims := validClaims()
	claims.Subject = ""

	_, err := v.VerifyToken(signToken(t, claims, testSecret))
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyTokenUnknownRole(t *testing.T) {
	v := auth.NewJWTVerifier(testSecret)
	claims := validClaims()
	claims.Role = "admin"

	_, err := v.VerifyToken(signToken(t, claims, testSecret))
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"patient", "doctor", "researcher"} {
		role, err := auth.ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, auth.Role(valid), role)
	}
	_, err := auth.ParseRole("admin")
	assert.Error(t, err)
}

func signWallet(secret, wallet string, message []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(wallet))
	mac.Write(message)
	return mac.Sum(nil)
}

func TestHMACSignatureVerifier(t *testing.T) {
	v := auth.NewHMACSignatureVerifier(testSecret)
	message := []byte("token-string")

	sig := signWallet(testSecret, "0xabc", message)
	assert.NoError(t, v.VerifySignature("0xabc", message, sig))
	assert.Error(t, v.VerifySignature("0xdef", message, sig))
	assert.Error(t, v.VerifySignature("0xabc", []byte("tampered"), sig))
}
