package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of account roles carried in the handshake token.
type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RoleResearcher Role = "researcher"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleResearcher:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role '%s'", s)
	}
}

// Identity is the authenticated principal extracted from a valid token.
type Identity struct {
	UserID        string
	Role          Role
	WalletAddress string
}

var (
	// ErrNoToken is returned when the handshake carries no token at all.
	// Its text is part of the client contract and must not change.
	ErrNoToken      = errors.New("No authentication token provided")
	ErrInvalidToken = errors.New("authentication failed: invalid token")
	ErrExpiredToken = errors.New("authentication failed: token expired")
)

// TokenVerifier checks a handshake token and extracts the caller's identity.
type TokenVerifier interface {
	VerifyToken(token string) (*Identity, error)
}

// SignatureVerifier checks a wallet signature over an arbitrary message.
// The real implementation lives in the chain service; this layer only
// calls through it when wallet binding is enabled.
type SignatureVerifier interface {
	VerifySignature(walletAddress string, message, signature []byte) error
}

// AppClaims is the custom JWT claims structure issued by the HelixChain API.
type AppClaims struct {
	Role          string `json:"role"`
	WalletAddress string `json:"walletAddress,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HMAC-signed tokens issued with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

var _ TokenVerifier = (*JWTVerifier)(nil)

func (v *JWTVerifier) VerifyToken(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing 'sub' claim", ErrInvalidToken)
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &Identity{
		UserID:        claims.Subject,
		Role:          role,
		WalletAddress: claims.WalletAddress,
	}, nil
}
