package middleware

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/helixchain/realtime/pkg/auth"
)

// NewAuthMiddleware verifies the handshake token before the websocket upgrade
// is allowed. Rejection reasons are part of the client contract: a missing
// token is answered with the exact reason text of auth.ErrNoToken, and
// malformed or expired tokens with a reason naming the authentication
// failure, never a generic error.
//
// When sigVerifier is non-nil, the X-Wallet-Signature header must carry a
// valid signature of the token by the wallet named in the claims.
func NewAuthMiddleware(logger *slog.Logger, verifier auth.TokenVerifier, sigVerifier auth.SignatureVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// couldn't extract metadata from request so something went wrong
			// with previous middlewares
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			tokenString := extractToken(r)
			if tokenString == "" {
				logger.Warn("Connection without token refused", slog.String("ip", reqMeta.IP))
				http.Error(w, auth.ErrNoToken.Error(), http.StatusUnauthorized)
				return
			}

			identity, err := verifier.VerifyToken(tokenString)
			if err != nil {
				logger.Warn("Token verification failed",
					slog.String("ip", reqMeta.IP),
					slog.Any("error", err),
				)
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if sigVerifier != nil {
				if err := verifyWalletBinding(r, identity, tokenString, sigVerifier); err != nil {
					logger.Warn("Wallet signature check failed",
						slog.String("ip", reqMeta.IP),
						slog.String("userID", identity.UserID),
						slog.Any("error", err),
					)
					http.Error(w, "authentication failed: "+err.Error(), http.StatusUnauthorized)
					return
				}
			}

			reqMeta.Identity = identity
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken accepts the token from the `token` query parameter (browser
// websocket clients cannot set headers) or an Authorization bearer header.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

func verifyWalletBinding(r *http.Request, identity *auth.Identity, tokenString string, sigVerifier auth.SignatureVerifier) error {
	if identity.WalletAddress == "" {
		return errors.New("token has no wallet address")
	}
	encoded := r.Header.Get("X-Wallet-Signature")
	if encoded == "" {
		return errors.New("missing wallet signature")
	}
	sig, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.New("malformed wallet signature")
	}
	return sigVerifier.VerifySignature(identity.WalletAddress, []byte(tokenString), sig)
}
