package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
)

// HMACSignatureVerifier is the in-process stand-in for the chain service's
// wallet signature check, used by the dev binary and tests. The expected
// signature is HMAC-SHA256 over walletAddress||message with a shared secret.
type HMACSignatureVerifier struct {
	secret []byte
}

func NewHMACSignatureVerifier(secret string) *HMACSignatureVerifier {
	return &HMACSignatureVerifier{secret: []byte(secret)}
}

var _ SignatureVerifier = (*HMACSignatureVerifier)(nil)

func (v *HMACSignatureVerifier) VerifySignature(walletAddress string, message, signature []byte) error {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(walletAddress))
	mac.Write(message)
	if !hmac.Equal(mac.Sum(nil), signature) {
		return errors.New("wallet signature mismatch")
	}
	return nil
}
