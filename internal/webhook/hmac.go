package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	signaturePrefix = "sha256="

	// missingSignature stands in for an absent header. It can never equal
	// a computed signature, so absence is rejected by the same comparison.
	missingSignature = "missing"
)

// ComputeSignature returns the X-Hub-Signature-256 value for body:
// "sha256=" followed by the lowercase hex HMAC-SHA256 keyed by secret.
func ComputeSignature(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether provided is the signature of body under
// secret. The comparison is constant-time over the signature string.
func VerifySignature(secret, body []byte, provided string) bool {
	expected := ComputeSignature(secret, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// signatureFromHeader returns the first X-Hub-Signature-256 value, or
// missingSignature when the header is absent.
func signatureFromHeader(h http.Header) string {
	if values := h.Values(HeaderSignature256); len(values) > 0 {
		return values[0]
	}
	return missingSignature
}
