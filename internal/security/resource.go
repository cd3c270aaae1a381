package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignResource produces an HMAC over the joined parts; artifacts store it so
// a record can later be checked against the object it references.
func SignResource(secret string, parts ...string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	payload := strings.Join(parts, ":")
	mac.Write([]byte(payload))
	sum := mac.Sum(nil)
	return []byte(base64.RawURLEncoding.EncodeToString(sum))
}

// VerifyResource checks a stored signature against the expected parts.
func VerifyResource(secret string, signature []byte, parts ...string) bool {
	expected := SignResource(secret, parts...)
	return hmac.Equal(signature, expected)
}
