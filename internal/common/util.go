package common

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// MakeActivationCode returns ActivationCodeLength distinct decimal digits in
// random order, e.g. "072954". Digits never repeat within one code.
func MakeActivationCode() (string, error) {
	digits := []byte("0123456789")

	// partial Fisher–Yates: only the first ActivationCodeLength positions matter
	for i := 0; i < ActivationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits)-i)))
		if err != nil {
			return "", err
		}
		j := i + int(n.Int64())
		digits[i], digits[j] = digits[j], digits[i]
	}

	return string(digits[:ActivationCodeLength]), nil
}

// BearerToken extracts the token from an Authorization header value.
// It returns an empty string when the scheme is not Bearer or the token is empty.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
