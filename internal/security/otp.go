package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"
)

const otpDigits = 6

var otpLimit = big.NewInt(1_000_000)

// GenerateOTP returns a zero padded six digit code and the hash to store.
func GenerateOTP() (string, []byte, error) {
	n, err := rand.Int(rand.Reader, otpLimit)
	if err != nil {
		return "", nil, fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%0*d", otpDigits, n.Int64())
	return code, HashOTP(code), nil
}

func HashOTP(code string) []byte {
	sum := sha256.Sum256([]byte(code))
	return sum[:]
}

// MatchOTP compares code against a stored hash in constant time.
func MatchOTP(code string, hash []byte) bool {
	return subtle.ConstantTimeCompare(HashOTP(code), hash) == 1
}
