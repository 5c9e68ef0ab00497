package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/pquerna/otp"
)

// otpSpace is the number of distinct six-digit codes
var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a code drawn uniformly from 000000-999999.
func GenerateOTP() (int, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return 0, fmt.Errorf("failed to generate otp: %w", err)
	}
	return int(n.Int64()), nil
}

// FormatOTP renders a code zero padded to six digits.
func FormatOTP(code int) string {
	return otp.DigitsSix.Format(int32(code))
}

// ParseOTP accepts exactly six decimal digits.
func ParseOTP(s string) (int, bool) {
	if len(s) != otp.DigitsSix.Length() {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return code, true
}
