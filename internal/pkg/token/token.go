package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

const (
	otpMin = 1000
	otpMax = 9999
)

// NewOTP returns a uniformly random 4-digit decimal code in [1000, 9999].
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}
