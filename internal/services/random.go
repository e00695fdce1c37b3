package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

var otpSpace = big.NewInt(900000)

// generateOTP returns a six digit code in [100000, 999999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// generateResetToken returns 32 random bytes, hex encoded.
func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
