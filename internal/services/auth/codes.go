package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const resetAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ResetTokenLength длина токена сброса пароля.
const ResetTokenLength = 32

// VerificationCode возвращает случайный шестизначный код.
func VerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("auth.VerificationCode: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResetToken возвращает случайный токен из латинских букв и цифр.
func ResetToken() (string, error) {
	limit := big.NewInt(int64(len(resetAlphabet)))
	buf := make([]byte, ResetTokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("auth.ResetToken: %w", err)
		}
		buf[i] = resetAlphabet[n.Int64()]
	}
	return string(buf), nil
}
