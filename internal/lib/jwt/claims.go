package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims описывает данные аккаунта, хранящиеся в JWT.
type CustomClaims struct {
	AccountID int64  `json:"account_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateToken создает JWT токен заданного типа, подписывая его секретным ключом.
func (j *MakerImpl) GenerateToken(accountID int64, tokenType string) (string, error) {
	const op = "jwt.GenerateToken"
	var ttl time.Duration
	switch tokenType {
	case AccessToken:
		ttl = j.accessTTL
	case RefreshToken:
		ttl = j.refreshTTL
	default:
		return "", fmt.Errorf("%s: unknown token type %q", op, tokenType)
	}

	now := time.Now()
	claims := CustomClaims{
		AccountID: accountID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken парсит JWT токен, проверяет его подпись и валидность,
// возвращает CustomClaims с данными, если токен корректен.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.AccountID <= 0 {
		return nil, fmt.Errorf("%s: %w", op, errors.New("token has no account"))
	}
	return claims, nil
}
