package models

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок. Обработчики сопоставляют их с HTTP-статусами через errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

// Конкретные ошибки домена, каждая оборачивает один из базовых видов.
var (
	ErrAccountNotFound      = fmt.Errorf("account %w", ErrNotFound)
	ErrPlanNotFound         = fmt.Errorf("plan %w", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("active subscription %w", ErrNotFound)
	ErrGenerationNotFound   = fmt.Errorf("generation request %w", ErrNotFound)
	ErrImageNotFound        = fmt.Errorf("image %w", ErrNotFound)

	ErrActiveSubscriptionExists = fmt.Errorf("%w: account already has an active subscription", ErrConflict)
	ErrEmailTaken               = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidTransition        = fmt.Errorf("%w: invalid generation status transition", ErrConflict)

	ErrInvalidStyle        = fmt.Errorf("%w: invalid style", ErrInvalidInput)
	ErrInvalidRequestType  = fmt.Errorf("%w: invalid request type", ErrInvalidInput)
	ErrInvalidPrompt       = fmt.Errorf("%w: prompt must be between 3 and 500 characters", ErrInvalidInput)
	ErrInvalidAmount       = fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	ErrWeakPassword        = fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	ErrInvalidUsername     = fmt.Errorf("%w: username must be between 2 and 100 characters", ErrInvalidInput)
	ErrInvalidCode         = fmt.Errorf("%w: invalid or expired verification code", ErrInvalidInput)
	ErrInvalidResetToken   = fmt.Errorf("%w: invalid or expired reset token", ErrInvalidInput)
	ErrIncorrectPassword   = fmt.Errorf("%w: incorrect password", ErrInvalidInput)
	ErrUnsupportedFileType = fmt.Errorf("%w: file must be an image", ErrInvalidInput)
	ErrFileTooLarge        = fmt.Errorf("%w: file is too large", ErrInvalidInput)

	ErrInvalidCredentials = fmt.Errorf("%w: incorrect email or password", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrAccountInactive    = fmt.Errorf("%w: account is inactive", ErrForbidden)
)
