package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/cortex/internal/models"
)

const accountColumns = `id, email, username, password_hash, token_balance, is_active,
			      email_verified, verification_code, verification_code_expires,
			      reset_token, reset_token_expires, avatar_url, created_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	var (
		a                    models.Account
		username, code       sql.NullString
		resetToken, avatar   sql.NullString
		codeExpires, resetEx sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Email, &username, &a.PasswordHash, &a.TokenBalance, &a.IsActive,
		&a.EmailVerified, &code, &codeExpires, &resetToken, &resetEx, &avatar, &a.CreatedAt); err != nil {
		return nil, err
	}
	if username.Valid {
		a.Username = &username.String
	}
	if code.Valid {
		a.VerificationCode = &code.String
	}
	if codeExpires.Valid {
		a.VerificationCodeExpires = &codeExpires.Time
	}
	if resetToken.Valid {
		a.ResetToken = &resetToken.String
	}
	if resetEx.Valid {
		a.ResetTokenExpires = &resetEx.Time
	}
	if avatar.Valid {
		a.AvatarURL = &avatar.String
	}
	return &a, nil
}

// CreateAccount сохраняет новый аккаунт с кодом подтверждения почты и возвращает его ID.
func (s *Storage) CreateAccount(ctx context.Context, account models.Account) (int64, error) {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO accounts (email, username, password_hash, token_balance,
			      verification_code, verification_code_expires)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		account.Email, account.Username, account.PasswordHash, account.TokenBalance,
		account.VerificationCode, account.VerificationCodeExpires).Scan(&newID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrEmailTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetAccountByEmail возвращает аккаунт по email.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccount(s.conn(ctx).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// GetAccount возвращает аккаунт по ID.
func (s *Storage) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	const op = "storage.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(s.conn(ctx).QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// LockAccount блокирует строку аккаунта до конца текущей транзакции.
// Вызывается только внутри WithinTx.
func (s *Storage) LockAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	const op = "storage.LockAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	a, err := scanAccount(s.conn(ctx).QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// VerifyEmail подтверждает почту по действующему коду. Возвращает false,
// если код не найден или истёк.
func (s *Storage) VerifyEmail(ctx context.Context, code string, now time.Time) (bool, error) {
	const op = "storage.VerifyEmail"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET email_verified = TRUE,
			      verification_code = NULL,
			      verification_code_expires = NULL
			  WHERE verification_code = $1 AND verification_code_expires > $2`
	res, err := s.conn(ctx).ExecContext(ctx, query, code, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// SetResetToken сохраняет токен сброса пароля.
func (s *Storage) SetResetToken(ctx context.Context, accountID int64, token string, expires time.Time) error {
	const op = "storage.SetResetToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET reset_token = $1, reset_token_expires = $2 WHERE id = $3`
	if _, err := s.conn(ctx).ExecContext(ctx, query, token, expires, accountID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetPassword меняет хэш пароля по действующему токену сброса и гасит токен.
func (s *Storage) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	const op = "storage.ResetPassword"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET password_hash = $1,
			      reset_token = NULL,
			      reset_token_expires = NULL
			  WHERE reset_token = $2 AND reset_token_expires > $3`
	res, err := s.conn(ctx).ExecContext(ctx, query, passwordHash, token, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// UpdateUsername меняет имя пользователя.
func (s *Storage) UpdateUsername(ctx context.Context, accountID int64, username string) error {
	return s.updateAccountField(ctx, "storage.UpdateUsername",
		`UPDATE accounts SET username = $1 WHERE id = $2`, username, accountID)
}

// UpdatePasswordHash меняет хэш пароля.
func (s *Storage) UpdatePasswordHash(ctx context.Context, accountID int64, passwordHash string) error {
	return s.updateAccountField(ctx, "storage.UpdatePasswordHash",
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`, passwordHash, accountID)
}

// UpdateAvatarURL сохраняет ссылку на аватар.
func (s *Storage) UpdateAvatarURL(ctx context.Context, accountID int64, avatarURL string) error {
	return s.updateAccountField(ctx, "storage.UpdateAvatarURL",
		`UPDATE accounts SET avatar_url = $1 WHERE id = $2`, avatarURL, accountID)
}

// DeactivateAccount помечает аккаунт неактивным. Строки аккаунтов не удаляются.
func (s *Storage) DeactivateAccount(ctx context.Context, accountID int64) error {
	return s.updateAccountField(ctx, "storage.DeactivateAccount",
		`UPDATE accounts SET is_active = $1 WHERE id = $2`, false, accountID)
}

func (s *Storage) updateAccountField(ctx context.Context, op, query string, value any, accountID int64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, query, value, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	return nil
}

// FindLowBalanceAccounts находит активных подписчиков, у которых баланс опустился ниже порога.
func (s *Storage) FindLowBalanceAccounts(ctx context.Context, threshold int64, limit int) ([]models.LowBalanceAccount, error) {
	const op = "storage.FindLowBalanceAccounts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT a.id, a.email, a.username, a.token_balance
			  FROM accounts a
			  WHERE a.is_active AND a.token_balance < $1
			    AND EXISTS (
			        SELECT 1 FROM subscriptions s
			        WHERE s.account_id = a.id AND s.status = 'active' AND s.end_date > NOW()
			    )
			  ORDER BY a.id
			  LIMIT $2`
	rows, err := s.conn(ctx).QueryContext(ctx, query, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.LowBalanceAccount
	for rows.Next() {
		var a models.LowBalanceAccount
		var username sql.NullString
		if err = rows.Scan(&a.ID, &a.Email, &username, &a.TokenBalance); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if username.Valid {
			a.Username = &username.String
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
