package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/cortex/internal/http/response"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// AccountGetter определяет интерфейс для получения аккаунта.
type AccountGetter interface {
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)
}

// ActiveAccountMiddleware пропускает запрос, только если аккаунт из токена существует и не отключён.
func ActiveAccountMiddleware(log *slog.Logger, accounts AccountGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := AccountIDFromContext(r.Context())
			if !ok {
				log.Error("account identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("account identification missing"))
				return
			}

			account, err := accounts.GetAccount(r.Context(), accountID)
			switch {
			case errors.Is(err, models.ErrAccountNotFound):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("account not found"))
				return
			case err != nil:
				log.Error("failed to get account", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			case !account.IsActive:
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("account is inactive"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
