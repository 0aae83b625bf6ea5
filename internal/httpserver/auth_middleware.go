package httpserver

import (
	"context"
	"net/http"
	"strings"

	"roomchat/internal/domain"
	"roomchat/internal/security"
)

type contextKey string

const accountContextKey contextKey = "currentAccount"

// WithAccount returns a new context carrying the current account.
func WithAccount(ctx context.Context, account *domain.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// CurrentAccount extracts the current account from context, if any.
func CurrentAccount(r *http.Request) *domain.Account {
	if v := r.Context().Value(accountContextKey); v != nil {
		if a, ok := v.(*domain.Account); ok {
			return a
		}
	}
	return nil
}

// AuthMiddleware validates the Bearer token and attaches the account to the context.
func AuthMiddleware(tokens *security.TokenService, accounts domain.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			sub, err := tokens.Subject(tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			account, err := accounts.GetByUsername(r.Context(), sub)
			if err != nil || account == nil {
				http.Error(w, "account not found", http.StatusUnauthorized)
				return
			}

			ctx := WithAccount(r.Context(), account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
