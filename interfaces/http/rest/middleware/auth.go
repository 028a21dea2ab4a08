package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/pkg/auth"
	"github.com/zhaizeyu/smart-mind/pkg/common"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
)

// Authenticate rejects requests without a valid bearer token and stores the
// token subject in the request context.
func Authenticate(validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing authentication token").WithCode("TOKEN_MISSING"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", common.ClientIP(r)),
					zap.String("path", r.URL.Path),
				)
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Token has expired").WithCode("TOKEN_EXPIRED"))
				case errors.Is(err, auth.ErrInvalidSignature):
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid token signature").WithCode("TOKEN_INVALID"))
				default:
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid token").WithCode("TOKEN_INVALID"))
				}
				return
			}

			logger.Debug("Request authenticated",
				zap.String("user_id", claims.UserID),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)
			next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), claims.UserID)))
		})
	}
}

// RateLimit answers 429 once a caller exceeds limiter. Callers are the
// authenticated user when known, the client IP otherwise.
func RateLimit(limiter auth.RateLimiter, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + common.ClientIP(r)
			if userID, ok := common.GetUserID(r.Context()); ok {
				key = "user:" + userID
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("Rate limiter error", zap.String("key", key), zap.Error(err))
			}
			if !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the bearer token from the Authorization header or the
// auth_token cookie.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}
