package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"fieldops/internal/auth"
	"fieldops/internal/errors"
	"fieldops/internal/handler"
	"fieldops/internal/model"
)

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator used by every handler.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func unauthorized(e *errors.Error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{Error: e.Message, Code: e.Code})
}

// RequireJWT validates the bearer token and stores its claims under
// handler.ClaimsContextKey.
func RequireJWT(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ClaimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Debug().Err(err).Str("path", c.Path()).Msg("jwt rejected")
			return unauthorized(errors.ErrInvalidToken)
		},
	})
}

// RejectRevoked refuses tokens that were revoked on logout.
func RejectRevoked(tokens auth.TokenStoreInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := handler.CurrentClaims(c)
			if !ok {
				return unauthorized(errors.ErrInvalidToken)
			}
			revoked, err := tokens.IsRevoked(c.Request().Context(), claims.ID)
			if err != nil || revoked {
				return unauthorized(errors.ErrInvalidToken)
			}
			return next(c)
		}
	}
}

// AdminOnly restricts a route group to ADMIN users.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := handler.CurrentClaims(c)
			if !ok {
				return unauthorized(errors.ErrInvalidToken)
			}
			if model.Role(claims.Role) != model.RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
					Error: errors.ErrAdminOnly.Message,
					Code:  errors.ErrAdminOnly.Code,
				})
			}
			return next(c)
		}
	}
}

// LoginRateLimiter throttles login attempts per client IP.
func LoginRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: "could not identify client",
				Code:  "RATE_LIMIT_IDENTIFIER",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			log.Warn().Str("ip", identifier).Msg("login rate limited")
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "too many login attempts, try again later",
				Code:  "RATE_LIMITED",
			})
		},
	})
}

// CORS allows the configured origins. "*" allows any.
func CORS(origins []string) echo.MiddlewareFunc {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowed,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	})
}
