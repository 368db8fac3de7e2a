package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/academia/core/auth"
)

const (
	principalKey = "principal"
	authPrefix   = "/auth/"
)

// GateConfig defines the config for the Gate middleware.
type GateConfig struct {
	// Skipper defines a function to skip the Gate.
	Skipper middleware.Skipper

	Codec      *auth.Codec
	CookieName string
	// LoginPath is where unauthenticated requests are sent.
	LoginPath string
	// LandingPath is where authenticated requests to an auth page are sent.
	LandingPath string
}

// Gate decides, for each request, between continuing and redirecting.
//
//	authenticated,   auth page -> redirect to LandingPath
//	authenticated,   other     -> continue
//	unauthenticated, auth page -> continue
//	unauthenticated, other     -> redirect to LoginPath
//
// The decoded Principal is stored on the context for GetPrincipal. Roles are not checked here.
func Gate(config GateConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if config.Skipper(ctx) {
				return next(ctx)
			}

			p := decodeCookie(ctx, config.Codec, config.CookieName)
			onAuthPage := isAuthPage(ctx.Request().URL.Path, config.LoginPath)

			switch {
			case p != nil && onAuthPage:
				return ctx.Redirect(http.StatusFound, config.LandingPath)
			case p == nil && !onAuthPage:
				return ctx.Redirect(http.StatusFound, config.LoginPath)
			}

			if p != nil {
				ctx.Set(principalKey, p)
			}
			return next(ctx)
		}
	}
}

// GetPrincipal returns the Principal of the request, or nil.
// It decodes the session cookie itself when the Gate did not run.
func GetPrincipal(ctx echo.Context, codec *auth.Codec, cookieName string) *auth.Principal {
	if p, ok := ctx.Get(principalKey).(*auth.Principal); ok {
		return p
	}
	return decodeCookie(ctx, codec, cookieName)
}

func decodeCookie(ctx echo.Context, codec *auth.Codec, cookieName string) *auth.Principal {
	cookie, err := ctx.Cookie(cookieName)
	if err != nil {
		return nil
	}
	return codec.DecodePrincipal(cookie.Value)
}

func isAuthPage(path, loginPath string) bool {
	// RemoveTrailingSlash turns `/auth/` into `/auth`
	return path == loginPath || path == strings.TrimSuffix(authPrefix, "/") || strings.HasPrefix(path, authPrefix)
}

func gateSkipper(ctx echo.Context) bool {
	switch ctx.Request().URL.Path {
	case "/health", "/favicon.ico":
		return true
	}
	return false
}
