package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

type sessionManager struct {
	codec       *auth.Codec
	cookieName  string
	loginPath   string
	landingPath string
	secure      bool
}

func newSessionManager(codec *auth.Codec, conf *core.Config) *sessionManager {
	return &sessionManager{
		codec:       codec,
		cookieName:  conf.Session.CookieName,
		loginPath:   conf.Session.LoginPath,
		landingPath: conf.Session.LandingPath,
		secure:      !conf.Debug,
	}
}

func (sm *sessionManager) principal(ctx echo.Context) *auth.Principal {
	return GetPrincipal(ctx, sm.codec, sm.cookieName)
}

// start mints a session token for usr and sets it as cookie.
func (sm *sessionManager) start(ctx echo.Context, usr user.User) error {
	token, err := sm.codec.Encode(usr.TokenClaims())
	if err != nil {
		return errors.Wrap(err, "encoding session token")
	}
	ttl := sm.codec.TTL()
	ctx.SetCookie(&http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (sm *sessionManager) end(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type sessionApi struct {
	sessions *sessionManager
	svc      *user.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerSessionAPI(g *echo.Group, sessions *sessionManager, svc *user.Service, validate *validator.Validate, logger core.Logger) {
	api := sessionApi{
		sessions: sessions,
		svc:      svc,
		validate: validate,
		logger:   logger,
	}

	// auth pages: only reachable without a session
	// TODO: rate limit `/login` & `/auth/password-reset`
	g.GET(sessions.loginPath, api.loginPage)
	g.POST(sessions.loginPath, api.login)
	g.POST(authPrefix+"password-reset", api.resetPassword)
	g.POST(authPrefix+"password-reset-confirm", api.confirmPasswordReset)

	g.POST("/logout", api.logout)
	g.GET(sessions.landingPath, api.dashboard)
}

// Handlers

func (api *sessionApi) loginPage(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Sign in with your email and password.")
}

func (api *sessionApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	if err = api.sessions.start(ctx, usr); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, api.sessions.landingPath)
}

func (api *sessionApi) logout(ctx echo.Context) error {
	api.sessions.end(ctx)
	return ctx.Redirect(http.StatusFound, api.sessions.loginPath)
}

func (api *sessionApi) dashboard(ctx echo.Context) error {
	p := api.sessions.principal(ctx)
	if p == nil {
		return core.ErrUnauthenticated
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *sessionApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *sessionApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required,email"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" form:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
