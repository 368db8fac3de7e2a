package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

var (
	errHttpUnauthorized      = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden         = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound          = echo.NewHTTPError(http.StatusNotFound, "not found")
	errAuthenticationFailed  = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errHttpAccountDeactivate = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
)

// domainHTTPError maps the domain sentinels to their HTTP error, or nil.
func domainHTTPError(err error) *echo.HTTPError {
	switch err {
	case core.ErrUnauthenticated:
		return errHttpUnauthorized
	case core.ErrForbidden:
		return errHttpForbidden
	case core.ErrNotFound, user.ErrNotFound:
		return errHttpNotFound
	case user.ErrAuthenticationFailed:
		return errAuthenticationFailed
	case user.ErrAccountDeactivated:
		return errHttpAccountDeactivate
	}
	return nil
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(
	logger core.Logger,
	translator ut.Translator,
	principal func(echo.Context) *auth.Principal,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		origErr := errors.Cause(err)
		if herr := domainHTTPError(origErr); herr != nil {
			origErr = herr
		}

		switch origErr := origErr.(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			logger.Error(msg, errors.Wrap(err, msg), principal(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
