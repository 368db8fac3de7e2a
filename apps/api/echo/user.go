package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

type userApi struct {
	svc       *user.Service
	validate  *validator.Validate
	principal func(echo.Context) *auth.Principal
}

func registerUserAPI(
	g *echo.Group,
	principal func(echo.Context) *auth.Principal,
	svc *user.Service,
	validate *validator.Validate,
) {
	api := userApi{
		svc:       svc,
		validate:  validate,
		principal: principal,
	}

	g.GET("", api.query)
	g.POST("", api.create)
	g.DELETE("/:id", api.destroy)
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), api.principal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter, err := bindUserFilter(ctx)
	if err != nil {
		return err
	}
	users, err := api.svc.Query(ctx.Request().Context(), api.principal(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), api.principal(ctx), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// bindUserFilter reads `search`, `role` (repeatable, legacy spellings accepted) and `is_active`.
func bindUserFilter(ctx echo.Context) (user.QueryFilter, error) {
	params := ctx.QueryParams()
	filter := user.QueryFilter{Search: params.Get("search")}

	for _, raw := range params["role"] {
		role, ok := auth.MapRole(raw)
		if !ok {
			return filter, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
		}
		filter.Roles = append(filter.Roles, role)
	}
	if val := params.Get("is_active"); val != "" {
		active, err := strconv.ParseBool(val)
		if err != nil {
			return filter, core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "must be a boolean"})
		}
		filter.IsActive = &active
	}
	return filter, nil
}
