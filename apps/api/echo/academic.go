package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/auth"
)

// resourceApi serves the CRUD endpoints of one academic resource.
// Role and college checks happen in the service, from the request Principal only.
type resourceApi[T academic.Model[T]] struct {
	svc       *academic.Service[T]
	principal func(echo.Context) *auth.Principal
}

func registerResource[T academic.Model[T]](
	g *echo.Group,
	path string,
	svc *academic.Service[T],
	principal func(echo.Context) *auth.Principal,
) {
	api := resourceApi[T]{svc: svc, principal: principal}

	rg := g.Group(path)
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
}

func (api resourceApi[T]) query(ctx echo.Context) error {
	var zero T
	filters := make(Filters)
	if err := filters.Bind(ctx, zero.Filters()); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	recs, err := api.svc.Query(ctx.Request().Context(), api.principal(ctx), academic.Query{
		Filters:  filters,
		Ordering: ordering.Orderings,
	})
	if err != nil {
		return errors.Wrapf(err, "querying %s", zero.Table())
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api resourceApi[T]) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Get(ctx.Request().Context(), api.principal(ctx), id)
	if err != nil {
		return errors.Wrapf(err, "retrieving %s", rec.Table())
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api resourceApi[T]) create(ctx echo.Context) error {
	var data T
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return err
	}
	rec, err := api.svc.Create(ctx.Request().Context(), api.principal(ctx), data)
	if err != nil {
		return errors.Wrapf(err, "creating %s", data.Table())
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api resourceApi[T]) update(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data T
	if err = (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return err
	}
	rec, err := api.svc.Update(ctx.Request().Context(), api.principal(ctx), id, data)
	if err != nil {
		return errors.Wrapf(err, "updating %s", data.Table())
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api resourceApi[T]) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var zero T
	if err = api.svc.Delete(ctx.Request().Context(), api.principal(ctx), id); err != nil {
		return errors.Wrapf(err, "deleting %s", zero.Table())
	}
	return ctx.NoContent(http.StatusNoContent)
}
