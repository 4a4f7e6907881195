package employee

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rcm/rcm/internal/platform/session"
	"github.com/rcm/rcm/pkg/pagination"
	"github.com/rcm/rcm/pkg/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/employees")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Deactivate)
}

func (h *Handler) Create(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var body Employee
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), ident, &body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond.Created(c, body)
}

func (h *Handler) List(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	pg := pagination.FromContext(c)
	f := ListFilter{Role: c.QueryParam("role"), OnlyActive: c.QueryParam("active") == "true"}
	items, total, err := h.svc.List(c.Request().Context(), ident.CompanyID, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond.OK(c, pagination.NewPage(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	e, err := h.svc.Get(c.Request().Context(), ident.CompanyID, c.Param("id"))
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, e)
}

func (h *Handler) Update(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var upd EmployeeUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Update(c.Request().Context(), ident, c.Param("id"), upd)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, e)
}

func (h *Handler) Deactivate(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	e, err := h.svc.Deactivate(c.Request().Context(), ident, c.Param("id"))
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OKMessage(c, e, "employee deactivated")
}

func notFoundOr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "employee not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
