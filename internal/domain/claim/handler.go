package claim

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
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
	g := api.Group("/claims")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/bulk", h.BulkInsert)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PUT("/:id/status", h.UpdateStatus)
}

func (h *Handler) Create(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var body Claim
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
	f := ListFilter{Status: c.QueryParam("status"), Payer: c.QueryParam("payer")}
	if raw := c.QueryParam("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid client_id")
		}
		f.ClientID = id
	}
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
	cl, err := h.svc.Get(c.Request().Context(), ident.CompanyID, c.Param("id"))
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, cl)
}

func (h *Handler) Update(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var upd ClaimUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.Update(c.Request().Context(), ident, c.Param("id"), upd)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, cl)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var change StatusChange
	if err := c.Bind(&change); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.UpdateStatus(c.Request().Context(), ident, c.Param("id"), change)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, cl)
}

func (h *Handler) BulkInsert(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var rows []*Claim
	if err := c.Bind(&rows); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be an array of claims")
	}
	if len(rows) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a non-empty array")
	}
	inserted, rowErrors := h.svc.BulkInsert(c.Request().Context(), ident, rows)
	return respond.Bulk(c, inserted, len(rows), rowErrors)
}

func notFoundOr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
