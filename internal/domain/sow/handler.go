package sow

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rcm/rcm/internal/domain/client"
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
	g := api.Group("/sow")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/client/:clientId", h.ListByClient)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/assign", h.Assign)
	g.PUT("/:id/status", h.UpdateStatus)
	g.GET("/:id/metrics", h.Metrics)
	g.POST("/:id/trends", h.AddTrend)
}

func (h *Handler) Create(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var body SOW
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), ident, &body); err != nil {
		return notFoundOr(err)
	}
	return respond.Created(c, body)
}

func (h *Handler) List(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	pg := pagination.FromContext(c)
	f := ListFilter{Status: c.QueryParam("status")}
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

func (h *Handler) ListByClient(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	clientID, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid client id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), ident.CompanyID,
		ListFilter{ClientID: clientID}, pg.Limit, pg.Offset)
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
	sw, err := h.svc.Get(c.Request().Context(), ident.CompanyID, c.Param("id"))
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, sw)
}

func (h *Handler) Update(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var body map[string]json.RawMessage
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sw, err := h.svc.UpdateSections(c.Request().Context(), ident, c.Param("id"), body)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, sw)
}

func (h *Handler) Delete(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	if err := h.svc.Delete(c.Request().Context(), ident, c.Param("id")); err != nil {
		return notFoundOr(err)
	}
	return respond.OKMessage(c, nil, "sow deleted")
}

func (h *Handler) Assign(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var body struct {
		EmployeeIDs []uuid.UUID `json:"employeeIds"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(body.EmployeeIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "employeeIds must be a non-empty array")
	}
	result, err := h.svc.Assign(c.Request().Context(), ident, c.Param("id"), body.EmployeeIDs)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, result)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sw, err := h.svc.UpdateStatus(c.Request().Context(), ident, c.Param("id"), body.Status)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, sw)
}

func (h *Handler) Metrics(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	snap, err := h.svc.Metrics(c.Request().Context(), ident.CompanyID, c.Param("id"))
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, snap)
}

func (h *Handler) AddTrend(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var entry MonthlyTrend
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sw, err := h.svc.AddTrend(c.Request().Context(), ident, c.Param("id"), entry)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, sw)
}

func notFoundOr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "sow not found")
	}
	if errors.Is(err, client.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
