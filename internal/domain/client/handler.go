package client

import (
	"encoding/json"
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
	g := api.Group("/clients")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/bulk", h.BulkInsert)
	g.GET("/ehr/:ehr", h.ListByEHR)
	g.GET("/onboarding/pending", h.ListOnboardingPending)
	g.GET("/active/list", h.ListActive)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Deactivate)
	g.PUT("/:id/integration", h.UpdateIntegration)
	g.PUT("/:id/financial", h.UpdateFinancial)
	g.PUT("/:id/sync-status", h.UpdateSyncStatus)
	g.PUT("/:id/agreements", h.UpdateAgreements)
	g.GET("/:id/sow-ready", h.SOWReady)
	g.GET("/:id/decrypted-creds", h.RevealCredentials, session.RequireRole("admin"))
}

func (h *Handler) Create(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var body Client
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
	f := ListFilter{
		Status:       c.QueryParam("status"),
		EHRSystem:    c.QueryParam("ehr"),
		WorkflowType: c.QueryParam("workflow_type"),
		Search:       c.QueryParam("search"),
	}
	items, total, err := h.svc.List(c.Request().Context(), ident.CompanyID, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond.OK(c, pagination.NewPage(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByEHR(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), ident.CompanyID,
		ListFilter{EHRSystem: c.Param("ehr")}, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond.OK(c, pagination.NewPage(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListOnboardingPending(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), ident.CompanyID,
		ListFilter{PendingGoLive: true}, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond.OK(c, pagination.NewPage(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListActive(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), ident.CompanyID,
		ListFilter{OnlyActive: true, Status: StatusActive}, pg.Limit, pg.Offset)
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
	var body map[string]json.RawMessage
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.UpdateSections(c.Request().Context(), ident, c.Param("id"), body)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, cl)
}

func (h *Handler) UpdateIntegration(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var upd IntegrationUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.UpdateIntegration(c.Request().Context(), ident, c.Param("id"), upd)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OKMessage(c, cl, "integration strategy updated")
}

func (h *Handler) UpdateFinancial(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var fin FinancialInfo
	if err := c.Bind(&fin); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.UpdateFinancial(c.Request().Context(), ident, c.Param("id"), fin)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, cl)
}

func (h *Handler) UpdateSyncStatus(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var body struct {
		SyncStatus string `json:"syncStatus"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.UpdateSyncStatus(c.Request().Context(), ident, c.Param("id"), body.SyncStatus)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, cl)
}

func (h *Handler) UpdateAgreements(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var upd AgreementsUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.UpdateAgreements(c.Request().Context(), ident, c.Param("id"), upd)
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, cl)
}

func (h *Handler) Deactivate(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	cl, err := h.svc.Deactivate(c.Request().Context(), ident, c.Param("id"))
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OKMessage(c, cl, "client deactivated")
}

func (h *Handler) SOWReady(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	readiness, err := h.svc.SOWReady(c.Request().Context(), ident.CompanyID, c.Param("id"))
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, readiness)
}

func (h *Handler) RevealCredentials(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	creds, err := h.svc.RevealCredentials(c.Request().Context(), ident, c.Param("id"))
	if err != nil {
		return notFoundOr(err)
	}
	return respond.OK(c, creds)
}

func (h *Handler) BulkInsert(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var rows []*Client
	if err := c.Bind(&rows); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be an array of clients")
	}
	if len(rows) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a non-empty array")
	}
	inserted, rowErrors := h.svc.BulkInsert(c.Request().Context(), ident, rows)
	return respond.Bulk(c, inserted, len(rows), rowErrors)
}

func notFoundOr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "client not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
