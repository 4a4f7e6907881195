package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rcm/rcm/internal/platform/session"
	"github.com/rcm/rcm/pkg/respond"
)

const previewRows = 5

type Handler struct {
	store      *Store
	submitters map[string]Submitter
	maxBytes   int64
	logger     zerolog.Logger
}

func NewHandler(store *Store, submitters map[string]Submitter, maxBytes int64, logger zerolog.Logger) *Handler {
	return &Handler{store: store, submitters: submitters, maxBytes: maxBytes, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/imports")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id/mapping", h.UpdateMapping)
	g.GET("/:id/preview", h.Preview)
	g.POST("/:id/submit", h.Submit)
	g.GET("/:id/errors", h.ErrorReport)
	g.POST("/:id/back", h.Back)
	g.POST("/:id/reset", h.Reset)
}

// Create opens a session from a multipart upload: the file is parsed, the
// first row becomes the header set, and headers are auto-mapped against
// the target dictionary.
func (h *Handler) Create(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	target := c.FormValue("target")
	fields, err := Dictionary(target)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	if fileHeader.Size > h.maxBytes {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("file exceeds the %d byte limit", h.maxBytes))
	}
	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	table, err := Parse(fileHeader.Filename, f, h.maxBytes)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s := &Session{
		ID:        uuid.New(),
		CompanyID: ident.CompanyID,
		Target:    target,
		Stage:     StageUpload,
		FileName:  fileHeader.Filename,
		Headers:   table.Headers,
		Rows:      table.Rows,
		RowCount:  len(table.Rows),
		Mapping:   AutoMap(table.Headers, fields),
	}
	h.store.Put(s)

	h.logger.Info().
		Str("import_id", s.ID.String()).
		Str("target", target).
		Int("rows", s.RowCount).
		Msg("import session opened")
	return respond.Created(c, s)
}

func (h *Handler) Get(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return respond.OK(c, s)
}

// UpdateMapping overrides the auto-mapping and advances to the map stage.
// Duplicate column mappings are warnings; they do not block.
func (h *Handler) UpdateMapping(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var body struct {
		Mapping map[string]string `json:"mapping"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fields, _ := Dictionary(s.Target)
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Key] = true
	}
	for key := range body.Mapping {
		if !known[key] {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("unknown field %q for target %s", key, s.Target))
		}
	}

	// Unmapped required fields do not block here; they block preview.
	_, warnings := CheckMapping(body.Mapping, s.Headers, fields)
	updated, err := h.store.Update(s.ID, s.CompanyID, func(live *Session) error {
		live.Mapping = body.Mapping
		live.Warnings = warnings
		live.Stage = StageMap
		return nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return respond.OKMessage(c, updated, "mapping updated")
}

// Preview returns the first rows mapped and type-coerced. It refuses to
// advance while any required field is unmapped.
func (h *Handler) Preview(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	fields, _ := Dictionary(s.Target)
	if errs, _ := CheckMapping(s.Mapping, s.Headers, fields); len(errs) > 0 {
		return respond.Error(c, http.StatusBadRequest,
			"mapping is incomplete: "+joinErrors(errs))
	}

	rows, rowErrors := Preview(s, fields, previewRows)
	if _, err := h.store.Update(s.ID, s.CompanyID, func(live *Session) error {
		live.Stage = StagePreview
		return nil
	}); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return respond.OK(c, map[string]interface{}{
		"rows":      rows,
		"rowErrors": rowErrors,
	})
}

// Submit pushes every mapped record through the target's bulk path and
// records the outcome on the session.
func (h *Handler) Submit(c echo.Context) error {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	s, err := h.session(c)
	if err != nil {
		return err
	}

	fields, _ := Dictionary(s.Target)
	if errs, _ := CheckMapping(s.Mapping, s.Headers, fields); len(errs) > 0 {
		return respond.Error(c, http.StatusBadRequest,
			"mapping is incomplete: "+joinErrors(errs))
	}

	submitter, ok := h.submitters[s.Target]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "no submitter for target "+s.Target)
	}

	// Claim the submit stage under the store mutex first so two concurrent
	// submits cannot both run.
	if _, err := h.store.Update(s.ID, ident.CompanyID, func(live *Session) error {
		if live.Stage == StageSubmit {
			return ErrAlreadySubmitted
		}
		live.Stage = StageSubmit
		return nil
	}); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	records, coercionErrors := Records(s, fields)
	inserted, rowErrors := submitter.Submit(c.Request().Context(), ident, records)
	allErrors := append(coercionErrors, rowErrors...)

	if _, err := h.store.Update(s.ID, ident.CompanyID, func(live *Session) error {
		live.InsertedCount = inserted
		live.RowErrors = allErrors
		return nil
	}); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	h.logger.Info().
		Str("import_id", s.ID.String()).
		Int("inserted", inserted).
		Int("failed", len(allErrors)).
		Msg("import submitted")
	return respond.Bulk(c, inserted, s.RowCount, allErrors)
}

// ErrorReport streams the per-row errors of the last submit as CSV.
func (h *Handler) ErrorReport(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="import-%s-errors.csv"`, s.ID))
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"error"}); err != nil {
		return err
	}
	for _, rowErr := range s.RowErrors {
		if err := w.Write([]string{rowErr}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (h *Handler) Back(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	updated, err := h.store.Update(s.ID, s.CompanyID, func(live *Session) error {
		live.Back()
		return nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return respond.OK(c, updated)
}

func (h *Handler) Reset(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	fields, _ := Dictionary(s.Target)
	updated, err := h.store.Update(s.ID, s.CompanyID, func(live *Session) error {
		live.Reset(fields)
		return nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return respond.OK(c, updated)
}

func (h *Handler) session(c echo.Context) (*Session, error) {
	ident, err := session.FromContext(c.Request().Context())
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid import session id")
	}
	s, err := h.store.Get(id, ident.CompanyID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return s, nil
}

func joinErrors(errs []string) string {
	out := errs[0]
	for _, e := range errs[1:] {
		out += "; " + e
	}
	return out
}
