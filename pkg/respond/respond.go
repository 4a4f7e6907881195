// Package respond shapes the JSON envelopes every endpoint returns:
// {"success":true,"data":...,"message":...} on success, a success:false
// envelope on error, and the 207 partial-success shape for bulk inserts.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BulkResult is the body for bulk inserts that partially failed (HTTP 207).
type BulkResult struct {
	Success       bool     `json:"success"`
	InsertedCount int      `json:"insertedCount"`
	Error         string   `json:"error,omitempty"`
	RowErrors     []string `json:"rowErrors,omitempty"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func OKMessage(c echo.Context, data interface{}, message string) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Error: message})
}

// Bulk writes the outcome of a bulk insert: 201 when every row landed,
// 207 with the inserted count and per-row errors when only some did,
// 400 when nothing could be inserted.
func Bulk(c echo.Context, inserted, attempted int, rowErrors []string) error {
	if inserted == attempted {
		return c.JSON(http.StatusCreated, Envelope{Success: true, Data: map[string]int{"insertedCount": inserted}})
	}
	body := BulkResult{
		Success:       false,
		InsertedCount: inserted,
		Error:         "some rows failed to insert",
		RowErrors:     rowErrors,
	}
	if inserted == 0 {
		body.Error = "all rows failed to insert"
		return c.JSON(http.StatusBadRequest, body)
	}
	return c.JSON(http.StatusMultiStatus, body)
}
