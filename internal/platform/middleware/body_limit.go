package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit limits request body sizes. defaultBytes applies to JSON
// endpoints; importBytes applies to the spreadsheet upload route, which
// legitimately carries multi-megabyte multipart bodies.
func BodyLimit(defaultBytes, importBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Body == nil || c.Request().Body == http.NoBody {
				return next(c)
			}

			limit := defaultBytes
			if isImportUpload(c.Request()) {
				limit = importBytes
			}

			// Early rejection on declared length, then a limiting reader
			// for bodies with missing or dishonest Content-Length.
			if c.Request().ContentLength > limit {
				return payloadTooLarge(limit)
			}
			c.Request().Body = &limitedReadCloser{ReadCloser: c.Request().Body, remaining: limit}

			return next(c)
		}
	}
}

func isImportUpload(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/imports")
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (n int, err error) {
	if r.exceeded {
		return 0, payloadTooLarge(0)
	}
	toRead := int64(len(p))
	if toRead > r.remaining+1 {
		toRead = r.remaining + 1
	}
	n, err = r.ReadCloser.Read(p[:toRead])
	r.remaining -= int64(n)
	if r.remaining < 0 {
		r.exceeded = true
		return 0, payloadTooLarge(0)
	}
	return n, err
}

func payloadTooLarge(limit int64) error {
	msg := "request body too large"
	if limit > 0 {
		msg = fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit)
	}
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge, msg)
}
