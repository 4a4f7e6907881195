package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	CompanyIDKey  contextKey = "company_id"
	EmployeeIDKey contextKey = "employee_id"
	RolesKey      contextKey = "roles"
)

// Identity is the authenticated company/employee pair every handler runs
// under. It is produced by upstream authentication, never by request bodies.
type Identity struct {
	CompanyID  uuid.UUID
	EmployeeID uuid.UUID
	Roles      []string
}

// Claims are the JWT claims the upstream identity provider issues.
type Claims struct {
	CompanyID  string   `json:"company_id"`
	EmployeeID string   `json:"employee_id"`
	Roles      []string `json:"roles"`
	jwt.RegisteredClaims
}

// Middleware validates the bearer token and stores the company and employee
// identity in the request context. Requests without a valid identity are
// rejected before any handler runs.
func Middleware(signingSecret, issuer string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
			if issuer != "" {
				opts = append(opts, jwt.WithIssuer(issuer))
			}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(signingSecret), nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ident, err := identityFromClaims(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			apply(c, ident)
			return next(c)
		}
	}
}

// DevMiddleware injects a fixed admin identity for local development.
func DevMiddleware() echo.MiddlewareFunc {
	devCompany := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	devEmployee := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apply(c, Identity{
				CompanyID:  devCompany,
				EmployeeID: devEmployee,
				Roles:      []string{"admin"},
			})
			return next(c)
		}
	}
}

func identityFromClaims(claims *Claims) (Identity, error) {
	companyID, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		return Identity{}, fmt.Errorf("token missing company identity")
	}
	employeeID, err := uuid.Parse(claims.EmployeeID)
	if err != nil {
		return Identity{}, fmt.Errorf("token missing employee identity")
	}
	return Identity{CompanyID: companyID, EmployeeID: employeeID, Roles: claims.Roles}, nil
}

func apply(c echo.Context, ident Identity) {
	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, CompanyIDKey, ident.CompanyID)
	ctx = context.WithValue(ctx, EmployeeIDKey, ident.EmployeeID)
	ctx = context.WithValue(ctx, RolesKey, ident.Roles)
	c.SetRequest(c.Request().WithContext(ctx))
}

// CompanyIDFromContext returns the acting company, or uuid.Nil when absent.
func CompanyIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(CompanyIDKey).(uuid.UUID)
	return id
}

// EmployeeIDFromContext returns the acting employee, or uuid.Nil when absent.
func EmployeeIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(EmployeeIDKey).(uuid.UUID)
	return id
}

// RolesFromContext returns the acting employee's roles.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(RolesKey).([]string)
	return roles
}

// FromContext returns the full identity, erroring when either half is
// missing. Handlers that mutate data call this first.
func FromContext(ctx context.Context) (Identity, error) {
	company := CompanyIDFromContext(ctx)
	employee := EmployeeIDFromContext(ctx)
	if company == uuid.Nil || employee == uuid.Nil {
		return Identity{}, fmt.Errorf("request has no authenticated company/employee context")
	}
	return Identity{CompanyID: company, EmployeeID: employee, Roles: RolesFromContext(ctx)}, nil
}

// RequireRole gates a route group on roles; "admin" always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == "admin" {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
