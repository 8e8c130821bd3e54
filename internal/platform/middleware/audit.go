package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/KyaptainJoyboy/Galpal/internal/platform/auth"
)

// AuditEntry records who touched which patient's lab data.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	TenantID   string
	Resource   string
	PatientID  string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// Audit logs one "phi_access" line for every API and CDS Hooks request after
// the handler has run.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			entry := newAuditEntry(c)
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("tenant_id", entry.TenantID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

func newAuditEntry(c echo.Context) AuditEntry {
	req := c.Request()
	ctx := req.Context()
	entry := AuditEntry{
		UserID:     auth.UserIDFromContext(ctx),
		UserRoles:  auth.RolesFromContext(ctx),
		Resource:   extractResource(req.URL.Path),
		PatientID:  extractPatientID(c),
		Action:     httpMethodToAction(req.Method),
		IPAddress:  c.RealIP(),
		UserAgent:  req.UserAgent(),
		Path:       req.URL.Path,
		Method:     req.Method,
		Timestamp:  time.Now().UTC(),
		StatusCode: c.Response().Status,
	}
	entry.RequestID, _ = c.Get("request_id").(string)
	entry.TenantID, _ = c.Get("tenant_id").(string)
	return entry
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/") || strings.HasPrefix(path, "/cds-services/")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource returns the first path segment after the API prefix:
// /api/v1/patients/123 gives "patients", /cds-services/x gives "cds-services".
func extractResource(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		if strings.HasPrefix(path, "/cds-services/") {
			return "cds-services"
		}
		return "unknown"
	}
	if seg, _, _ := strings.Cut(rest, "/"); seg != "" {
		return seg
	}
	return "unknown"
}

// extractPatientID reads the patient from /api/v1/patients/<uuid> or a
// patient_id query parameter.
func extractPatientID(c echo.Context) string {
	if rest, ok := strings.CutPrefix(c.Request().URL.Path, "/api/v1/patients/"); ok {
		seg, _, _ := strings.Cut(rest, "/")
		if _, err := uuid.Parse(seg); err == nil {
			return seg
		}
	}
	return c.QueryParam("patient_id")
}
