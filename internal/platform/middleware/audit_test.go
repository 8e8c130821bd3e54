package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/KyaptainJoyboy/Galpal/internal/platform/auth"
)

func newTestContext(method, path string, userID string, roles []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req = req.WithContext(auth.WithUser(req.Context(), userID, roles))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]interface{}
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		lines = append(lines, m)
	}
	return lines
}

func TestAudit_PatientRead(t *testing.T) {
	var buf bytes.Buffer
	patientID := uuid.New().String()
	c, _ := newTestContext(http.MethodGet, "/api/v1/patients/"+patientID+"/analyses", "user-1", []string{auth.RoleClinician})
	c.Set("request_id", "req-123")
	c.Set("tenant_id", "lakeside")

	if err := Audit(zerolog.New(&buf))(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := decodeLogLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 audit line, got %d", len(lines))
	}
	got := lines[0]
	want := map[string]interface{}{
		"message":    "phi_access",
		"type":       "audit",
		"user_id":    "user-1",
		"tenant_id":  "lakeside",
		"request_id": "req-123",
		"resource":   "patients",
		"patient_id": patientID,
		"action":     "read",
		"status":     float64(200),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, got[k])
		}
	}
}

func TestAudit_CapturesHandlerErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newTestContext(http.MethodDelete, "/api/v1/analyses/abc", "user-1", nil)

	handler := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	}
	if err := Audit(zerolog.New(&buf))(handler)(c); err == nil {
		t.Fatal("expected handler error to propagate")
	}

	lines := decodeLogLines(t, &buf)
	if len(lines) != 1 || lines[0]["status"] != float64(404) || lines[0]["action"] != "delete" {
		t.Errorf("unexpected audit line %v", lines)
	}
}

func TestAudit_SkipsNonAuditablePaths(t *testing.T) {
	var buf bytes.Buffer
	for _, path := range []string{"/health", "/cds-services"} {
		c, _ := newTestContext(http.MethodGet, path, "", nil)
		if err := Audit(zerolog.New(&buf))(okHandler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("expected no audit output, got %s", buf.String())
	}
}

func TestExtractResource(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/patients", "patients"},
		{"/api/v1/patients/123/analyses", "patients"},
		{"/api/v1/evaluate", "evaluate"},
		{"/api/v1/", "unknown"},
		{"/cds-services/galpal-lab-findings", "cds-services"},
		{"/health", "unknown"},
	}
	for _, tt := range tests {
		if got := extractResource(tt.path); got != tt.want {
			t.Errorf("extractResource(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExtractPatientID(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/patients/" + id, id},
		{"/api/v1/patients/not-a-uuid", ""},
		{"/api/v1/analyses?patient_id=" + id, id},
		{"/api/v1/analyses", ""},
	}
	for _, tt := range tests {
		c, _ := newTestContext(http.MethodGet, tt.path, "", nil)
		if got := extractPatientID(c); got != tt.want {
			t.Errorf("extractPatientID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHttpMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range tests {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("httpMethodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
