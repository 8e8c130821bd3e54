package cdshooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler() (*Handler, *echo.Echo) {
	h := NewHandler()
	RegisterLabFindings(h, zerolog.Nop())
	h.RegisterService(Service{
		Hook:        "order-select",
		Description: "Always fails",
		ID:          "broken",
	}, func(context.Context, Request) (*Response, error) {
		return nil, errors.New("engine offline")
	})
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestDiscovery(t *testing.T) {
	_, e := newTestHandler()
	rec := serve(e, http.MethodGet, "/cds-services", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Services []Service `json:"services"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Services) != 2 || result.Services[0].ID != LabFindingsID || result.Services[1].ID != "broken" {
		t.Fatalf("unexpected services %+v", result.Services)
	}
	if result.Services[0].Hook != HookPatientView || result.Services[0].Prefetch["sample"] == "" {
		t.Errorf("unexpected lab findings entry %+v", result.Services[0])
	}
}

func TestDiscovery_Empty(t *testing.T) {
	e := echo.New()
	NewHandler().RegisterRoutes(e)
	rec := serve(e, http.MethodGet, "/cds-services", "")
	if !strings.Contains(rec.Body.String(), `"services":[]`) {
		t.Errorf("expected empty services array, got %s", rec.Body.String())
	}
}

func TestHandleHook_Errors(t *testing.T) {
	_, e := newTestHandler()
	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown service", "/cds-services/nope", `{}`, http.StatusNotFound},
		{"bad json", "/cds-services/" + LabFindingsID, `{`, http.StatusBadRequest},
		{"hook mismatch", "/cds-services/" + LabFindingsID, `{"hook":"order-select","hookInstance":"1"}`, http.StatusBadRequest},
		{"missing instance", "/cds-services/" + LabFindingsID, `{"hook":"patient-view"}`, http.StatusBadRequest},
		{"missing sample", "/cds-services/" + LabFindingsID, `{"hook":"patient-view","hookInstance":"1","context":{}}`, http.StatusBadRequest},
		{"handler failure", "/cds-services/broken", `{"hook":"order-select","hookInstance":"1"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleFeedback(t *testing.T) {
	_, e := newTestHandler()
	rec := serve(e, http.MethodPost, "/cds-services/"+LabFindingsID+"/feedback", `{"card":"abc","outcome":"accepted"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	rec = serve(e, http.MethodPost, "/cds-services/broken/feedback", `{"card":"abc","outcome":"overridden"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 without a feedback handler, got %d", rec.Code)
	}
	rec = serve(e, http.MethodPost, "/cds-services/nope/feedback", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	rec = serve(e, http.MethodPost, "/cds-services/"+LabFindingsID+"/feedback", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
