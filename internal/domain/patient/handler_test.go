package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestHandler_CreatePatient(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Maria Santos","sex":"female","date_of_birth":"1972-05-01","mrn":"MRN-1"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == uuid.Nil || got.DateOfBirth == nil || got.DateOfBirth.Year() != 1972 || got.Age == 0 {
		t.Errorf("unexpected patient %+v", got)
	}
}

func TestHandler_CreatePatient_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"sex":"male","age":40}`},
		{"bad sex", `{"name":"A","sex":"x","age":40}`},
		{"bad birth date", `{"name":"A","sex":"male","date_of_birth":"01/02/1990"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := newTestHandler()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			c := e.NewContext(req, httptest.NewRecorder())
			expectHTTPError(t, h.CreatePatient(c), http.StatusBadRequest)
		})
	}
}

func TestHandler_GetPatient(t *testing.T) {
	h, e := newTestHandler()
	p := &Patient{Name: "Ana", Sex: "female", Age: 30}
	h.svc.CreatePatient(context.Background(), p)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetPatient_Errors(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectHTTPError(t, h.GetPatient(c), http.StatusNotFound)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	expectHTTPError(t, h.GetPatient(c), http.StatusBadRequest)
}

func TestHandler_ListPatients(t *testing.T) {
	h, e := newTestHandler()
	for _, name := range []string{"Maria Santos", "Mario Cruz", "Liza Reyes"} {
		h.svc.CreatePatient(context.Background(), &Patient{Name: name, Sex: "other", Age: 40})
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?q=mari&limit=1", nil), rec)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data    []Patient `json:"data"`
		Total   int       `json:"total"`
		Limit   int       `json:"limit"`
		HasMore bool      `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 1 || resp.Limit != 1 || !resp.HasMore {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestHandler_UpdatePatient(t *testing.T) {
	h, e := newTestHandler()
	p := &Patient{Name: "Ana", Sex: "female", Age: 30}
	h.svc.CreatePatient(context.Background(), p)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"Ana Cruz","sex":"female","age":31}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.UpdatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"Ghost","sex":"male","age":31}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectHTTPError(t, h.UpdatePatient(c), http.StatusNotFound)
}

func TestHandler_DeletePatient(t *testing.T) {
	h, e := newTestHandler()
	p := &Patient{Name: "Ana", Sex: "female", Age: 30}
	h.svc.CreatePatient(context.Background(), p)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.DeletePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	expectHTTPError(t, h.DeletePatient(c), http.StatusNotFound)
}
