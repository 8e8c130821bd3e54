package cdshooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/KyaptainJoyboy/Galpal/internal/domain/interpretation"
)

func hookRequest(sample string, ctx map[string]interface{}) Request {
	req := Request{Hook: HookPatientView, HookInstance: "d1577c69", Context: ctx}
	if sample != "" {
		req.Prefetch = map[string]json.RawMessage{"sample": json.RawMessage(sample)}
	}
	return req
}

func TestLabFindings_Cards(t *testing.T) {
	resp, err := LabFindings(context.Background(), hookRequest(
		`{"fluid_type":"urine","metrics":{"creatinine":2.5,"nitrite":"positive"}}`,
		map[string]interface{}{"patientId": "p1", "patientSex": "Male", "patientAge": float64(70)},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Card{
		{
			Summary:   "Chronic Kidney Disease (CKD) (High risk)",
			Detail:    resp.Cards[0].Detail,
			Indicator: "critical",
			Source:    Source{Label: resp.Cards[0].Source.Label},
		},
		{
			Summary:   "Urinary Tract Infection (UTI) (Moderate risk)",
			Detail:    "Infection markers detected in urine. Consider medical evaluation and urine culture for confirmation.",
			Indicator: "warning",
			Source:    Source{Label: "European Association of Urology"},
		},
	}
	if diff := cmp.Diff(want, resp.Cards, cmpopts.IgnoreFields(Card{}, "UUID")); diff != "" {
		t.Errorf("cards mismatch (-want +got):\n%s", diff)
	}
	if resp.Cards[0].UUID == "" || resp.Cards[0].UUID == resp.Cards[1].UUID {
		t.Error("expected distinct card uuids")
	}
}

func TestLabFindings_SamplePatientFallback(t *testing.T) {
	resp, err := LabFindings(context.Background(), hookRequest(
		`{"fluid_type":"blood","metrics":{"hemoglobin":10},"patient":{"sex":"female","age":30}}`, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Cards) != 1 || resp.Cards[0].Indicator != "warning" || resp.Cards[0].Source.Label != "WHO Anemia Guidelines" {
		t.Errorf("unexpected cards %+v", resp.Cards)
	}
}

func TestLabFindings_NoFindings(t *testing.T) {
	for _, sample := range []string{
		`{"fluid_type":"blood","metrics":{"glucose":90}}`,
		`{"fluid_type":"saliva","metrics":{"ph":7}}`,
	} {
		resp, err := LabFindings(context.Background(), hookRequest(sample, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Cards == nil || len(resp.Cards) != 0 {
			t.Errorf("expected empty cards for %s, got %+v", sample, resp.Cards)
		}
	}
}

func TestLabFindings_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no sample", hookRequest("", nil)},
		{"null sample", hookRequest("null", nil)},
		{"bad metrics", hookRequest(`{"fluid_type":"blood","metrics":{"glucose":"high"}}`, nil)},
		{"string age", hookRequest(`{"fluid_type":"urine"}`, map[string]interface{}{"patientAge": "70"})},
		{"fractional age", hookRequest(`{"fluid_type":"urine"}`, map[string]interface{}{"patientAge": 70.5})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LabFindings(context.Background(), tt.req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestHandleHook_LabFindings(t *testing.T) {
	_, e := newTestHandler()
	body := `{"hook":"patient-view","hookInstance":"1","context":{"patientSex":"male","patientAge":50},
		"prefetch":{"sample":{"fluid_type":"blood","metrics":{"glucose":130,"hba1c":6.6}}}}`
	rec := serve(e, http.MethodPost, "/cds-services/"+LabFindingsID, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Cards) != 1 || resp.Cards[0].Summary != interpretation.ConditionDiabetes+" (High risk)" {
		t.Errorf("unexpected cards %+v", resp.Cards)
	}
}
