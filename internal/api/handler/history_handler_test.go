package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teaqnet/access-api/internal/core/domain"
)

func TestHistoryHandler_Record(t *testing.T) {
	e := newEcho()
	hist := &stubHistoryService{}
	h := NewHistoryHandler(hist)
	acc := &domain.Account{ID: "u1", Email: "user@example.com"}

	rec := httptest.NewRecorder()
	body := `{"prediction":"cat","confidence":91.5,"model":"resnet","filename":"cat.png"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/history", body), rec)

	if err := withPrincipal(acc, h.Record)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if hist.input.Prediction != "cat" || hist.input.Confidence != 91.5 || hist.input.Model != "resnet" {
		t.Fatalf("unexpected input: %+v", hist.input)
	}
	var resp entryEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Entry.UserEmail != "user@example.com" || resp.Entry.Action != string(domain.ActionPrediction) {
		t.Fatalf("unexpected entry: %+v", resp.Entry)
	}
}

func TestHistoryHandler_Record_ConfidenceOutOfRange(t *testing.T) {
	e := newEcho()
	h := NewHistoryHandler(&stubHistoryService{})

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/history", `{"prediction":"cat","confidence":120}`), httptest.NewRecorder())

	err := withPrincipal(&domain.Account{ID: "u1"}, h.Record)(c)
	var de *domain.Error
	if !asDomainError(err, &de) || de.Field != "confidence" {
		t.Fatalf("expected confidence validation error, got %v", err)
	}
}

func TestHistoryHandler_List(t *testing.T) {
	e := newEcho()
	hist := &stubHistoryService{entries: []*domain.AuditEntry{{ID: "e2"}, {ID: "e1"}}}
	h := NewHistoryHandler(hist)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/history", nil), rec)

	if err := withPrincipal(&domain.Account{ID: "u1"}, h.List)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.History) != 2 || resp.History[0].ID != "e2" {
		t.Fatalf("unexpected history: %+v", resp.History)
	}
}
