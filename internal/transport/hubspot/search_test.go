package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/westmoney/batchsync/internal/domain/batch/field"
)

func TestSearchByConsentStatus_Paginates(t *testing.T) {
	var requests []searchRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/crm/v3/objects/contacts/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		requests = append(requests, req)

		if req.After == "" {
			fmt.Fprint(w, `{"total":3,"results":[
				{"id":"1","properties":{"firstname":"Anna","email":"ANNA@example.com","hs_whatsapp_consent_status":"pending"}},
				{"id":"2","properties":{"firstname":"Ben","hs_whatsapp_consent_date":"2026-01-01T00:00:00Z"}}
			],"paging":{"next":{"after":"2"}}}`)
			return
		}
		fmt.Fprint(w, `{"total":3,"results":[{"id":"3","properties":{}}]}`)
	})

	got, err := c.SearchByConsentStatus(context.Background(), field.StatusPending, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d contacts, want 3", len(got))
	}
	if got[0].Email() != "anna@example.com" || got[0].ConsentStatus() != "pending" {
		t.Errorf("unexpected first contact: %+v", got[0])
	}
	if got[1].ConsentDate().IsZero() {
		t.Error("consent date not parsed")
	}

	if len(requests) != 2 || requests[1].After != "2" {
		t.Fatalf("expected 2 paged requests, got %+v", requests)
	}
	f := requests[0].FilterGroups[0].Filters[0]
	if f.PropertyName != PropWhatsAppConsentStatus || f.Operator != "EQ" || f.Value != "pending" {
		t.Errorf("unexpected filter: %+v", f)
	}
}

func TestSearchByConsentStatus_NotSetUsesNotHasProperty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f := req.FilterGroups[0].Filters[0]
		if f.Operator != "NOT_HAS_PROPERTY" || f.Value != "" {
			t.Errorf("unexpected filter: %+v", f)
		}
		fmt.Fprint(w, `{"total":0,"results":[]}`)
	})

	got, err := c.SearchByConsentStatus(context.Background(), field.StatusNotSet, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d contacts, want 0", len(got))
	}
}

func TestSearchByConsentStatus_RespectsLimit(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req searchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Limit != 2 {
			t.Errorf("page limit = %d, want 2", req.Limit)
		}
		fmt.Fprint(w, `{"results":[{"id":"1","properties":{}},{"id":"2","properties":{}}],"paging":{"next":{"after":"2"}}}`)
	})

	got, err := c.SearchByConsentStatus(context.Background(), field.StatusOptedOut, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || calls != 1 {
		t.Errorf("got %d contacts over %d calls, want 2 over 1", len(got), calls)
	}
}

func TestSearchByConsentStatus_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"missing scopes"}`)
	})

	if _, err := c.SearchByConsentStatus(context.Background(), field.StatusPending, 10); err == nil {
		t.Fatal("expected error")
	}
}
