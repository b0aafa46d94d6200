package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/domain/contact"
)

// maxSearchPage is the largest page the HubSpot search API returns.
const maxSearchPage = 100

var contactProperties = []string{
	"firstname", "lastname", "email", "phone", "company",
	PropWhatsAppPhone, PropWhatsAppConsentStatus, PropWhatsAppConsentDate, PropLifecycleStage,
}

type searchFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value,omitempty"`
}

type filterGroup struct {
	Filters []searchFilter `json:"filters"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

type searchResponse struct {
	Total   int `json:"total"`
	Results []struct {
		ID         string            `json:"id"`
		Properties map[string]string `json:"properties"`
	} `json:"results"`
	Paging *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// SearchByConsentStatus returns up to limit contacts with the given WhatsApp
// consent status. not_set matches contacts without the property.
func (c *Client) SearchByConsentStatus(
	ctx context.Context, status field.Value, limit int,
) ([]contact.Contact, error) {
	filter := searchFilter{PropertyName: PropWhatsAppConsentStatus, Operator: "EQ", Value: status.String()}
	if status == field.StatusNotSet {
		filter = searchFilter{PropertyName: PropWhatsAppConsentStatus, Operator: "NOT_HAS_PROPERTY"}
	}
	return c.search(ctx, filter, limit)
}

func (c *Client) search(ctx context.Context, filter searchFilter, limit int) ([]contact.Contact, error) {
	var out []contact.Contact
	after := ""

	for limit <= 0 || len(out) < limit {
		page := maxSearchPage
		if limit > 0 && limit-len(out) < page {
			page = limit - len(out)
		}

		body, err := json.Marshal(searchRequest{
			FilterGroups: []filterGroup{{Filters: []searchFilter{filter}}},
			Properties:   contactProperties,
			Limit:        page,
			After:        after,
		})
		if err != nil {
			return nil, fmt.Errorf("encode search: %w", err)
		}

		resp, err := c.do(ctx, "search_contacts", http.MethodPost, "/crm/v3/objects/contacts/search", body)
		if err != nil {
			return nil, fmt.Errorf("search contacts: %w", err)
		}
		var parsed searchResponse
		err = decodeSearch(resp, &parsed)
		if err != nil {
			return nil, err
		}

		for _, r := range parsed.Results {
			ct, err := toContact(r.ID, r.Properties)
			if err != nil {
				return nil, fmt.Errorf("contact %q: %w", r.ID, err)
			}
			out = append(out, ct)
		}

		if parsed.Paging == nil || parsed.Paging.Next == nil || parsed.Paging.Next.After == "" {
			break
		}
		after = parsed.Paging.Next.After
	}
	return out, nil
}

func decodeSearch(resp *http.Response, into *searchResponse) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search contacts: %w", classifyResponse(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode search: %w", err)
	}
	return nil
}

func toContact(id string, p map[string]string) (contact.Contact, error) {
	var consentDate time.Time
	if raw := p[PropWhatsAppConsentDate]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			consentDate = t
		}
	}
	return contact.New(id, contact.Attributes{
		FirstName:      p["firstname"],
		LastName:       p["lastname"],
		Email:          p["email"],
		Phone:          p["phone"],
		WhatsAppPhone:  p[PropWhatsAppPhone],
		ConsentStatus:  p[PropWhatsAppConsentStatus],
		ConsentDate:    consentDate,
		Company:        p["company"],
		LifecycleStage: p[PropLifecycleStage],
	})
}
