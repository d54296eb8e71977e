// ABOUTME: HubSpot v4 association listing and default association creation
// ABOUTME: Links deals, companies, quotes, line items, contracts, and projects
package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type associationPage struct {
	Results []struct {
		ToObjectID json.Number `json:"toObjectId"`
	} `json:"results"`
	Paging *paging `json:"paging"`
}

// GetAssociations lists the ids of toType records associated with an object, in CRM order.
func (c *Client) GetAssociations(ctx context.Context, fromType, fromID, toType string) ([]string, error) {
	var (
		ids   []string
		after string
	)

	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/%s", fromType, url.PathEscape(fromID), toType)
	for {
		query := url.Values{}
		query.Set("limit", "500")
		if after != "" {
			query.Set("after", after)
		}

		var page associationPage
		if err := c.do(ctx, http.MethodGet, path, query, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list %s associations of %s %s: %w", toType, fromType, fromID, err)
		}
		for _, r := range page.Results {
			ids = append(ids, r.ToObjectID.String())
		}

		after = page.Paging.after()
		if after == "" {
			return ids, nil
		}
	}
}

// GetDealAssociations lists records of toType associated with a deal.
func (c *Client) GetDealAssociations(ctx context.Context, dealID, toType string) ([]string, error) {
	return c.GetAssociations(ctx, ObjectDeals, dealID, toType)
}

// GetQuoteAssociations lists records of toType associated with a quote.
func (c *Client) GetQuoteAssociations(ctx context.Context, quoteID, toType string) ([]string, error) {
	return c.GetAssociations(ctx, ObjectQuotes, quoteID, toType)
}

// CreateAssociation creates the default association between two records.
func (c *Client) CreateAssociation(ctx context.Context, fromType, fromID, toType, toID string) error {
	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/default/%s/%s",
		fromType, url.PathEscape(fromID), toType, url.PathEscape(toID))

	if err := c.do(ctx, http.MethodPut, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to associate %s %s with %s %s: %w", fromType, fromID, toType, toID, err)
	}

	c.log.Info().
		Str("from_type", fromType).
		Str("from_id", fromID).
		Str("to_type", toType).
		Str("to_id", toID).
		Msg("association created")
	return nil
}

// CreateDealAssociation links a deal to another record.
func (c *Client) CreateDealAssociation(ctx context.Context, dealID, toType, toID string) error {
	return c.CreateAssociation(ctx, ObjectDeals, dealID, toType, toID)
}

// CreateCompanyAssociation links a company to another record.
func (c *Client) CreateCompanyAssociation(ctx context.Context, companyID, toType, toID string) error {
	return c.CreateAssociation(ctx, ObjectCompanies, companyID, toType, toID)
}
