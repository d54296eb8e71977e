// ABOUTME: HubSpot owner lookups by email and by id
// ABOUTME: Resolves CS owner emails from the roster into HubSpot owner ids
package hubspot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/harperreed/dealbridge/models"
)

type owner struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (o owner) toModel() *models.Owner {
	return &models.Owner{ID: o.ID, Email: o.Email, FirstName: o.FirstName, LastName: o.LastName}
}

// FindOwnerByEmail returns the first owner with the email, or nil when none exists.
func (c *Client) FindOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	query := url.Values{}
	query.Set("email", email)

	var page struct {
		Results []owner `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/crm/v3/owners/", query, nil, &page); err != nil {
		return nil, fmt.Errorf("failed to look up owner %s: %w", email, err)
	}

	if len(page.Results) == 0 {
		return nil, nil
	}
	return page.Results[0].toModel(), nil
}

// GetOwner returns the owner with the id, or nil when HubSpot has no such owner.
func (c *Client) GetOwner(ctx context.Context, ownerID string) (*models.Owner, error) {
	var o owner
	err := c.do(ctx, http.MethodGet, "/crm/v3/owners/"+url.PathEscape(ownerID), nil, nil, &o)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get owner %s: %w", ownerID, err)
	}
	return o.toModel(), nil
}
