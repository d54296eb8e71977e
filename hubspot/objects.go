// ABOUTME: Typed HubSpot object operations for deals, companies, quotes, line items, and custom objects
// ABOUTME: Maps CRM property names onto the models package structs
package hubspot

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/dealbridge/models"
)

// Standard object types.
const (
	ObjectDeals     = "deals"
	ObjectCompanies = "companies"
	ObjectQuotes    = "quotes"
	ObjectLineItems = "line_items"
)

// Property names used by the bridge.
const (
	PropDealName               = "dealname"
	PropDealStatus             = "estado_clickup"
	PropSingleLineProductsList = "single_line_products_list"
	PropCompanyName            = "name"
	PropCompanyDescription     = "description"
	PropCompanyTaxID           = "nif_cif"
	PropCompanyCSOwner         = "c_s__owner"
	PropQuoteStatus            = "hs_status"
	PropLineItemSKU            = "hs_sku"
	PropLineItemName           = "name"
	PropContractName           = "contract_name"
	PropProjectName            = "project_name"
	PropProjectClickUpID       = "clickup_id"
	PropProjectClickUpLink     = "clickup_link"
	PropProjectClickUpStatus   = "clickup_project_status"
)

var (
	dealProperties     = []string{PropDealName, PropDealStatus}
	companyProperties  = []string{PropCompanyName, PropCompanyDescription, PropCompanyTaxID, PropCompanyCSOwner}
	quoteProperties    = []string{PropQuoteStatus}
	lineItemProperties = []string{PropLineItemSKU, PropLineItemName}
	projectProperties  = []string{PropProjectName, PropProjectClickUpID, PropProjectClickUpLink, PropProjectClickUpStatus}
)

// ListDeals returns every deal in the portal, following the cursor to the last page.
func (c *Client) ListDeals(ctx context.Context) ([]models.Deal, error) {
	records, err := c.listAll(ctx, ObjectDeals, dealProperties)
	if err != nil {
		return nil, err
	}

	deals := make([]models.Deal, 0, len(records))
	for i := range records {
		deals = append(deals, toDeal(&records[i]))
	}
	return deals, nil
}

// UpdateDeal patches deal properties.
func (c *Client) UpdateDeal(ctx context.Context, dealID string, properties map[string]string) (*models.Deal, error) {
	rec, err := c.updateRecord(ctx, ObjectDeals, dealID, properties)
	if err != nil {
		return nil, fmt.Errorf("failed to update deal %s: %w", dealID, err)
	}
	deal := toDeal(rec)
	return &deal, nil
}

// GetCompany returns the company or nil when HubSpot has no such record.
func (c *Client) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	rec, err := c.getRecord(ctx, ObjectCompanies, companyID, companyProperties)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company %s: %w", companyID, err)
	}
	return toCompany(rec), nil
}

// UpdateCompany patches company properties and returns the updated record.
func (c *Client) UpdateCompany(ctx context.Context, companyID string, properties map[string]string) (*models.Company, error) {
	if _, err := c.updateRecord(ctx, ObjectCompanies, companyID, properties); err != nil {
		return nil, fmt.Errorf("failed to update company %s: %w", companyID, err)
	}
	// PATCH only echoes the properties it was sent.
	return c.GetCompany(ctx, companyID)
}

// GetQuote returns the quote with its status.
func (c *Client) GetQuote(ctx context.Context, quoteID string) (*models.Quote, error) {
	rec, err := c.getRecord(ctx, ObjectQuotes, quoteID, quoteProperties)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote %s: %w", quoteID, err)
	}
	return &models.Quote{ID: rec.ID, Status: rec.prop(PropQuoteStatus)}, nil
}

// GetLineItem returns a line item with SKU and name.
func (c *Client) GetLineItem(ctx context.Context, lineItemID string) (*models.LineItem, error) {
	rec, err := c.getRecord(ctx, ObjectLineItems, lineItemID, lineItemProperties)
	if err != nil {
		return nil, fmt.Errorf("failed to get line item %s: %w", lineItemID, err)
	}
	return &models.LineItem{
		ID:   rec.ID,
		SKU:  rec.prop(PropLineItemSKU),
		Name: rec.prop(PropLineItemName),
	}, nil
}

// CreateCustomObject creates a record of a custom object type and returns its id.
func (c *Client) CreateCustomObject(ctx context.Context, objectType string, properties map[string]string) (string, error) {
	rec, err := c.createRecord(ctx, objectType, properties)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", objectType, err)
	}
	return rec.ID, nil
}

// UpdateCustomObject patches a custom object record.
func (c *Client) UpdateCustomObject(ctx context.Context, objectType, objectID string, properties map[string]string) error {
	if _, err := c.updateRecord(ctx, objectType, objectID, properties); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", objectType, objectID, err)
	}
	return nil
}

// ListProjects returns every record of the project custom object.
func (c *Client) ListProjects(ctx context.Context, objectType string) ([]models.Project, error) {
	records, err := c.listAll(ctx, objectType, projectProperties)
	if err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(records))
	for i := range records {
		rec := &records[i]
		projects = append(projects, models.Project{
			ID:            rec.ID,
			Name:          rec.prop(PropProjectName),
			ClickUpID:     rec.prop(PropProjectClickUpID),
			ClickUpLink:   rec.prop(PropProjectClickUpLink),
			ClickUpStatus: rec.prop(PropProjectClickUpStatus),
		})
	}
	return projects, nil
}

func toDeal(rec *record) models.Deal {
	return models.Deal{
		ID:     rec.ID,
		Name:   rec.prop(PropDealName),
		Status: rec.prop(PropDealStatus),
	}
}

func toCompany(rec *record) *models.Company {
	return &models.Company{
		ID:          rec.ID,
		Name:        rec.prop(PropCompanyName),
		Description: rec.prop(PropCompanyDescription),
		TaxID:       rec.prop(PropCompanyTaxID),
		CSOwnerID:   rec.prop(PropCompanyCSOwner),
	}
}
