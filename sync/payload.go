// ABOUTME: ClickUp client payload construction and HubSpot naming helpers
// ABOUTME: Builds product lists, project names, company links, and the hand-off payload
package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/dealbridge/models"
)

// HubSpotCompanyLink returns the HubSpot UI URL of a company.
func HubSpotCompanyLink(portalID, companyID string) string {
	return fmt.Sprintf("https://app.hubspot.com/contacts/%s/company/%s", portalID, companyID)
}

// BuildProductsList renders line items as a single line, e.g. "CRM-01 (CRM Suite); ERP-02".
func BuildProductsList(items []models.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch {
		case item.SKU != "" && item.Name != "":
			parts = append(parts, fmt.Sprintf("%s (%s)", item.SKU, item.Name))
		case item.SKU != "":
			parts = append(parts, item.SKU)
		case item.Name != "":
			parts = append(parts, item.Name)
		}
	}
	return strings.Join(parts, "; ")
}

// BuildProjectName names the HubSpot project created for one line item.
func BuildProjectName(sku, dealName string) string {
	return fmt.Sprintf("%s - %s", sku, dealName)
}

// BuildContractName names the HubSpot contract created for a deal.
func BuildContractName(dealName string) string {
	return "Contrato " + dealName
}

// BuildClickUpPayload assembles the payload for a processed deal. The CS owner email is
// empty when the company has no owner or the owner no longer exists.
func (p *Processor) BuildClickUpPayload(ctx context.Context, company *models.Company, products []models.ClickUpProduct, dealID string) (*models.ClickUpPayload, error) {
	var ownerEmail string
	if company.HasCSOwner() {
		owner, err := p.crm.GetOwner(ctx, company.CSOwnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load CS owner %s: %w", company.CSOwnerID, err)
		}
		if owner != nil {
			ownerEmail = owner.Email
		}
	}

	if products == nil {
		products = []models.ClickUpProduct{}
	}

	return &models.ClickUpPayload{
		Name:             company.Name,
		Description:      company.Description,
		TaxID:            company.TaxID,
		CSOwner:          ownerEmail,
		HubSpotCompanyID: company.ID,
		HubSpotDealID:    dealID,
		Products:         products,
		CustomFields: []models.CustomField{
			{Name: models.FieldHubSpotClientID, Value: company.ID},
			{Name: models.FieldHubSpotLink, Value: HubSpotCompanyLink(p.opts.PortalID, company.ID)},
		},
	}, nil
}
