// ABOUTME: In-memory CRM used by pipeline tests
// ABOUTME: Stores deals, companies, quotes, line items, owners, custom objects, and associations
package sync

import (
	"context"
	"fmt"
	"maps"

	"github.com/harperreed/dealbridge/hubspot"
	"github.com/harperreed/dealbridge/models"
)

type association struct {
	FromType, FromID, ToType, ToID string
}

type fakeCRM struct {
	deals        []models.Deal
	dealProps    map[string]map[string]string
	companies    map[string]*models.Company
	quotes       map[string]*models.Quote
	lineItems    map[string]*models.LineItem
	owners       map[string]*models.Owner
	assoc        map[string][]string
	objects      map[string]map[string]map[string]string
	created      []association
	companyPatch []map[string]string
	nextID       int

	// failOn makes the named method return an error.
	failOn string
	// emptyIDFor makes CreateCustomObject return no id for that object type.
	emptyIDFor string
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		dealProps: map[string]map[string]string{},
		companies: map[string]*models.Company{},
		quotes:    map[string]*models.Quote{},
		lineItems: map[string]*models.LineItem{},
		owners:    map[string]*models.Owner{},
		assoc:     map[string][]string{},
		objects:   map[string]map[string]map[string]string{},
		nextID:    1000,
	}
}

func assocKey(fromType, fromID, toType string) string {
	return fromType + "/" + fromID + "/" + toType
}

func (f *fakeCRM) fail(method string) error {
	if f.failOn == method {
		return fmt.Errorf("%s: boom", method)
	}
	return nil
}

func (f *fakeCRM) ListDeals(ctx context.Context) ([]models.Deal, error) {
	if err := f.fail("ListDeals"); err != nil {
		return nil, err
	}
	return f.deals, nil
}

func (f *fakeCRM) UpdateDeal(ctx context.Context, dealID string, properties map[string]string) (*models.Deal, error) {
	if err := f.fail("UpdateDeal"); err != nil {
		return nil, err
	}
	if f.dealProps[dealID] == nil {
		f.dealProps[dealID] = map[string]string{}
	}
	maps.Copy(f.dealProps[dealID], properties)
	return &models.Deal{ID: dealID}, nil
}

func (f *fakeCRM) GetDealAssociations(ctx context.Context, dealID, toType string) ([]string, error) {
	return f.assoc[assocKey(hubspot.ObjectDeals, dealID, toType)], nil
}

func (f *fakeCRM) GetQuoteAssociations(ctx context.Context, quoteID, toType string) ([]string, error) {
	return f.assoc[assocKey(hubspot.ObjectQuotes, quoteID, toType)], nil
}

func (f *fakeCRM) CreateDealAssociation(ctx context.Context, dealID, toType, toID string) error {
	return f.CreateAssociation(ctx, hubspot.ObjectDeals, dealID, toType, toID)
}

func (f *fakeCRM) CreateCompanyAssociation(ctx context.Context, companyID, toType, toID string) error {
	return f.CreateAssociation(ctx, hubspot.ObjectCompanies, companyID, toType, toID)
}

func (f *fakeCRM) CreateAssociation(ctx context.Context, fromType, fromID, toType, toID string) error {
	if err := f.fail("CreateAssociation"); err != nil {
		return err
	}
	f.created = append(f.created, association{fromType, fromID, toType, toID})
	return nil
}

func (f *fakeCRM) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	if err := f.fail("GetCompany"); err != nil {
		return nil, err
	}
	c, ok := f.companies[companyID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCRM) UpdateCompany(ctx context.Context, companyID string, properties map[string]string) (*models.Company, error) {
	f.companyPatch = append(f.companyPatch, properties)
	c, ok := f.companies[companyID]
	if !ok {
		return nil, nil
	}
	if owner, ok := properties[hubspot.PropCompanyCSOwner]; ok {
		c.CSOwnerID = owner
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCRM) GetQuote(ctx context.Context, quoteID string) (*models.Quote, error) {
	q, ok := f.quotes[quoteID]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", quoteID, hubspot.ErrNotFound)
	}
	return q, nil
}

func (f *fakeCRM) GetLineItem(ctx context.Context, lineItemID string) (*models.LineItem, error) {
	li, ok := f.lineItems[lineItemID]
	if !ok {
		return nil, fmt.Errorf("line item %s: %w", lineItemID, hubspot.ErrNotFound)
	}
	return li, nil
}

func (f *fakeCRM) FindOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	return f.owners[email], nil
}

func (f *fakeCRM) GetOwner(ctx context.Context, ownerID string) (*models.Owner, error) {
	for _, o := range f.owners {
		if o.ID == ownerID {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeCRM) CreateCustomObject(ctx context.Context, objectType string, properties map[string]string) (string, error) {
	if err := f.fail("CreateCustomObject"); err != nil {
		return "", err
	}
	if objectType == f.emptyIDFor {
		return "", nil
	}
	f.nextID++
	id := fmt.Sprintf("%d", f.nextID)
	if f.objects[objectType] == nil {
		f.objects[objectType] = map[string]map[string]string{}
	}
	f.objects[objectType][id] = maps.Clone(properties)
	return id, nil
}

func (f *fakeCRM) UpdateCustomObject(ctx context.Context, objectType, objectID string, properties map[string]string) error {
	if err := f.fail("UpdateCustomObject"); err != nil {
		return err
	}
	if f.objects[objectType] == nil || f.objects[objectType][objectID] == nil {
		return fmt.Errorf("%s %s: %w", objectType, objectID, hubspot.ErrNotFound)
	}
	maps.Copy(f.objects[objectType][objectID], properties)
	return nil
}

func (f *fakeCRM) ListProjects(ctx context.Context, objectType string) ([]models.Project, error) {
	var projects []models.Project
	for id, props := range f.objects[objectType] {
		projects = append(projects, models.Project{
			ID:            id,
			Name:          props[hubspot.PropProjectName],
			ClickUpID:     props[hubspot.PropProjectClickUpID],
			ClickUpLink:   props[hubspot.PropProjectClickUpLink],
			ClickUpStatus: props[hubspot.PropProjectClickUpStatus],
		})
	}
	return projects, nil
}

// readyDeal seeds a deal that passes every validation step.
func (f *fakeCRM) readyDeal(dealID, name, companyID, quoteID string, items ...models.LineItem) {
	f.deals = append(f.deals, models.Deal{ID: dealID, Name: name, Status: models.DealStatusReady})
	f.companies[companyID] = &models.Company{ID: companyID, Name: name + " SL", Description: "client", TaxID: "B" + companyID}
	f.quotes[quoteID] = &models.Quote{ID: quoteID, Status: "APPROVED"}
	f.assoc[assocKey(hubspot.ObjectDeals, dealID, hubspot.ObjectCompanies)] = []string{companyID}
	f.assoc[assocKey(hubspot.ObjectDeals, dealID, hubspot.ObjectQuotes)] = []string{quoteID}

	var ids []string
	for _, item := range items {
		li := item
		f.lineItems[li.ID] = &li
		ids = append(ids, li.ID)
	}
	f.assoc[assocKey(hubspot.ObjectQuotes, quoteID, hubspot.ObjectLineItems)] = ids
}
