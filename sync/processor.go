// ABOUTME: Deal processing pipeline from HubSpot deals to ClickUp payloads
// ABOUTME: Validates company, quote, and line items, then creates contracts, projects, and associations
package sync

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/harperreed/dealbridge/hubspot"
	"github.com/harperreed/dealbridge/models"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// CRM is the subset of the HubSpot API the pipeline uses.
type CRM interface {
	ListDeals(ctx context.Context) ([]models.Deal, error)
	UpdateDeal(ctx context.Context, dealID string, properties map[string]string) (*models.Deal, error)
	GetDealAssociations(ctx context.Context, dealID, toType string) ([]string, error)
	GetQuoteAssociations(ctx context.Context, quoteID, toType string) ([]string, error)
	CreateDealAssociation(ctx context.Context, dealID, toType, toID string) error
	CreateCompanyAssociation(ctx context.Context, companyID, toType, toID string) error
	CreateAssociation(ctx context.Context, fromType, fromID, toType, toID string) error
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)
	UpdateCompany(ctx context.Context, companyID string, properties map[string]string) (*models.Company, error)
	GetQuote(ctx context.Context, quoteID string) (*models.Quote, error)
	GetLineItem(ctx context.Context, lineItemID string) (*models.LineItem, error)
	FindOwnerByEmail(ctx context.Context, email string) (*models.Owner, error)
	GetOwner(ctx context.Context, ownerID string) (*models.Owner, error)
	CreateCustomObject(ctx context.Context, objectType string, properties map[string]string) (string, error)
	UpdateCustomObject(ctx context.Context, objectType, objectID string, properties map[string]string) error
	ListProjects(ctx context.Context, objectType string) ([]models.Project, error)
}

var _ CRM = (*hubspot.Client)(nil)

// Recorder receives the lifecycle of a run. Implementations must tolerate being called
// for runs that end in error.
type Recorder interface {
	StartRun(ctx context.Context, runID string) error
	RecordDealOutcome(ctx context.Context, runID string, outcome *models.DealOutcome) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// Options configures a Processor.
type Options struct {
	ContractObjectType string
	ProjectObjectType  string
	PortalID           string
	Roster             []models.CSOwner

	// Rand drives the random owner branch; nil uses the global source.
	Rand     *rand.Rand
	Recorder Recorder
	Logger   zerolog.Logger

	// AlreadyHandled reports whether a ready deal was processed by an earlier run and is
	// waiting for ClickUp. Such deals are skipped so their records are not created twice.
	AlreadyHandled func(ctx context.Context, dealID string) (bool, error)
}

// Processor runs the deal pipeline against a CRM.
type Processor struct {
	crm  CRM
	opts Options
	rng  *rand.Rand
	log  zerolog.Logger
}

// Report is the result of one ProcessDeals run.
type Report struct {
	RunID    string                  `json:"run_id"`
	Payloads []models.ClickUpPayload `json:"payloads"`
	Outcomes []models.DealOutcome    `json:"outcomes"`
}

// Processed counts deals that produced a payload.
func (r *Report) Processed() int {
	return len(r.Payloads)
}

// Skipped counts deals left untouched because a required record was missing.
func (r *Report) Skipped() int {
	n := 0
	for i := range r.Outcomes {
		if r.Outcomes[i].Skipped() {
			n++
		}
	}
	return n
}

// NewProcessor creates a pipeline bound to crm.
func NewProcessor(crm CRM, opts Options) *Processor {
	return &Processor{
		crm:  crm,
		opts: opts,
		rng:  opts.Rand,
		log:  opts.Logger.With().Str("component", "pipeline").Logger(),
	}
}

// NewRunID returns a sortable id for a pipeline run.
func NewRunID() string {
	return ulid.Make().String()
}

// ProcessDeals walks every deal, processes those marked ready, and returns one payload per
// processed deal. Deals missing a required record are skipped. A HubSpot failure stops the
// run; the report built so far is returned with the error.
func (p *Processor) ProcessDeals(ctx context.Context) (*Report, error) {
	report := &Report{RunID: NewRunID(), Payloads: []models.ClickUpPayload{}}
	log := p.log.With().Str("run_id", report.RunID).Logger()

	if p.opts.Recorder != nil {
		if err := p.opts.Recorder.StartRun(ctx, report.RunID); err != nil {
			log.Warn().Err(err).Msg("failed to record run start")
		}
	}

	err := p.processAll(ctx, report, log)
	if err != nil {
		log.Error().Err(err).Msg("error when processing deals")
	}

	if p.opts.Recorder != nil {
		if recErr := p.opts.Recorder.FinishRun(ctx, report.RunID, err); recErr != nil {
			log.Warn().Err(recErr).Msg("failed to record run finish")
		}
	}

	log.Info().
		Int("processed", report.Processed()).
		Int("skipped", report.Skipped()).
		Msg("run finished")

	return report, err
}

func (p *Processor) processAll(ctx context.Context, report *Report, log zerolog.Logger) error {
	deals, err := p.crm.ListDeals(ctx)
	if err != nil {
		return fmt.Errorf("failed to list deals: %w", err)
	}
	log.Info().Int("deals", len(deals)).Msg("deals fetched")

	for _, deal := range deals {
		if err := ctx.Err(); err != nil {
			return err
		}
		if deal.Status != models.DealStatusReady {
			continue
		}

		dealLog := log.With().Str("deal_id", deal.ID).Str("deal_name", deal.Name).Logger()
		dealLog.Info().Str("status", deal.Status).Msg("deal is ready to be processed")

		var outcome *models.DealOutcome
		var payload *models.ClickUpPayload
		handled, err := p.alreadyHandled(ctx, deal.ID)
		if err != nil {
			return fmt.Errorf("deal %s: %w", deal.ID, err)
		}
		if handled {
			dealLog.Info().Msg("deal already waiting for ClickUp, skipping")
			outcome = skipped(deal, models.SkipAlreadyQueued)
		} else {
			outcome, payload, err = p.processDeal(ctx, deal, dealLog)
			if err != nil {
				return fmt.Errorf("deal %s: %w", deal.ID, err)
			}
		}

		report.Outcomes = append(report.Outcomes, *outcome)
		if payload != nil {
			report.Payloads = append(report.Payloads, *payload)
		}

		if p.opts.Recorder != nil {
			if err := p.opts.Recorder.RecordDealOutcome(ctx, report.RunID, outcome); err != nil {
				dealLog.Warn().Err(err).Msg("failed to record deal outcome")
			}
		}
	}

	return nil
}

func (p *Processor) alreadyHandled(ctx context.Context, dealID string) (bool, error) {
	if p.opts.AlreadyHandled == nil {
		return false, nil
	}
	handled, err := p.opts.AlreadyHandled(ctx, dealID)
	if err != nil {
		return false, fmt.Errorf("failed to check earlier runs: %w", err)
	}
	return handled, nil
}

func skipped(deal models.Deal, reason string) *models.DealOutcome {
	return &models.DealOutcome{
		DealID:   deal.ID,
		DealName: deal.Name,
		Outcome:  models.OutcomeSkipped,
		Reason:   reason,
	}
}

// processDeal handles one ready deal. A nil payload with a nil error means the deal was skipped.
func (p *Processor) processDeal(ctx context.Context, deal models.Deal, log zerolog.Logger) (*models.DealOutcome, *models.ClickUpPayload, error) {
	companyIDs, err := p.crm.GetDealAssociations(ctx, deal.ID, hubspot.ObjectCompanies)
	if err != nil {
		return nil, nil, err
	}
	if len(companyIDs) == 0 {
		log.Info().Msg("deal has no company, skipping")
		return skipped(deal, models.SkipNoCompany), nil, nil
	}

	company, err := p.crm.GetCompany(ctx, companyIDs[0])
	if err != nil {
		return nil, nil, err
	}
	if company == nil {
		log.Info().Str("company_id", companyIDs[0]).Msg("company not found, skipping")
		return skipped(deal, models.SkipCompanyNotFound), nil, nil
	}
	log = log.With().Str("company_id", company.ID).Logger()

	if company.TaxID == "" {
		log.Info().Msg("company has no nif_cif, skipping")
		return skipped(deal, models.SkipNoTaxID), nil, nil
	}

	quoteIDs, err := p.crm.GetDealAssociations(ctx, deal.ID, hubspot.ObjectQuotes)
	if err != nil {
		return nil, nil, err
	}
	if len(quoteIDs) == 0 {
		log.Info().Msg("deal has no quotes, skipping")
		return skipped(deal, models.SkipNoQuote), nil, nil
	}
	quoteID := quoteIDs[0]
	log = log.With().Str("quote_id", quoteID).Logger()

	lineItemIDs, err := p.crm.GetQuoteAssociations(ctx, quoteID, hubspot.ObjectLineItems)
	if err != nil {
		return nil, nil, err
	}
	if len(lineItemIDs) == 0 {
		log.Info().Msg("quote has no line items, skipping")
		return skipped(deal, models.SkipNoLineItems), nil, nil
	}

	quote, err := p.crm.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	if quote.IsDraft() {
		log.Info().Msg("quote is DRAFT, skipping")
		return skipped(deal, models.SkipDraftQuote), nil, nil
	}

	items := make([]models.LineItem, 0, len(lineItemIDs))
	for _, id := range lineItemIDs {
		item, err := p.crm.GetLineItem(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, *item)
	}
	log.Info().Strs("skus", lineItemSKUs(items)).Msg("line items loaded")

	if _, err := p.crm.UpdateDeal(ctx, deal.ID, map[string]string{
		hubspot.PropSingleLineProductsList: BuildProductsList(items),
	}); err != nil {
		return nil, nil, err
	}

	company, err = p.assignCSOwner(ctx, company, items, log)
	if err != nil {
		return nil, nil, err
	}
	if company == nil {
		log.Info().Msg("company not found after owner assignment, skipping")
		return skipped(deal, models.SkipCompanyNotFound), nil, nil
	}

	outcome := &models.DealOutcome{
		DealID:    deal.ID,
		DealName:  deal.Name,
		Outcome:   models.OutcomeProcessed,
		CompanyID: company.ID,
		CSOwnerID: company.CSOwnerID,
	}

	contractID, err := p.crm.CreateCustomObject(ctx, p.opts.ContractObjectType, map[string]string{
		hubspot.PropContractName: BuildContractName(deal.Name),
	})
	if err != nil {
		return nil, nil, err
	}
	if contractID == "" {
		log.Warn().Msg("contract not created, skipping")
		return skipped(deal, models.SkipNoContract), nil, nil
	}
	log.Info().Str("contract_id", contractID).Msg("contract created")
	outcome.ContractID = contractID

	if err := p.crm.CreateDealAssociation(ctx, deal.ID, p.opts.ContractObjectType, contractID); err != nil {
		return nil, nil, err
	}
	if err := p.crm.CreateCompanyAssociation(ctx, company.ID, p.opts.ContractObjectType, contractID); err != nil {
		return nil, nil, err
	}

	products := make([]models.ClickUpProduct, 0, len(items))
	for _, item := range items {
		projectID, err := p.crm.CreateCustomObject(ctx, p.opts.ProjectObjectType, map[string]string{
			hubspot.PropProjectName: BuildProjectName(item.SKU, deal.Name),
		})
		if err != nil {
			return nil, nil, err
		}
		if projectID == "" {
			log.Warn().Str("sku", item.SKU).Msg("project not created, skipping line item")
			continue
		}
		log.Info().Str("sku", item.SKU).Str("project_id", projectID).Msg("project created")

		products = append(products, models.ClickUpProduct{ID: projectID, SKU: item.SKU})

		if err := p.crm.CreateCompanyAssociation(ctx, company.ID, p.opts.ProjectObjectType, projectID); err != nil {
			return nil, nil, err
		}
		if err := p.crm.CreateAssociation(ctx, p.opts.ContractObjectType, contractID, p.opts.ProjectObjectType, projectID); err != nil {
			return nil, nil, err
		}
	}
	outcome.Projects = products

	payload, err := p.BuildClickUpPayload(ctx, company, products, deal.ID)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Int("products", len(products)).Msg("ClickUp payload built")

	return outcome, payload, nil
}

// assignCSOwner sets the company's CS owner when it has none. An existing owner is never
// replaced. It returns nil when the company disappeared while being updated.
func (p *Processor) assignCSOwner(ctx context.Context, company *models.Company, items []models.LineItem, log zerolog.Logger) (*models.Company, error) {
	if company.HasCSOwner() {
		log.Info().Str("cs_owner_id", company.CSOwnerID).Msg("company already has a CS owner")
		return company, nil
	}

	ownerID, ok, err := p.PickCSOwner(ctx, items)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn().Msg("company left without CS owner")
		return company, nil
	}

	updated, err := p.crm.UpdateCompany(ctx, company.ID, map[string]string{
		hubspot.PropCompanyCSOwner: ownerID,
	})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		log.Info().Str("cs_owner_id", updated.CSOwnerID).Msg("CS owner assigned")
	}
	return updated, nil
}
