// ABOUTME: Data models for HubSpot records and ClickUp hand-off payloads
// ABOUTME: Defines Deal, Company, Quote, LineItem, Project, Owner, CSOwner, and run ledger structs
package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Deal struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

type Company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TaxID       string `json:"nif_cif,omitempty"`
	CSOwnerID   string `json:"cs_owner_id,omitempty"`
}

// HasCSOwner reports whether the company already has a CS owner assigned in HubSpot.
func (c *Company) HasCSOwner() bool {
	return c.CSOwnerID != ""
}

type Quote struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// IsDraft reports whether the quote has not been published yet.
func (q *Quote) IsDraft() bool {
	return q.Status == QuoteStatusDraft
}

type LineItem struct {
	ID   string `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

type Contract struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ClickUpID     string `json:"clickup_id,omitempty"`
	ClickUpLink   string `json:"clickup_link,omitempty"`
	ClickUpStatus string `json:"clickup_project_status,omitempty"`
}

// Owner is a HubSpot user that can own records.
type Owner struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// CSOwner is a roster entry: a customer success manager and the SKUs they specialise in.
type CSOwner struct {
	Email    string   `json:"email"`
	Products []string `json:"products"`
}

// Handles reports whether the owner specialises in the given SKU.
func (o CSOwner) Handles(sku string) bool {
	return slices.Contains(o.Products, sku)
}

// ClickUpProduct is a HubSpot project created for one line item.
type ClickUpProduct struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`
}

type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ClickUpPayload is the client record handed to the ClickUp integration.
type ClickUpPayload struct {
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	TaxID            string           `json:"nif_cif"`
	CSOwner          string           `json:"cs_owner"`
	HubSpotCompanyID string           `json:"hubspot_company_id"`
	HubSpotDealID    string           `json:"hubspot_deal_id"`
	Products         []ClickUpProduct `json:"products"`
	CustomFields     []CustomField    `json:"custom_fields"`
}

// Deal status values stored in the estado_clickup property.
const (
	DealStatusReady        = "listo"
	DealStatusAddedClickUp = "anadido_a_clickup"
)

const QuoteStatusDraft = "DRAFT"

// ClickUp custom field names.
const (
	FieldHubSpotClientID = "ID Cliente HubSpot"
	FieldHubSpotLink     = "Enlace HubSpot"
)

// Deal outcome constants.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
)

// Skip reasons recorded when a deal cannot be processed.
const (
	SkipNoCompany       = "no_company"
	SkipCompanyNotFound = "company_not_found"
	SkipNoTaxID         = "no_tax_id"
	SkipNoQuote         = "no_quote"
	SkipNoLineItems     = "no_line_items"
	SkipDraftQuote      = "draft_quote"
	SkipNoContract      = "contract_not_created"
	SkipAlreadyQueued   = "already_queued"
)

// Run status constants.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

// Entity types written to the sync log.
const (
	EntityCompany  = "company"
	EntityContract = "contract"
	EntityProject  = "project"
)

// DealOutcome records what a run did with one deal.
type DealOutcome struct {
	DealID     string           `json:"deal_id"`
	DealName   string           `json:"deal_name"`
	Outcome    string           `json:"outcome"`
	Reason     string           `json:"reason,omitempty"`
	CompanyID  string           `json:"company_id,omitempty"`
	ContractID string           `json:"contract_id,omitempty"`
	CSOwnerID  string           `json:"cs_owner_id,omitempty"`
	Projects   []ClickUpProduct `json:"projects,omitempty"`
}

// Skipped reports whether the deal was left untouched.
func (o *DealOutcome) Skipped() bool {
	return o.Outcome == OutcomeSkipped
}

type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Processed  int        `json:"processed"`
	Skipped    int        `json:"skipped"`
}

type RunDeal struct {
	RunID      string    `json:"run_id"`
	DealID     string    `json:"deal_id"`
	DealName   string    `json:"deal_name"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	CompanyID  string    `json:"company_id,omitempty"`
	ContractID string    `json:"contract_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SyncLog links a deal to a HubSpot record created or touched for it during a run.
type SyncLog struct {
	ID            uuid.UUID `json:"id"`
	RunID         string    `json:"run_id"`
	SourceService string    `json:"source_service"`
	SourceID      string    `json:"source_id"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	ImportedAt    time.Time `json:"imported_at"`
	Metadata      string    `json:"metadata,omitempty"`
}
