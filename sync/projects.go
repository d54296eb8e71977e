// ABOUTME: ClickUp feedback operations on HubSpot projects and deals
// ABOUTME: Writes ClickUp ids, links, and statuses back onto project records and marks deals as added
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/dealbridge/hubspot"
	"github.com/harperreed/dealbridge/models"
)

// ProjectUpdate carries ClickUp fields to write onto a HubSpot project. Empty fields are left
// unchanged.
type ProjectUpdate struct {
	HubSpotID     string `json:"hubspot_id"`
	ClickUpID     string `json:"clickup_id,omitempty"`
	ClickUpLink   string `json:"clickup_link,omitempty"`
	ClickUpStatus string `json:"clickup_status,omitempty"`
}

func (u ProjectUpdate) properties() map[string]string {
	props := make(map[string]string)
	if u.ClickUpID != "" {
		props[hubspot.PropProjectClickUpID] = u.ClickUpID
	}
	if u.ClickUpLink != "" {
		props[hubspot.PropProjectClickUpLink] = u.ClickUpLink
	}
	if u.ClickUpStatus != "" {
		props[hubspot.PropProjectClickUpStatus] = u.ClickUpStatus
	}
	return props
}

// UpdateProject writes the ClickUp fields of u onto the HubSpot project.
func (p *Processor) UpdateProject(ctx context.Context, u ProjectUpdate) error {
	if u.HubSpotID == "" {
		return errors.New("hubspot project id is required")
	}
	props := u.properties()
	if len(props) == 0 {
		return errors.New("nothing to update")
	}

	if err := p.crm.UpdateCustomObject(ctx, p.opts.ProjectObjectType, u.HubSpotID, props); err != nil {
		return fmt.Errorf("failed to update project %s: %w", u.HubSpotID, err)
	}
	p.log.Info().Str("project_id", u.HubSpotID).Interface("properties", props).Msg("project updated")
	return nil
}

// SetClickUpStatus sets the ClickUp status on every project linked to clickUpID and returns
// how many were updated.
func (p *Processor) SetClickUpStatus(ctx context.Context, clickUpID, status string) (int, error) {
	if clickUpID == "" {
		return 0, errors.New("clickup id is required")
	}

	projects, err := p.crm.ListProjects(ctx, p.opts.ProjectObjectType)
	if err != nil {
		return 0, fmt.Errorf("failed to list projects: %w", err)
	}

	updated := 0
	for _, project := range projects {
		if project.ClickUpID != clickUpID {
			continue
		}
		if err := p.crm.UpdateCustomObject(ctx, p.opts.ProjectObjectType, project.ID, map[string]string{
			hubspot.PropProjectClickUpStatus: status,
		}); err != nil {
			return updated, fmt.Errorf("failed to set status on project %s: %w", project.ID, err)
		}
		updated++
	}

	p.log.Info().
		Str("clickup_id", clickUpID).
		Str("status", status).
		Int("updated", updated).
		Msg("ClickUp status applied")
	return updated, nil
}

// MarkDealAdded flags the deal as handed over to ClickUp so later runs ignore it.
func (p *Processor) MarkDealAdded(ctx context.Context, dealID string) error {
	if _, err := p.crm.UpdateDeal(ctx, dealID, map[string]string{
		hubspot.PropDealStatus: models.DealStatusAddedClickUp,
	}); err != nil {
		return fmt.Errorf("failed to mark deal %s as added: %w", dealID, err)
	}
	p.log.Info().Str("deal_id", dealID).Msg("deal marked as added to ClickUp")
	return nil
}
