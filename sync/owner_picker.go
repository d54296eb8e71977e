// ABOUTME: CS owner assignment heuristic based on quote line item SKUs
// ABOUTME: Picks a specialist, a random owner, or the owner with most matching specialities
package sync

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/harperreed/dealbridge/models"
)

// PickCSOwnerEmail chooses a roster email for a set of SKUs:
//   - one SKU: the first owner whose products contain it;
//   - an even number of SKUs: a uniformly random owner;
//   - an odd number greater than one: the owner matching the most SKUs, ties going to
//     the owner counted first (SKUs outer, roster inner).
//
// It returns false when no owner qualifies. A nil rng uses the global source.
func PickCSOwnerEmail(skus []string, roster []models.CSOwner, rng *rand.Rand) (string, bool) {
	if len(roster) == 0 {
		return "", false
	}

	switch {
	case len(skus) == 1:
		for _, owner := range roster {
			if owner.Handles(skus[0]) {
				return owner.Email, true
			}
		}
		return "", false

	case len(skus)%2 == 0:
		var i int
		if rng != nil {
			i = rng.IntN(len(roster))
		} else {
			i = rand.IntN(len(roster))
		}
		return roster[i].Email, true

	default:
		return mostSpecialised(skus, roster)
	}
}

func mostSpecialised(skus []string, roster []models.CSOwner) (string, bool) {
	counts := make(map[string]int)
	var order []string

	for _, sku := range skus {
		for _, owner := range roster {
			if !owner.Handles(sku) {
				continue
			}
			if _, seen := counts[owner.Email]; !seen {
				order = append(order, owner.Email)
			}
			counts[owner.Email]++
		}
	}

	best, bestCount := "", 0
	for _, email := range order {
		if counts[email] > bestCount {
			best, bestCount = email, counts[email]
		}
	}
	return best, bestCount > 0
}

// lineItemSKUs extracts SKUs in line item order.
func lineItemSKUs(items []models.LineItem) []string {
	skus := make([]string, 0, len(items))
	for _, item := range items {
		skus = append(skus, item.SKU)
	}
	return skus
}

// PickCSOwner runs the heuristic over the line items and resolves the chosen email to a
// HubSpot owner id. It returns false when no roster owner qualifies or HubSpot has no
// owner with that email.
func (p *Processor) PickCSOwner(ctx context.Context, items []models.LineItem) (string, bool, error) {
	skus := lineItemSKUs(items)
	p.log.Info().Strs("skus", skus).Msg("picking CS owner")

	email, ok := PickCSOwnerEmail(skus, p.opts.Roster, p.rng)
	if !ok {
		p.log.Warn().Strs("skus", skus).Msg("no CS owner in roster matches line items")
		return "", false, nil
	}

	owner, err := p.crm.FindOwnerByEmail(ctx, email)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve CS owner %s: %w", email, err)
	}
	if owner == nil {
		p.log.Warn().Str("email", email).Msg("CS owner not found in HubSpot")
		return "", false, nil
	}

	p.log.Info().Str("email", email).Str("owner_id", owner.ID).Msg("CS owner picked")
	return owner.ID, true, nil
}
