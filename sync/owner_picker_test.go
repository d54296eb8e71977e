// ABOUTME: Tests for the CS owner heuristic
// ABOUTME: Covers single SKU, random, and most-specialised branches plus HubSpot owner resolution
package sync

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/harperreed/dealbridge/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRoster = []models.CSOwner{
	{Email: "ana@example.com", Products: []string{"CRM", "ERP"}},
	{Email: "bea@example.com", Products: []string{"ERP", "BI", "WEB"}},
	{Email: "carl@example.com", Products: []string{"WEB"}},
}

func TestPickCSOwnerEmail(t *testing.T) {
	tests := []struct {
		name   string
		skus   []string
		roster []models.CSOwner
		want   string
		ok     bool
	}{
		{name: "empty roster", skus: []string{"CRM"}, roster: nil, ok: false},
		{name: "single sku first match", skus: []string{"ERP"}, roster: testRoster, want: "ana@example.com", ok: true},
		{name: "single sku later owner", skus: []string{"WEB"}, roster: testRoster, want: "bea@example.com", ok: true},
		{name: "single sku no match", skus: []string{"HR"}, roster: testRoster, ok: false},
		{name: "three skus most matches", skus: []string{"ERP", "BI", "WEB"}, roster: testRoster, want: "bea@example.com", ok: true},
		{name: "three skus tie goes to first seen", skus: []string{"CRM", "WEB", "HR"}, roster: testRoster, want: "ana@example.com", ok: true},
		{name: "three skus first seen via later sku", skus: []string{"HR", "WEB", "CRM"}, roster: testRoster, want: "bea@example.com", ok: true},
		{name: "three skus nothing matches", skus: []string{"HR", "OPS", "LEGAL"}, roster: testRoster, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickCSOwnerEmail(tt.skus, tt.roster, nil)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPickCSOwnerEmailEvenCountIsRandomRosterMember(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	emails := map[string]bool{}
	for _, owner := range testRoster {
		emails[owner.Email] = true
	}

	for _, skus := range [][]string{nil, {"CRM", "ERP"}, {"HR", "OPS", "LEGAL", "BI"}} {
		got, ok := PickCSOwnerEmail(skus, testRoster, rng)
		require.True(t, ok)
		assert.True(t, emails[got], "unexpected owner %q", got)
	}
}

func TestPickCSOwnerEmailEvenCountIsDeterministicForSeed(t *testing.T) {
	skus := []string{"CRM", "ERP"}

	first, _ := PickCSOwnerEmail(skus, testRoster, rand.New(rand.NewPCG(7, 7)))
	second, _ := PickCSOwnerEmail(skus, testRoster, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, first, second)
}

func TestPickCSOwnerResolvesOwnerID(t *testing.T) {
	crm := newFakeCRM()
	crm.owners["ana@example.com"] = &models.Owner{ID: "42", Email: "ana@example.com"}

	p := NewProcessor(crm, Options{Roster: testRoster})

	id, ok, err := p.PickCSOwner(context.Background(), []models.LineItem{{ID: "1", SKU: "CRM"}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", id)
}

func TestPickCSOwnerUnknownOwner(t *testing.T) {
	crm := newFakeCRM()
	p := NewProcessor(crm, Options{Roster: testRoster})

	id, ok, err := p.PickCSOwner(context.Background(), []models.LineItem{{ID: "1", SKU: "CRM"}})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}
