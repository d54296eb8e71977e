// ABOUTME: ClickUp payload outbox stored in Charm KV
// ABOUTME: Payloads are keyed by deal id until the ClickUp side acknowledges them

package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/dealbridge/models"
)

const payloadPrefix = "payload:"

// OutboxEntry is a queued payload and the run that produced it.
type OutboxEntry struct {
	DealID   string                `json:"deal_id"`
	RunID    string                `json:"run_id"`
	QueuedAt time.Time             `json:"queued_at"`
	Payload  models.ClickUpPayload `json:"payload"`
}

func payloadKey(dealID string) []byte {
	return []byte(payloadPrefix + dealID)
}

// PutPayload queues a payload, replacing any earlier payload for the same deal.
func (c *Client) PutPayload(runID string, payload models.ClickUpPayload) error {
	if payload.HubSpotDealID == "" {
		return errors.New("payload has no deal id")
	}

	entry := OutboxEntry{
		DealID:   payload.HubSpotDealID,
		RunID:    runID,
		QueuedAt: time.Now().UTC(),
		Payload:  payload,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := c.Set(payloadKey(entry.DealID), data); err != nil {
		return fmt.Errorf("failed to store payload: %w", err)
	}
	return nil
}

// GetPayload returns the queued payload for a deal, or nil if none is queued.
func (c *Client) GetPayload(dealID string) (*OutboxEntry, error) {
	data, err := c.Get(payloadKey(dealID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payload: %w", err)
	}

	var entry OutboxEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload %s: %w", dealID, err)
	}
	return &entry, nil
}

// ListPayloads returns every queued payload, oldest first.
func (c *Client) ListPayloads() ([]OutboxEntry, error) {
	keys, err := c.KeysWithPrefix([]byte(payloadPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list payload keys: %w", err)
	}

	entries := make([]OutboxEntry, 0, len(keys))
	for _, key := range keys {
		entry, err := c.GetPayload(strings.TrimPrefix(string(key), payloadPrefix))
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].QueuedAt.Before(entries[j].QueuedAt)
	})
	return entries, nil
}

// AckPayload removes a payload once ClickUp has taken it. It reports whether one was queued.
func (c *Client) AckPayload(dealID string) (bool, error) {
	entry, err := c.GetPayload(dealID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	if err := c.Delete(payloadKey(dealID)); err != nil {
		return false, fmt.Errorf("failed to delete payload: %w", err)
	}
	return true, nil
}

// PutReport queues every payload of a run and returns how many were stored.
func (c *Client) PutReport(runID string, payloads []models.ClickUpPayload) (int, error) {
	for i, p := range payloads {
		if err := c.PutPayload(runID, p); err != nil {
			return i, err
		}
	}
	return len(payloads), nil
}
