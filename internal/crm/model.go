// Package crm provides the deal/account/event storage layer backed by Postgres.
//
// Deals imported from legacy systems carry their original payload in the raw
// jsonb column; temporal fields that arrived as strings live only there until
// the backfill job normalizes them into the typed columns. Readers therefore
// resolve each temporal field from the typed column first and fall back to
// parsing the raw value.
package crm

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Known stage vocabulary for closed deals. Matching is case-sensitive on the
// trimmed stage string.
const (
	StageClosedWon      = "Closed Won"
	StageClosedWonAlias = "Contract Signed / Closed Won"
	StageClosedLost     = "Closed Lost"
)

// Deal is a CRM deal record. Pointer fields are absent when nil.
type Deal struct {
	ID                  uuid.UUID      `json:"id"`
	SFID                string         `json:"sfId,omitempty"`
	Name                string         `json:"name,omitempty"`
	Stage               string         `json:"stage,omitempty"`
	Amount              float64        `json:"amount"`
	OwnerID             *string        `json:"ownerId,omitempty"`
	AccountID           *uuid.UUID     `json:"accountId,omitempty"`
	CreatedAt           *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt           *time.Time     `json:"updatedAt,omitempty"`
	LastActivityAt      *time.Time     `json:"lastActivityAt,omitempty"`
	StageChangedAt      *time.Time     `json:"stageChangedAt,omitempty"`
	CloseDate           *time.Time     `json:"closeDate,omitempty"`
	ForecastedCloseDate *time.Time     `json:"forecastedCloseDate,omitempty"`
	DaysInStage         *int           `json:"daysInStage,omitempty"`
	Raw                 map[string]any `json:"-"`
}

// Account is a CRM account record; only created_at feeds scoring.
type Account struct {
	ID        uuid.UUID  `json:"id"`
	SFID      string     `json:"sfId,omitempty"`
	Name      string     `json:"name,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// DealEvent is a row in the deal history collection.
type DealEvent struct {
	ID         int64     `json:"id"`
	DealID     uuid.UUID `json:"dealId"`
	EventType  string    `json:"eventType"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventStageChanged is the event type recorded when a deal changes stage.
const EventStageChanged = "stage_changed"

// temporal resolves a temporal field: typed column first, then the legacy
// raw payload value under key.
func (d *Deal) temporal(typed *time.Time, key string) *time.Time {
	if typed != nil {
		return typed
	}
	if v, ok := d.Raw[key]; ok {
		if t, ok := ParseLegacyTime(v); ok {
			return &t
		}
	}
	return nil
}

// EffectiveCloseDate returns forecastedCloseDate if present, else closeDate.
func (d *Deal) EffectiveCloseDate() *time.Time {
	if t := d.temporal(d.ForecastedCloseDate, "forecastedCloseDate"); t != nil {
		return t
	}
	return d.temporal(d.CloseDate, "closeDate")
}

// EffectiveLastActivity returns lastActivityAt, else updatedAt, else createdAt.
func (d *Deal) EffectiveLastActivity() *time.Time {
	if t := d.temporal(d.LastActivityAt, "lastActivityAt"); t != nil {
		return t
	}
	if t := d.temporal(d.UpdatedAt, "updatedAt"); t != nil {
		return t
	}
	return d.temporal(d.CreatedAt, "createdAt")
}

// EffectiveCreatedAt returns createdAt from the typed column or raw payload.
func (d *Deal) EffectiveCreatedAt() *time.Time {
	return d.temporal(d.CreatedAt, "createdAt")
}

// IsClosedWon reports whether the trimmed stage names a closed-won deal.
func (d *Deal) IsClosedWon() bool {
	s := strings.TrimSpace(d.Stage)
	return s == StageClosedWon || s == StageClosedWonAlias
}

// IsClosedLost reports whether the trimmed stage names a closed-lost deal.
func (d *Deal) IsClosedLost() bool {
	return strings.TrimSpace(d.Stage) == StageClosedLost
}

// StageOrUnknown returns the stage, or "Unknown" when absent.
func (d *Deal) StageOrUnknown() string {
	if strings.TrimSpace(d.Stage) == "" {
		return "Unknown"
	}
	return d.Stage
}
