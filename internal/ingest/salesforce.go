// Package ingest imports Salesforce opportunities into the CRM store.
// Records are keyed deterministically: the row UUID is derived from the
// Salesforce ID, so repeated imports upsert instead of duplicating.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/db"
	sfpkg "github.com/sells-group/revenue-intel/pkg/salesforce"
)

// Deterministic UUID namespaces, one per table.
var (
	dealNamespace    = uuid.NewSHA1(uuid.NameSpaceOID, []byte("crm.deals"))
	accountNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("crm.accounts"))
)

// DealID derives the stable row UUID for a Salesforce opportunity ID.
func DealID(sfID string) uuid.UUID { return uuid.NewSHA1(dealNamespace, []byte(sfID)) }

// AccountID derives the stable row UUID for a Salesforce account ID.
func AccountID(sfID string) uuid.UUID { return uuid.NewSHA1(accountNamespace, []byte(sfID)) }

// Result counts what one import run wrote.
type Result struct {
	Fetched  int   `json:"fetched"`
	Accounts int64 `json:"accounts"`
	Deals    int64 `json:"deals"`
}

// ImportOpportunities fetches opportunities modified since the given time and
// upserts them, with their parent accounts, into the store.
func ImportOpportunities(ctx context.Context, sf sfpkg.Client, pool db.Pool, since time.Time) (*Result, error) {
	opps, err := sfpkg.FetchOpportunitiesSince(ctx, sf, since)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: fetch opportunities")
	}
	res := &Result{Fetched: len(opps)}
	if len(opps) == 0 {
		zap.L().Info("ingest: no opportunities to import")
		return res, nil
	}

	accountRows := accountRows(opps)
	if len(accountRows) > 0 {
		n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Table:        "crm.accounts",
			Columns:      []string{"id", "sf_id", "name", "created_at"},
			ConflictKeys: []string{"sf_id"},
			UpdateCols:   []string{"name", "created_at"},
		}, accountRows)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: upsert accounts")
		}
		res.Accounts = n
	}

	dealRows, err := dealRows(opps)
	if err != nil {
		return nil, err
	}
	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table: "crm.deals",
		Columns: []string{"id", "sf_id", "name", "stage", "amount", "owner_id",
			"account_id", "created_at", "updated_at", "last_activity_at", "close_date", "raw"},
		ConflictKeys: []string{"sf_id"},
		UpdateCols: []string{"name", "stage", "amount", "owner_id", "account_id",
			"updated_at", "last_activity_at", "close_date", "raw"},
	}, dealRows)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: upsert deals")
	}
	res.Deals = n

	zap.L().Info("ingest: import complete",
		zap.Int("fetched", res.Fetched),
		zap.Int64("accounts", res.Accounts),
		zap.Int64("deals", res.Deals),
	)
	return res, nil
}

// accountRows builds the distinct parent-account rows.
func accountRows(opps []sfpkg.Opportunity) [][]any {
	seen := make(map[string]bool)
	var rows [][]any
	for _, o := range opps {
		if o.Account == nil || o.Account.ID == "" || seen[o.Account.ID] {
			continue
		}
		seen[o.Account.ID] = true
		rows = append(rows, []any{
			AccountID(o.Account.ID),
			o.Account.ID,
			o.Account.Name,
			parseSFTime(o.Account.CreatedDate),
		})
	}
	return rows
}

func dealRows(opps []sfpkg.Opportunity) ([][]any, error) {
	rows := make([][]any, 0, len(opps))
	for _, o := range opps {
		raw, err := json.Marshal(o)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: marshal opportunity %s", o.ID)
		}

		var accountID *uuid.UUID
		if o.AccountID != "" {
			id := AccountID(o.AccountID)
			accountID = &id
		}
		var ownerID *string
		if o.OwnerID != "" {
			ownerID = &o.OwnerID
		}

		rows = append(rows, []any{
			DealID(o.ID),
			o.ID,
			o.Name,
			o.StageName,
			o.Amount,
			ownerID,
			accountID,
			parseSFTime(o.CreatedDate),
			parseSFTime(o.LastModifiedDate),
			parseSFTime(o.LastActivityDate),
			parseSFTime(o.CloseDate),
			raw,
		})
	}
	return rows, nil
}

// sfDatetimeLayout matches the REST API's +0000 offsets, which RFC3339 rejects.
const sfDatetimeLayout = "2006-01-02T15:04:05.000-0700"

// parseSFTime parses a Salesforce date or datetime string, nil when absent or
// unparseable.
func parseSFTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(sfDatetimeLayout, s); err == nil {
		return &t
	}
	if t, ok := crm.ParseLegacyTime(s); ok {
		return &t
	}
	return nil
}
