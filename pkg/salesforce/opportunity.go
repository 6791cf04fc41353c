package salesforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Opportunity represents a Salesforce Opportunity record.
type Opportunity struct {
	ID               string   `json:"Id" salesforce:"Id"`
	Name             string   `json:"Name" salesforce:"Name"`
	StageName        string   `json:"StageName" salesforce:"StageName"`
	Amount           float64  `json:"Amount" salesforce:"Amount"`
	OwnerID          string   `json:"OwnerId" salesforce:"OwnerId"`
	AccountID        string   `json:"AccountId" salesforce:"AccountId"`
	CloseDate        string   `json:"CloseDate" salesforce:"CloseDate"`
	CreatedDate      string   `json:"CreatedDate" salesforce:"CreatedDate"`
	LastModifiedDate string   `json:"LastModifiedDate" salesforce:"LastModifiedDate"`
	LastActivityDate string   `json:"LastActivityDate" salesforce:"LastActivityDate"`
	Account          *Account `json:"Account" salesforce:"Account"`
}

// Account carries the Opportunity's parent account fields.
type Account struct {
	ID          string `json:"Id" salesforce:"Id"`
	Name        string `json:"Name" salesforce:"Name"`
	CreatedDate string `json:"CreatedDate" salesforce:"CreatedDate"`
}

// opportunityFields are the SOQL fields selected for Opportunity queries.
var opportunityFields = []string{
	"Id", "Name", "StageName", "Amount", "OwnerId", "AccountId",
	"CloseDate", "CreatedDate", "LastModifiedDate", "LastActivityDate",
	"Account.Id", "Account.Name", "Account.CreatedDate",
}

// FetchOpportunitiesSince queries Opportunities modified at or after since.
// A zero since fetches everything.
func FetchOpportunitiesSince(ctx context.Context, c Client, since time.Time) ([]Opportunity, error) {
	soql := fmt.Sprintf("SELECT %s FROM Opportunity", strings.Join(opportunityFields, ", "))
	if !since.IsZero() {
		// SOQL datetime literals are unquoted.
		soql += fmt.Sprintf(" WHERE LastModifiedDate >= %s", since.UTC().Format("2006-01-02T15:04:05Z"))
	}
	soql += " ORDER BY LastModifiedDate"

	var opps []Opportunity
	if err := c.Query(ctx, soql, &opps); err != nil {
		return nil, eris.Wrap(err, "sf: fetch opportunities")
	}
	return opps, nil
}
