package salesforce

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	queryFn func(ctx context.Context, soql string, out any) error
}

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	return m.queryFn(ctx, soql, out)
}

func TestFetchOpportunitiesSince(t *testing.T) {
	t.Run("fetches everything for a zero since", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, soql string, out any) error {
				assert.Contains(t, soql, "SELECT Id, Name, StageName")
				assert.Contains(t, soql, "FROM Opportunity")
				assert.NotContains(t, soql, "WHERE")

				opps := out.(*[]Opportunity)
				*opps = []Opportunity{{ID: "006xx", Name: "Big Deal"}}
				return nil
			},
		}

		opps, err := FetchOpportunitiesSince(context.Background(), mock, time.Time{})
		require.NoError(t, err)
		require.Len(t, opps, 1)
		assert.Equal(t, "006xx", opps[0].ID)
	})

	t.Run("filters by unquoted datetime literal", func(t *testing.T) {
		since := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
		mock := &mockClient{
			queryFn: func(_ context.Context, soql string, _ any) error {
				assert.Contains(t, soql, "WHERE LastModifiedDate >= 2025-03-14T09:30:00Z")
				assert.NotContains(t, soql, "'2025-03-14")
				return nil
			},
		}

		_, err := FetchOpportunitiesSince(context.Background(), mock, since)
		require.NoError(t, err)
	})

	t.Run("returns error on query failure", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, _ string, _ any) error {
				return errors.New("connection refused")
			},
		}

		_, err := FetchOpportunitiesSince(context.Background(), mock, time.Time{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "fetch opportunities")
	})
}
