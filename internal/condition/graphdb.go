package condition

import "context"

// GraphDB is the query-only escape collaborator of §1/§9: some conditions
// ask it how many rows a parameterized query returns.
type GraphDB interface {
	CountRows(ctx context.Context, query string, params map[string]interface{}) (int, error)
}
