package datasource

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// costPattern extracts the total planner cost from the first line of
// EXPLAIN output: "... (cost=<startup>..<total> rows=... width=...)".
var costPattern = regexp.MustCompile(`cost=\d+\.\d+\.\.(\d+\.\d+) `)

// Tables lists table names visible in the data source's schemas,
// distinct and ordered by first appearance. Schemas bind as placeholder
// arguments in the adapter's style. It goes through the general
// RunStatement path, so it is cached like any other query.
func (ds *DataSource) Tables(ctx context.Context) ([]string, error) {
	schemas := ds.Schemas()
	if len(schemas) == 0 {
		return nil, fmt.Errorf("data source %s: no schemas resolved", ds.id)
	}
	if ds.adapter.Placeholder == nil {
		return nil, &ConfigError{DataSource: ds.id, Reason: "no connection established"}
	}

	placeholders := make([]string, len(schemas))
	args := make([]any, len(schemas))
	for i, s := range schemas {
		placeholders[i] = ds.adapter.Placeholder(i + 1)
		args[i] = s
	}
	statement := fmt.Sprintf(
		"SELECT table_name FROM information_schema.columns WHERE table_schema IN (%s)",
		strings.Join(placeholders, ", "),
	)

	res, err := ds.RunStatement(ctx, statement, RunOptions{Args: args})
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, errors.New(res.Error)
	}

	seen := make(map[string]bool)
	var tables []string
	for _, row := range res.Rows {
		if len(row) == 0 {
			continue
		}
		name := fmt.Sprint(row[0])
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// Cost estimates a statement's planner cost via EXPLAIN. Only Postgres
// and Redshift report costs; every other engine returns (0, false)
// without touching the connection. Estimation is best-effort: planning
// failures also return (0, false).
func (ds *DataSource) Cost(ctx context.Context, statement string) (float64, bool) {
	if !ds.adapter.SupportsCost() {
		return 0, false
	}

	res, err := ds.RunStatement(ctx, "EXPLAIN "+statement, RunOptions{})
	if err != nil || res.Error != "" || len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0, false
	}

	match := costPattern.FindStringSubmatch(fmt.Sprint(res.Rows[0][0]))
	if match == nil {
		return 0, false
	}
	cost, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return cost, true
}
