package sandbox

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
)

// The guard is two-layered: a leading-statement allow-list plus a
// denylist of destructive patterns. Neither replaces proper database
// grants; the workspace connection should still run under a restricted
// role.
var (
	allowedStatements = regexp.MustCompile(`(?i)^\s*(SELECT|INSERT|UPDATE|DELETE|WITH)\b`)

	deniedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bDROP\s+DATABASE\b`),
		regexp.MustCompile(`(?i)\bDROP\s+TABLE\b`),
		regexp.MustCompile(`(?i)\bTRUNCATE\b`),
		// DELETE without a WHERE clause wipes the table
		regexp.MustCompile(`(?i)^\s*DELETE\s+FROM\s+\S+\s*;?\s*$`),
	}
)

// GuardSQL rejects statements the workspace database tool must not
// run. Exported for reuse by request validation.
func GuardSQL(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return dispatcher.Validationf("sql is required")
	}
	if !allowedStatements.MatchString(sql) {
		return dispatcher.Validationf("only SELECT, INSERT, UPDATE, DELETE and WITH statements are allowed")
	}
	for _, pattern := range deniedPatterns {
		if pattern.MatchString(sql) {
			return dispatcher.Validationf("statement matches a blocked destructive pattern")
		}
	}
	return nil
}

// Query executes a guarded SQL statement with positional parameters.
// SELECT-like statements return rows; mutations return the affected
// row count.
func (h *Handler) Query(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	sql, err := call.RequiredString("sql")
	if err != nil {
		return nil, err
	}
	if err := GuardSQL(sql); err != nil {
		return nil, err
	}
	params := call.SliceParam("params")

	trimmed := strings.ToUpper(strings.TrimSpace(sql))
	if strings.HasPrefix(trimmed, "SELECT") || strings.HasPrefix(trimmed, "WITH") {
		var rows []map[string]interface{}
		if err := h.db.WithContext(ctx).Raw(sql, params...).Scan(&rows).Error; err != nil {
			return nil, errors.Wrap(err, "query failed")
		}
		return map[string]interface{}{
			"rows":  rows,
			"count": len(rows),
		}, nil
	}

	res := h.db.WithContext(ctx).Exec(sql, params...)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "statement failed")
	}
	return map[string]interface{}{
		"rowsAffected": res.RowsAffected,
	}, nil
}
