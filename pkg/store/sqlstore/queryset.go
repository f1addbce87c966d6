package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/goliatone/go-material/pkg/model"
)

type condition struct {
	column string
	value  any
}

// QuerySet builds SELECT statements ordered by primary key.
type QuerySet struct {
	manager *Manager
	where   []condition
}

var _ model.QuerySet = (*QuerySet)(nil)

// Filter adds an equality condition.
func (q *QuerySet) Filter(field string, value any) *QuerySet {
	where := append(append([]condition{}, q.where...), condition{column: field, value: value})
	return &QuerySet{manager: q.manager, where: where}
}

func (q *QuerySet) whereClause() (string, []any, error) {
	if len(q.where) == 0 {
		return "", nil, nil
	}
	parts := make([]string, len(q.where))
	args := make([]any, len(q.where))
	for i, cond := range q.where {
		if !q.manager.hasColumn(cond.column) {
			return "", nil, fmt.Errorf("sqlstore: unknown column %q on %s", cond.column, q.manager.table)
		}
		parts[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(cond.column), i+1)
		args[i] = cond.value
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (q *QuerySet) Count(ctx context.Context) (int, error) {
	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", pq.QuoteIdentifier(q.manager.table), where)
	q.manager.log(query, args...)
	var n int
	if err := q.manager.store.ext(ctx).QueryRowxContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: count %s: %w", q.manager.table, err)
	}
	return n, nil
}

func (q *QuerySet) Records(ctx context.Context) ([]model.Record, error) {
	return q.Slice(ctx, 0, -1)
}

// Slice applies LIMIT/OFFSET. A negative limit selects every row from offset.
func (q *QuerySet) Slice(ctx context.Context, offset, limit int) ([]model.Record, error) {
	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	m := q.manager
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", m.selectList(), pq.QuoteIdentifier(m.table), where, pq.QuoteIdentifier("id"))
	if limit >= 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	m.log(query, args...)

	rows, err := m.store.ext(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: select %s: %w", m.table, err)
	}
	defer rows.Close()

	out := []model.Record{}
	for rows.Next() {
		rec := m.factory()
		if err := rows.StructScan(rec); err != nil {
			return nil, fmt.Errorf("sqlstore: scan %s: %w", m.table, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: rows %s: %w", m.table, err)
	}
	return out, nil
}

func joinIdents(cols []string) string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}

func join(parts []string) string {
	return strings.Join(parts, ", ")
}

func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}
