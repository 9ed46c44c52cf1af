package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// listQuery appends positional filters to a SELECT. The time filters apply
// to timeCol.
type listQuery struct {
	sb      strings.Builder
	args    []any
	timeCol string
}

func newListQuery(base, timeCol string, args ...any) *listQuery {
	q := &listQuery{args: args, timeCol: timeCol}
	q.sb.WriteString(base)
	return q
}

func (q *listQuery) next(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *listQuery) window(since, until *time.Time) *listQuery {
	if since != nil {
		q.sb.WriteString(" AND " + q.timeCol + " >= " + q.next(*since))
	}
	if until != nil {
		q.sb.WriteString(" AND " + q.timeCol + " <= " + q.next(*until))
	}
	return q
}

// page orders newest first and applies limit and offset.
func (q *listQuery) page(opts domain.ListOpts) (string, []any) {
	q.window(opts.Since, opts.Until)
	q.sb.WriteString(" ORDER BY " + q.timeCol + " DESC")
	if opts.Limit > 0 {
		q.sb.WriteString(" LIMIT " + q.next(opts.Limit))
	}
	if opts.Offset > 0 {
		q.sb.WriteString(" OFFSET " + q.next(opts.Offset))
	}
	return q.sb.String(), q.args
}
