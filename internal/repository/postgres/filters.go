package postgres

import (
	"fmt"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/lib/pq"
)

// rangeClause appends the bounds of dr on column to args and returns the matching SQL
func rangeClause(column string, dr domain.DateRange, args []interface{}) (string, []interface{}) {
	clause := ""
	if !dr.Start.IsZero() {
		args = append(args, dr.Start)
		clause += fmt.Sprintf(" AND %s >= $%d", column, len(args))
	}
	if !dr.End.IsZero() {
		args = append(args, dr.End)
		clause += fmt.Sprintf(" AND %s <= $%d", column, len(args))
	}
	return clause, args
}

// productClause filters column on a product id list, no-op when ids is empty
func productClause(column string, ids []int64, args []interface{}) (string, []interface{}) {
	if len(ids) == 0 {
		return "", args
	}
	args = append(args, pq.Array(ids))
	return fmt.Sprintf(" AND %s = ANY($%d)", column, len(args)), args
}
