package postgres

import (
	"testing"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRangeClause(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	clause, args := rangeClause("d", domain.DateRange{Start: start, End: end}, []interface{}{int64(3)})
	assert.Equal(t, " AND d >= $2 AND d <= $3", clause)
	assert.Len(t, args, 3)

	clause, args = rangeClause("d", domain.DateRange{End: end}, nil)
	assert.Equal(t, " AND d <= $1", clause)
	assert.Len(t, args, 1)

	clause, args = rangeClause("d", domain.DateRange{}, nil)
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestProductClause(t *testing.T) {
	clause, args := productClause("product_id", []int64{1, 2}, []interface{}{"x"})
	assert.Equal(t, " AND product_id = ANY($2)", clause)
	assert.Len(t, args, 2)

	clause, args = productClause("product_id", nil, nil)
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "optiflow", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=optiflow sslmode=disable", dsn)
}
