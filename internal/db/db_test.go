package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Where(t *testing.T) {
	var f filter
	assert.Empty(t, f.where())

	f.add("role = $%d", "hr")
	f.add("(requester_id = $%[1]d OR target_id = $%[1]d)", "id")
	f.add("status = $%d", "pending")

	assert.Equal(t, " WHERE role = $1 AND (requester_id = $2 OR target_id = $2) AND status = $3", f.where())
	assert.Equal(t, []any{"hr", "id", "pending"}, f.args)
}

func TestPgError(t *testing.T) {
	unique := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "actors_email_key"}

	got, ok := pgError(fmt.Errorf("insert: %w", unique), codeUniqueViolation)
	require.True(t, ok)
	assert.Equal(t, "actors_email_key", got.ConstraintName)

	_, ok = pgError(unique, codeForeignKeyViolation)
	assert.False(t, ok)

	_, ok = pgError(errors.New("plain"), codeUniqueViolation)
	assert.False(t, ok)
}

func TestMigrations_Embedded(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, "001_init", migrations[0].Version)
	for _, table := range []string{"actors", "mapping_requests", "interviews", "interview_responses", "messages"} {
		assert.True(t, strings.Contains(migrations[0].SQL, "CREATE TABLE IF NOT EXISTS "+table), "missing table %s", table)
	}
	assert.Contains(t, migrations[0].SQL, "mapping_requests_one_pending")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@example.com", normalizeEmail("  Ann@Example.COM "))
}
