package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/arb?sslmode=disable",
		DSN(ClientConfig{Host: "db", User: "u", Password: "p", Database: "arb"}))
	assert.Equal(t, "postgres://u:p@db:6432/arb?sslmode=require",
		DSN(ClientConfig{Host: "db", Port: 6432, User: "u", Password: "p", Database: "arb", SSLMode: "require"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])

	data, err := migrationsFS.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	for _, table := range []string{"market_pairs", "opportunities", "audit_log"} {
		assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestListQuery(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	query, args := newListQuery("SELECT id FROM opportunities WHERE pair_key = $1", "detected_at", "k").
		page(domain.ListOpts{Since: &since, Limit: 10, Offset: 20})
	assert.Equal(t,
		"SELECT id FROM opportunities WHERE pair_key = $1 AND detected_at >= $2 ORDER BY detected_at DESC LIMIT $3 OFFSET $4",
		query)
	assert.Equal(t, []any{"k", since, 10, 20}, args)

	query, args = newListQuery("SELECT id FROM audit_log WHERE 1=1", "created_at").page(domain.ListOpts{})
	assert.Equal(t, "SELECT id FROM audit_log WHERE 1=1 ORDER BY created_at DESC", query)
	assert.Empty(t, args)
}
