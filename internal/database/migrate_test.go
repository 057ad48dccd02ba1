package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigratorListsEmbeddedMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p, err := newMigrator(db)
	require.NoError(t, err)
	sources := p.ListSources()
	require.Len(t, sources, 1)
	assert.Equal(t, int64(1), sources[0].Version)
}

func TestSchemaMigrationCoversEveryTable(t *testing.T) {
	b, err := fs.ReadFile(migrations, "migrations/00001_schema.sql")
	require.NoError(t, err)
	schema := string(b)

	up, down, found := strings.Cut(schema, "-- +goose Down")
	require.True(t, found)
	assert.True(t, strings.HasPrefix(up, "-- +goose Up"))
	for _, table := range []string{
		"ticket_types", "users", "admins", "affiliates", "orders",
		"order_items", "affiliate_commissions", "newsletter_subscribers",
	} {
		assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS "+table+" (")
		assert.Contains(t, down, "DROP TABLE IF EXISTS "+table+";")
	}
}
