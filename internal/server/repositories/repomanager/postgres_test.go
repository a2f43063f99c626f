package repomanager

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/blobgate/internal/server/migrations"
	"github.com/dmitrijs2005/blobgate/internal/server/repositories/identities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepositoryManager_Identities(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewPostgresRepositoryManager()
	repo := m.Identities(db)

	require.NotNil(t, repo)
	assert.IsType(t, &identities.PostgresRepository{}, repo)
}

func TestMigrations_Embedded(t *testing.T) {
	b, err := migrations.Migrations.ReadFile("00001_identities.sql")
	require.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, "-- +goose Up")
	assert.Contains(t, s, "-- +goose Down")
	assert.Contains(t, s, "email         TEXT        NOT NULL UNIQUE")
}
