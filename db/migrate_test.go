package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToMigrateURL(t *testing.T) {
	t.Parallel()

	got, err := convertToMigrateURL("postgres://user:pw@host:5432/dbname?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://user:pw@host:5432/dbname?sslmode=disable", got)

	got, err = convertToMigrateURL("postgresql://host/db")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://host/db", got)
}

func TestConvertToMigrateURL_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	_, err := convertToMigrateURL("mysql://host/db")
	assert.ErrorContains(t, err, "unsupported database URL scheme")
}
