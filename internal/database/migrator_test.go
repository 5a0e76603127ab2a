package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"luxegen-backend/internal/database"
)

func TestMigrationNames_Ordered(t *testing.T) {
	names, err := database.MigrationNames()
	require.NoError(t, err)

	assert.Equal(t, []string{"001_init.sql", "002_seed_personas.sql"}, names)
}
