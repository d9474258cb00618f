package database_test

import (
	"ShrtLink-Backend/internal/database"
	"ShrtLink-Backend/internal/database/dbtest"
	"ShrtLink-Backend/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := dbtest.SQLite(t)

	for _, model := range database.Models() {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&domain.Click{}, "idx_clicks_link_ip"))
	assert.True(t, db.Migrator().HasIndex(&domain.Click{}, "idx_clicks_link_time"))
}

func TestSeedDataIsIdempotent(t *testing.T) {
	db := dbtest.SQLite(t)
	log := zap.NewNop()

	require.NoError(t, database.SeedData(db, log))
	require.NoError(t, database.SeedData(db, log))

	var plans []domain.SubscriptionType
	require.NoError(t, db.Order("id").Find(&plans).Error)
	require.Len(t, plans, 3)

	assert.Equal(t, "free", plans[0].Name)
	require.NotNil(t, plans[0].MaxLinks)
	assert.Equal(t, 10, *plans[0].MaxLinks)
	assert.True(t, plans[2].IsUnlimited())
}
