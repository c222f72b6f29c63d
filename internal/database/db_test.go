package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	db, err := Open(Config{DSN: "file:dbtest_default?mode=memory&cache=shared"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, sqlDB.Ping())
}

func TestAutoMigrateAndSeed(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:dbtest_migrate?mode=memory&cache=shared"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, AutoMigrateAndSeed(db))

	var course models.Course
	require.NoError(t, db.Where("code = ?", "ORI-101").First(&course).Error)

	// Seeding twice must not duplicate the demo course.
	require.NoError(t, SeedData(db))
	var count int64
	require.NoError(t, db.Model(&models.Course{}).Where("code = ?", "ORI-101").Count(&count).Error)
	require.EqualValues(t, 1, count)
}
