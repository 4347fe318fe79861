package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCounterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:counter_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS order_counters (
  date_key TEXT PRIMARY KEY,
  seq INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNextYieldsZeroPaddedDailySequence(t *testing.T) {
	db := setupCounterTestDB(t)
	gen, err := NewNumberGenerator(db)
	require.NoError(t, err)
	gen.now = fixedClock(time.Date(2025, 9, 1, 10, 0, 0, 0, time.Local))

	first, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20250901001", first)

	second, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20250901002", second)

	third, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20250901003", third)
}

func TestNextSequenceRestartsPerDate(t *testing.T) {
	db := setupCounterTestDB(t)
	gen, err := NewNumberGenerator(db)
	require.NoError(t, err)

	gen.now = fixedClock(time.Date(2025, 9, 1, 23, 59, 0, 0, time.Local))
	_, err = gen.Next(context.Background())
	require.NoError(t, err)

	gen.now = fixedClock(time.Date(2025, 9, 2, 0, 1, 0, 0, time.Local))
	next, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20250902001", next)
}

func TestNextSurvivesGeneratorRestart(t *testing.T) {
	db := setupCounterTestDB(t)
	clock := fixedClock(time.Date(2025, 9, 1, 8, 0, 0, 0, time.Local))

	gen, err := NewNumberGenerator(db)
	require.NoError(t, err)
	gen.now = clock
	_, err = gen.Next(context.Background())
	require.NoError(t, err)

	// a fresh generator over the same store continues the sequence
	reborn, err := NewNumberGenerator(db)
	require.NoError(t, err)
	reborn.now = clock
	next, err := reborn.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20250901002", next)
}
