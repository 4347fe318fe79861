package stock

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeMirror struct {
	mu         sync.Mutex
	refreshed  []uuid.UUID
	refreshErr error
}

func (f *fakeMirror) RefreshProduct(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, id)
	return f.refreshErr
}

func (f *fakeMirror) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refreshed)
}

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ddl := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL DEFAULT 0,
  weight NUMERIC NOT NULL DEFAULT 0,
  image TEXT NOT NULL DEFAULT '',
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newLedger(t *testing.T, db *gorm.DB, mirror *fakeMirror) *Ledger {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ledger, err := NewLedger(db, mirror, nil, logg)
	require.NoError(t, err)
	return ledger
}

func mustSeedProduct(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := db.Exec(
		"INSERT INTO products (id, name, stock) VALUES (?, ?, ?)",
		id.String(), "測試商品", stock,
	).Error
	require.NoError(t, err)
	return id
}

func currentStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var stock int
	require.NoError(t, db.Raw("SELECT stock FROM products WHERE id = ?", id.String()).Scan(&stock).Error)
	return stock
}

func TestReserveDecrementsStock(t *testing.T) {
	db := setupLedgerTestDB(t)
	mirror := &fakeMirror{}
	ledger := newLedger(t, db, mirror)
	id := mustSeedProduct(t, db, 5)

	require.NoError(t, ledger.Reserve(context.Background(), id, 3))
	assert.Equal(t, 2, currentStock(t, db, id))
	assert.Equal(t, 1, mirror.count())
}

func TestReserveSucceedsWhenMirrorRefreshFails(t *testing.T) {
	db := setupLedgerTestDB(t)
	mirror := &fakeMirror{refreshErr: errors.New("mirror unavailable")}
	ledger := newLedger(t, db, mirror)
	id := mustSeedProduct(t, db, 5)

	require.NoError(t, ledger.Reserve(context.Background(), id, 2))
	assert.Equal(t, 3, currentStock(t, db, id))
	assert.Equal(t, 1, mirror.count())
}

func TestReserveInsufficientStockLeavesRowUntouched(t *testing.T) {
	db := setupLedgerTestDB(t)
	mirror := &fakeMirror{}
	ledger := newLedger(t, db, mirror)
	id := mustSeedProduct(t, db, 2)

	err := ledger.Reserve(context.Background(), id, 3)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
	assert.Equal(t, 2, currentStock(t, db, id))
	assert.Zero(t, mirror.count())
}

func TestReserveUnknownProduct(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := newLedger(t, db, &fakeMirror{})

	err := ledger.Reserve(context.Background(), uuid.New(), 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestReserveValidatesQuantity(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := newLedger(t, db, &fakeMirror{})
	id := mustSeedProduct(t, db, 5)

	err := ledger.Reserve(context.Background(), id, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestReleaseIncrementsStock(t *testing.T) {
	db := setupLedgerTestDB(t)
	mirror := &fakeMirror{}
	ledger := newLedger(t, db, mirror)
	id := mustSeedProduct(t, db, 1)

	require.NoError(t, ledger.Release(context.Background(), id, 4))
	assert.Equal(t, 5, currentStock(t, db, id))
	assert.Equal(t, 1, mirror.count())
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := newLedger(t, db, &fakeMirror{})
	id := mustSeedProduct(t, db, 1)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(context.Background(), id, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
	}
	assert.Equal(t, 1, succeeded, "exactly one reservation may win the last unit")
	assert.Equal(t, 0, currentStock(t, db, id))
}
