package customers

import (
	"context"
	"io"
	"testing"

	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:customers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  nickname TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  store TEXT NOT NULL DEFAULT '',
  storenum TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newCustomerService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), logg)
	require.NoError(t, err)
	return svc
}

func mustCreateCustomer(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := db.Exec(
		"INSERT INTO customers (id, name, nickname, phone, store, storenum) VALUES (?, ?, '', '', '', '')",
		id.String(), name,
	).Error
	require.NoError(t, err)
	return id
}

func TestCreateCustomerRequiresName(t *testing.T) {
	svc := newCustomerService(t, setupCustomersTestDB(t))

	_, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{Name: "   "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateCustomerPersistsAndMirrors(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomerService(t, db)

	created, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{
		Name:     "王小明",
		Nickname: "小明",
		Phone:    "0912345678",
		Store:    "北店",
		StoreNum: "A-12",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "王小明", snapshot[0].Name)
	assert.Equal(t, "A-12", snapshot[0].StoreNum)
}

func TestUpdateCustomerAppliesPartialFields(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomerService(t, db)
	id := mustCreateCustomer(t, db, "陳大文")

	phone := "0987654321"
	updated, err := svc.UpdateCustomer(context.Background(), id, UpdateCustomerInput{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "陳大文", updated.Name)
	assert.Equal(t, phone, updated.Phone)
}

func TestUpdateCustomerNotFound(t *testing.T) {
	svc := newCustomerService(t, setupCustomersTestDB(t))

	_, err := svc.UpdateCustomer(context.Background(), uuid.New(), UpdateCustomerInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeleteCustomerRemovesFromMirror(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomerService(t, db)
	id := mustCreateCustomer(t, db, "林小華")

	_, err := svc.LoadCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, svc.Snapshot(), 1)

	require.NoError(t, svc.DeleteCustomer(context.Background(), id))
	assert.Empty(t, svc.Snapshot())

	var count int64
	require.NoError(t, db.Table("customers").Count(&count).Error)
	assert.Zero(t, count)
}

func TestLoadCustomersServesStaleSnapshotOnFailure(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomerService(t, db)
	mustCreateCustomer(t, db, "黃阿姨")

	first, err := svc.LoadCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, db.Exec("DROP TABLE customers").Error)

	stale, err := svc.LoadCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "黃阿姨", stale[0].Name)
}

func TestLoadCustomersFailsWithoutSnapshot(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomerService(t, db)
	require.NoError(t, db.Exec("DROP TABLE customers").Error)

	_, err := svc.LoadCustomers(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestFindByName(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomerService(t, db)
	mustCreateCustomer(t, db, "張先生")

	found, err := svc.FindByName(context.Background(), "張先生")
	require.NoError(t, err)
	assert.Equal(t, "張先生", found.Name)

	_, err = svc.FindByName(context.Background(), "不存在")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
