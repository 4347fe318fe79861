package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeBlobStore struct {
	uploads   []string
	removed   []string
	uploadErr error
	removeErr error
}

func (f *fakeBlobStore) Upload(_ context.Context, objectPath string, _ []byte, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, objectPath)
	return "https://storage.test/storage/v1/object/public/images/" + objectPath, nil
}

func (f *fakeBlobStore) Remove(_ context.Context, objectPath string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, objectPath)
	return nil
}

func (f *fakeBlobStore) ObjectPath(publicURL string) (string, bool) {
	const marker = "/storage/v1/object/public/images/"
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return "", false
	}
	return publicURL[idx+len(marker):], true
}

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

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

func newCatalogService(t *testing.T, db *gorm.DB, blobs BlobStore) Service {
	t.Helper()

	if blobs == nil {
		blobs = &fakeBlobStore{}
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), blobs, logg)
	require.NoError(t, err)
	return svc
}

func TestCreateProductValidation(t *testing.T) {
	svc := newCatalogService(t, setupCatalogTestDB(t), nil)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: " "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{
		Name:  "雞胸肉",
		Price: decimal.NewFromInt(-5),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{
		Name:  "雞胸肉",
		Stock: -1,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateProductUploadsImageFirst(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc := newCatalogService(t, setupCatalogTestDB(t), blobs)

	created, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:             "雞腿",
		Price:            decimal.NewFromFloat(120.50),
		Weight:           decimal.NewFromFloat(0.6),
		Stock:            10,
		ImageData:        []byte("png-bytes"),
		ImageContentType: "image/png",
	})
	require.NoError(t, err)
	require.Len(t, blobs.uploads, 1)
	assert.Equal(t, "products/"+created.ID.String()+".png", blobs.uploads[0])
	assert.Contains(t, created.Image, blobs.uploads[0])

	mirrored, ok := svc.Product(created.ID)
	require.True(t, ok)
	assert.Equal(t, 10, mirrored.Stock)
}

func TestCreateProductFailsWhenUploadFails(t *testing.T) {
	db := setupCatalogTestDB(t)
	blobs := &fakeBlobStore{uploadErr: errors.New("bucket offline")}
	svc := newCatalogService(t, db, blobs)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:      "雞翅",
		ImageData: []byte("x"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, db.Table("products").Count(&count).Error)
	assert.Zero(t, count, "row must not exist when the image upload failed")
}

func TestUpdateProductDoesNotTouchStock(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db, nil)

	created, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:  "豬五花",
		Price: decimal.NewFromInt(200),
		Stock: 7,
	})
	require.NoError(t, err)

	// simulate a concurrent reservation between load and save
	require.NoError(t, db.Exec("UPDATE products SET stock = stock - 3 WHERE id = ?", created.ID.String()).Error)

	newPrice := decimal.NewFromInt(180)
	updated, err := svc.UpdateProduct(context.Background(), created.ID, UpdateProductInput{Price: &newPrice})
	require.NoError(t, err)
	assert.True(t, newPrice.Equal(updated.Price))
	assert.Equal(t, 4, updated.Stock)
}

func TestDeleteProductRemovesBlobThenRow(t *testing.T) {
	db := setupCatalogTestDB(t)
	blobs := &fakeBlobStore{}
	svc := newCatalogService(t, db, blobs)

	created, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:             "牛小排",
		ImageData:        []byte("img"),
		ImageContentType: "image/jpeg",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(context.Background(), created.ID))
	require.Len(t, blobs.removed, 1)
	assert.Equal(t, "products/"+created.ID.String()+".jpg", blobs.removed[0])

	var count int64
	require.NoError(t, db.Table("products").Count(&count).Error)
	assert.Zero(t, count)

	_, ok := svc.Product(created.ID)
	assert.False(t, ok)
}

func TestDeleteProductStillDeletesRowWhenBlobFails(t *testing.T) {
	db := setupCatalogTestDB(t)
	blobs := &fakeBlobStore{removeErr: errors.New("storage unavailable")}
	svc := newCatalogService(t, db, blobs)

	created, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:             "鮭魚",
		ImageData:        []byte("img"),
		ImageContentType: "image/png",
	})
	require.NoError(t, err)

	err = svc.DeleteProduct(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, db.Table("products").Count(&count).Error)
	assert.Zero(t, count, "row delete proceeds even when the blob delete failed")
}

func TestLoadProductsServesStaleSnapshotOnFailure(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db, nil)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "白蝦", Stock: 3})
	require.NoError(t, err)

	loaded, err := svc.LoadProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	require.NoError(t, db.Exec("DROP TABLE products").Error)

	stale, err := svc.LoadProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "白蝦", stale[0].Name)
}

func TestRefreshProductDropsMissingRows(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db, nil)

	created, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "蛤蜊", Stock: 5})
	require.NoError(t, err)

	require.NoError(t, db.Exec("DELETE FROM products WHERE id = ?", created.ID.String()).Error)
	require.NoError(t, svc.RefreshProduct(context.Background(), created.ID))

	_, ok := svc.Product(created.ID)
	assert.False(t, ok)
}
