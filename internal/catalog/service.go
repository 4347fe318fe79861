package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chiayulin/pickline-backend/pkg/db/models"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// BlobStore is the slice of the storage client the catalog needs for product
// images.
type BlobStore interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, objectPath string) error
	ObjectPath(publicURL string) (string, bool)
}

// Service manages the product catalog and its in-memory mirror. The mirror is
// what the picking screens read; the ledger refreshes it after stock moves.
type Service interface {
	LoadProducts(ctx context.Context) ([]models.Product, error)
	Snapshot() []models.Product
	Product(id uuid.UUID) (models.Product, bool)
	RefreshProduct(ctx context.Context, id uuid.UUID) error
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name             string
	Price            decimal.Decimal
	Weight           decimal.Decimal
	Stock            int
	ImageData        []byte
	ImageContentType string
}

// UpdateProductInput holds optional mutation values for a product. Stock is
// absent on purpose: it only moves through the stock ledger.
type UpdateProductInput struct {
	Name             *string
	Price            *decimal.Decimal
	Weight           *decimal.Decimal
	ImageData        []byte
	ImageContentType string
}

type service struct {
	repo  *Repository
	blobs BlobStore
	logg  *logger.Logger

	mu     sync.RWMutex
	mirror map[uuid.UUID]models.Product
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, blobs BlobStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		blobs:  blobs,
		logg:   logg,
		mirror: map[uuid.UUID]models.Product{},
	}, nil
}

// LoadProducts refreshes the mirror from the database. A failed read keeps
// the previous mirror and serves it stale rather than blanking the catalog.
func (s *service) LoadProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.mu.RLock()
		stale := s.snapshotLocked()
		s.mu.RUnlock()
		if len(stale) > 0 {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "product refresh failed, serving stale snapshot")
			return stale, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	s.mu.Lock()
	s.mirror = make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		s.mirror[row.ID] = row
	}
	s.mu.Unlock()
	return rows, nil
}

// Snapshot returns a copy of the mirrored catalog.
func (s *service) Snapshot() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *service) snapshotLocked() []models.Product {
	if len(s.mirror) == 0 {
		return nil
	}
	out := make([]models.Product, 0, len(s.mirror))
	for _, product := range s.mirror {
		out = append(out, product)
	}
	return out
}

// Product returns the mirrored product, if present.
func (s *service) Product(id uuid.UUID) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	product, ok := s.mirror[id]
	return product, ok
}

// RefreshProduct reloads one row into the mirror. The ledger calls this after
// every successful stock write so reads stay consistent with the database.
func (s *service) RefreshProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.mu.Lock()
			delete(s.mirror, id)
			s.mu.Unlock()
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh product")
	}

	s.mu.Lock()
	s.mirror[id] = *product
	s.mu.Unlock()
	return nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	id := uuid.New()

	imageURL := ""
	if len(input.ImageData) > 0 {
		url, err := s.blobs.Upload(ctx, imageObjectPath(id, input.ImageContentType), input.ImageData, input.ImageContentType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload product image")
		}
		imageURL = url
	}

	product := &models.Product{
		ID:     id,
		Name:   name,
		Price:  input.Price,
		Weight: input.Weight,
		Image:  imageURL,
		Stock:  input.Stock,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	s.mu.Lock()
	s.mirror[created.ID] = *created
	s.mu.Unlock()

	s.logg.Info(s.logg.WithProductID(ctx, created.ID.String()), "product created")
	return created, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = name
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.Price = *input.Price
	}
	if input.Weight != nil {
		product.Weight = *input.Weight
	}

	previousImage := product.Image
	if len(input.ImageData) > 0 {
		url, err := s.blobs.Upload(ctx, imageObjectPath(id, input.ImageContentType), input.ImageData, input.ImageContentType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload product image")
		}
		product.Image = url
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	if len(input.ImageData) > 0 && previousImage != "" && previousImage != updated.Image {
		if path, ok := s.blobs.ObjectPath(previousImage); ok {
			if err := s.blobs.Remove(ctx, path); err != nil {
				s.logg.Warn(s.logg.WithProductID(ctx, id.String()), "stale product image not removed")
			}
		}
	}

	s.mu.Lock()
	s.mirror[updated.ID] = *updated
	s.mu.Unlock()
	return updated, nil
}

// DeleteProduct removes the stored image first, then the row, then the
// mirror entry. Blob and row failures are combined so the caller sees both.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var errs error
	if product.Image != "" {
		if path, ok := s.blobs.ObjectPath(product.Image); ok {
			if err := s.blobs.Remove(ctx, path); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("remove product image: %w", err))
			}
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete product row: %w", err))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "delete product")
	}

	s.mu.Lock()
	delete(s.mirror, id)
	s.mu.Unlock()

	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "delete product")
	}
	return nil
}

func imageObjectPath(id uuid.UUID, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg", "image/jpg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}
	return "products/" + id.String() + ext
}
