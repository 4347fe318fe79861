package customers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chiayulin/pickline-backend/pkg/db/models"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages the customer registry. It keeps an in-memory mirror of the
// customer table so pickers keep a usable list when a refresh fails.
type Service interface {
	LoadCustomers(ctx context.Context) ([]models.Customer, error)
	Snapshot() []models.Customer
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	FindByName(ctx context.Context, name string) (*models.Customer, error)
}

// CreateCustomerInput holds the validated payload to create a customer.
type CreateCustomerInput struct {
	Name     string
	Nickname string
	Phone    string
	Store    string
	StoreNum string
}

// UpdateCustomerInput holds optional mutation values for a customer.
type UpdateCustomerInput struct {
	Name     *string
	Nickname *string
	Phone    *string
	Store    *string
	StoreNum *string
}

type service struct {
	repo *Repository
	logg *logger.Logger

	mu     sync.RWMutex
	mirror []models.Customer
}

// NewService constructs a customer service instance.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// LoadCustomers refreshes the mirror from the database. When the read fails
// and a previous snapshot exists, the stale snapshot is returned instead of
// an error so the picking flow stays usable.
func (s *service) LoadCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.mu.RLock()
		stale := copyCustomers(s.mirror)
		s.mu.RUnlock()
		if len(stale) > 0 {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "customer refresh failed, serving stale snapshot")
			return stale, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}

	s.mu.Lock()
	s.mirror = rows
	s.mu.Unlock()
	return copyCustomers(rows), nil
}

// Snapshot returns a copy of the last loaded customer list.
func (s *service) Snapshot() []models.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyCustomers(s.mirror)
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	customer := &models.Customer{
		ID:       uuid.New(),
		Name:     name,
		Nickname: input.Nickname,
		Phone:    input.Phone,
		Store:    input.Store,
		StoreNum: input.StoreNum,
	}
	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}

	s.mu.Lock()
	s.mirror = upsertCustomer(s.mirror, *created)
	s.mu.Unlock()

	s.logg.Info(s.logg.WithCustomer(ctx, created.Name), "customer created")
	return created, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty")
		}
		customer.Name = name
	}
	if input.Nickname != nil {
		customer.Nickname = *input.Nickname
	}
	if input.Phone != nil {
		customer.Phone = *input.Phone
	}
	if input.Store != nil {
		customer.Store = *input.Store
	}
	if input.StoreNum != nil {
		customer.StoreNum = *input.StoreNum
	}

	updated, err := s.repo.Update(ctx, customer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
	}

	s.mu.Lock()
	s.mirror = upsertCustomer(s.mirror, *updated)
	s.mu.Unlock()
	return updated, nil
}

func (s *service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
	}

	s.mu.Lock()
	s.mirror = removeCustomer(s.mirror, id)
	s.mu.Unlock()
	return nil
}

// FindByName resolves a customer by the unique name pickers select by.
func (s *service) FindByName(ctx context.Context, name string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	customer, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find customer")
	}
	return customer, nil
}

func copyCustomers(in []models.Customer) []models.Customer {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Customer, len(in))
	copy(out, in)
	return out
}

func upsertCustomer(list []models.Customer, customer models.Customer) []models.Customer {
	for i := range list {
		if list[i].ID == customer.ID {
			list[i] = customer
			return list
		}
	}
	return append(list, customer)
}

func removeCustomer(list []models.Customer, id uuid.UUID) []models.Customer {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
