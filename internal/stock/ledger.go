package stock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chiayulin/pickline-backend/pkg/db/models"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/chiayulin/pickline-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type mirrorRefresher interface {
	RefreshProduct(ctx context.Context, id uuid.UUID) error
}

// Ledger is the only writer of product stock. Every move is a single
// conditional UPDATE so the stock column can never go negative, and a
// per-product mutex serializes in-process callers on top of that.
type Ledger struct {
	db      *gorm.DB
	catalog mirrorRefresher
	metrics *metrics.FulfillmentMetrics
	logg    *logger.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewLedger constructs the stock ledger.
func NewLedger(db *gorm.DB, catalog mirrorRefresher, m *metrics.FulfillmentMetrics, logg *logger.Logger) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog mirror required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Ledger{
		db:      db,
		catalog: catalog,
		metrics: m,
		logg:    logg,
		locks:   map[uuid.UUID]*sync.Mutex{},
	}, nil
}

// Reserve decrements stock by qty. Insufficient stock leaves the row and the
// mirror untouched.
func (l *Ledger) Reserve(ctx context.Context, productID uuid.UUID, qty int) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	lock := l.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	tx := l.db.WithContext(ctx).Exec(
		"UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?",
		qty, time.Now().UTC(), productID, qty,
	)
	if tx.Error != nil {
		l.metrics.ObserveReservation("error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, tx.Error, "reserve stock")
	}
	if tx.RowsAffected == 0 {
		if !l.productExists(ctx, productID) {
			l.metrics.ObserveReservation("not_found")
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		l.metrics.ObserveReservation("insufficient_stock")
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to reserve").
			WithDetails(map[string]any{"product_id": productID.String(), "requested": qty})
	}

	l.metrics.ObserveReservation("reserved")
	l.refreshMirror(ctx, productID)
	return nil
}

// Release returns qty units to stock, e.g. when a line is removed or an order
// is discarded.
func (l *Ledger) Release(ctx context.Context, productID uuid.UUID, qty int) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	lock := l.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	tx := l.db.WithContext(ctx).Exec(
		"UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?",
		qty, time.Now().UTC(), productID,
	)
	if tx.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, tx.Error, "release stock")
	}
	if tx.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	l.metrics.ObserveReservation("released")
	l.refreshMirror(ctx, productID)
	return nil
}

func (l *Ledger) lockFor(productID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[productID] = lock
	}
	return lock
}

func (l *Ledger) productExists(ctx context.Context, productID uuid.UUID) bool {
	var count int64
	if err := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error; err != nil {
		return true
	}
	return count > 0
}

func (l *Ledger) refreshMirror(ctx context.Context, productID uuid.UUID) {
	if err := l.catalog.RefreshProduct(ctx, productID); err != nil {
		ctx = l.logg.WithField(l.logg.WithProductID(ctx, productID.String()), "error", err.Error())
		l.logg.Warn(ctx, "catalog mirror refresh failed after stock move")
	}
}
