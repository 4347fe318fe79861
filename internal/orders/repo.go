package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chiayulin/pickline-backend/pkg/db/models"
	"github.com/chiayulin/pickline-backend/pkg/enums"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository translates working orders to and from their persistence rows.
// Items and history are stored as serialized JSON columns; decoding is
// lenient, a corrupt payload degrades to an empty list with a warning instead
// of failing the load.
type Repository struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB, logg *logger.Logger) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Repository{db: db, logg: logg}, nil
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx, logg: r.logg}
}

// Create persists a fresh order row.
func (r *Repository) Create(ctx context.Context, order *Order) error {
	row, err := r.toRow(order)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	order.CreatedAt = row.CreatedAt
	order.UpdatedAt = row.UpdatedAt
	return nil
}

// Sync pushes the full order snapshot, keyed by the order's persistent id.
// The write is idempotent; repeating it with the same snapshot is harmless.
func (r *Repository) Sync(ctx context.Context, order *Order) error {
	row, err := r.toRow(order)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"items":        row.Items,
			"status":       row.Status,
			"total_price":  row.TotalPrice,
			"history":      row.History,
			"box_count":    row.BoxCount,
			"completed_at": row.CompletedAt,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync order")
	}
	return nil
}

// SyncByNumber pushes the full order snapshot keyed by order number. Used
// when the caller holds an adopted order whose persistent id it never saw.
func (r *Repository) SyncByNumber(ctx context.Context, order *Order) error {
	row, err := r.toRow(order)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ?", order.OrderNumber).
		Updates(map[string]any{
			"items":        row.Items,
			"status":       row.Status,
			"total_price":  row.TotalPrice,
			"history":      row.History,
			"box_count":    row.BoxCount,
			"completed_at": row.CompletedAt,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync order by number")
	}
	return nil
}

// FindActiveByCustomerID returns the customer's single non-completed order,
// or gorm.ErrRecordNotFound.
func (r *Repository) FindActiveByCustomerID(ctx context.Context, customerID uuid.UUID) (*Order, error) {
	var row models.Order
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status IN ?", customerID, statusStrings(enums.ActiveOrderStatuses)).
		Order("created_at asc").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return r.toWorking(ctx, &row), nil
}

// FindByOrderNumber loads one order by its human-facing number.
func (r *Repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var row models.Order
	err := r.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return r.toWorking(ctx, &row), nil
}

// ListCompleted returns completed orders, most recently completed first.
func (r *Repository) ListCompleted(ctx context.Context) ([]*Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusCompleted.String()).
		Order("completed_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*Order, 0, len(rows))
	for i := range rows {
		out = append(out, r.toWorking(ctx, &rows[i]))
	}
	return out, nil
}

func (r *Repository) toRow(order *Order) (*models.Order, error) {
	items, err := encodeJSONList(order.Items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order items")
	}
	history, err := encodeJSONList(order.History)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order history")
	}
	return &models.Order{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.CustomerID,
		CustomerInfo: order.CustomerInfo,
		Items:        items,
		Status:       order.Status,
		TotalPrice:   order.TotalPrice,
		History:      history,
		BoxCount:     order.BoxCount,
		CompletedAt:  order.CompletedAt,
	}, nil
}

func (r *Repository) toWorking(ctx context.Context, row *models.Order) *Order {
	order := &Order{
		ID:           row.ID,
		OrderNumber:  row.OrderNumber,
		CustomerID:   row.CustomerID,
		CustomerInfo: row.CustomerInfo,
		Status:       row.Status,
		TotalPrice:   row.TotalPrice,
		BoxCount:     row.BoxCount,
		CompletedAt:  row.CompletedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	order.Items = r.decodeItems(ctx, row)
	order.History = r.decodeHistory(ctx, row)
	return order
}

// decodeItems never fails: a payload that does not parse degrades to an
// empty list so the order itself stays loadable.
func (r *Repository) decodeItems(ctx context.Context, row *models.Order) []Item {
	if row.Items == "" {
		return nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
		parseErr := pkgerrors.Wrap(pkgerrors.CodeParse, err, "decode order items")
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"order_number": row.OrderNumber,
			"error":        parseErr.Error(),
		}), "stored item list unreadable, substituting empty list")
		return nil
	}
	return items
}

func (r *Repository) decodeHistory(ctx context.Context, row *models.Order) []HistoryEntry {
	if row.History == "" {
		return nil
	}
	var history []HistoryEntry
	if err := json.Unmarshal([]byte(row.History), &history); err != nil {
		parseErr := pkgerrors.Wrap(pkgerrors.CodeParse, err, "decode order history")
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"order_number": row.OrderNumber,
			"error":        parseErr.Error(),
		}), "stored history unreadable, substituting empty list")
		return nil
	}
	return history
}

func encodeJSONList(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

func statusStrings(statuses []enums.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = status.String()
	}
	return out
}
