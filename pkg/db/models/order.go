package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chiayulin/pickline-backend/pkg/enums"
	"github.com/chiayulin/pickline-backend/pkg/types"
)

// Order is the persistence record for a customer order. Items and History are
// serialized JSON text; they are decoded into structured values only at the
// repository adapter so a corrupt payload can degrade to an empty list instead
// of failing the load.
type Order struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber  string             `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID   uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	CustomerInfo types.CustomerInfo `gorm:"column:customer_info;type:jsonb;serializer:json"`
	Items        string             `gorm:"column:items;type:jsonb;not null;default:'[]'"`
	Status       enums.OrderStatus  `gorm:"column:status;not null;default:'pending_picking'"`
	TotalPrice   decimal.Decimal    `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	History      string             `gorm:"column:history;type:jsonb;not null;default:'[]'"`
	BoxCount     int                `gorm:"column:box_count;not null;default:1"`
	CompletedAt  *time.Time         `gorm:"column:completed_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
