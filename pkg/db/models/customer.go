package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is an addressable buyer. Name doubles as the unique lookup key the
// picking UI selects by.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	Nickname  string    `gorm:"column:nickname"`
	Phone     string    `gorm:"column:phone"`
	Store     string    `gorm:"column:store"`
	StoreNum  string    `gorm:"column:storenum"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
