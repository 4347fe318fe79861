package models

import "time"

// OrderCounter is the durable per-calendar-date order sequence. The row is
// incremented atomically so numbers survive restarts and never repeat within
// a date.
type OrderCounter struct {
	DateKey   string    `gorm:"column:date_key;primaryKey"`
	Seq       int       `gorm:"column:seq;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
