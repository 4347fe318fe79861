package orders

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"gorm.io/gorm"
)

const dateKeyLayout = "20060102"

// NumberGenerator allocates date-sequenced order numbers, an 8-digit local
// date followed by a zero-padded 3-digit daily sequence (20250901001). The
// sequence lives in the order_counters table and is incremented atomically,
// so numbers survive restarts and never repeat within a date.
type NumberGenerator struct {
	db  *gorm.DB
	now func() time.Time
}

// NewNumberGenerator constructs the generator.
func NewNumberGenerator(db *gorm.DB) (*NumberGenerator, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &NumberGenerator{db: db, now: time.Now}, nil
}

// Next returns the next order number for today.
func (g *NumberGenerator) Next(ctx context.Context) (string, error) {
	dateKey := g.now().Format(dateKeyLayout)

	var seq int
	err := g.db.WithContext(ctx).Raw(`
INSERT INTO order_counters (date_key, seq, updated_at)
VALUES (?, 1, ?)
ON CONFLICT (date_key) DO UPDATE SET seq = order_counters.seq + 1, updated_at = excluded.updated_at
RETURNING seq`,
		dateKey, g.now().UTC(),
	).Scan(&seq).Error
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment order counter")
	}

	return fmt.Sprintf("%s%03d", dateKey, seq), nil
}
