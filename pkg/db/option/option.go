package option

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption composes additional constraints onto a gorm query.
type QueryOption func(*gorm.DB) *gorm.DB

func Apply(tx *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		tx = opt(tx)
	}
	return tx
}

func WithLimit(limit int) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if limit > 0 {
			return tx.Limit(limit)
		}
		return tx
	}
}

func WithOrder(order string) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Order(order)
	}
}

// WithCursor applies keyset pagination over (created_at, primary key). The
// timestamp is bound as a time value so the driver compares datetimes, not
// their string forms.
func WithCursor(createdAt time.Time, idColumn, id string) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if createdAt.IsZero() || id == "" {
			return tx
		}
		return tx.Where("(created_at < ?) OR (created_at = ? AND "+idColumn+" < ?)", createdAt, createdAt, id)
	}
}

// WithLockForUpdate takes a row lock for the duration of the transaction.
func WithLockForUpdate() QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}
