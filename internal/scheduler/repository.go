package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository finds PENDING invoices whose due date has passed.
type Repository interface {
	DuePending(ctx context.Context, now time.Time, limit int) ([]snowflake.ID, error)
	CountDuePending(ctx context.Context, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// DuePending claims a batch of due invoice ids. Rows are locked with
// SKIP LOCKED so concurrent sweepers never scan the same batch; the
// transaction commits immediately and the conditional update in the
// ledger guards against any later race.
func (r *gormRepository) DuePending(ctx context.Context, now time.Time, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Raw(
			`SELECT id
			 FROM invoices
			 WHERE status = 'PENDING' AND due_at < ?
			 ORDER BY due_at ASC, id ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT ?`,
			now,
			limit,
		).Scan(&ids).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *gormRepository) CountDuePending(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE status = 'PENDING' AND due_at < ?`,
		now,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
