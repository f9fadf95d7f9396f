package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"KingdomWars/internal/kingdom/domain"
)

type KingdomRepo struct {
	db *gorm.DB
}

func NewKingdomRepo(db *gorm.DB) *KingdomRepo {
	return &KingdomRepo{
		db: db,
	}
}

func (r *KingdomRepo) Get(ctx context.Context, id int64) (*domain.Kingdom, error) {
	var k domain.Kingdom
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&k).Error
	if err == nil {
		return &k, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 技术错误 → 业务错误
		return nil, domain.ErrKingdomNotFound.WithData("kingdom_id", id)
	}
	return nil, domain.ErrSystemUnavailable.WithData("kingdom_id", id).WithCause(err)
}

// AddTreasury 调整金库存量，amount 可为负（划出）。
func (r *KingdomRepo) AddTreasury(ctx context.Context, id int64, amount int64) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Kingdom{}).
		Where("id = ?", id).
		Update("treasury_gold", gorm.Expr("treasury_gold + ?", amount))
	if res.Error != nil {
		return domain.ErrSystemUnavailable.WithData("kingdom_id", id).WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrKingdomNotFound.WithData("kingdom_id", id)
	}
	return nil
}
