package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"KingdomWars/internal/kingdom/domain"
)

type NobleRepo struct {
	db *gorm.DB
}

func NewNobleRepo(db *gorm.DB) *NobleRepo {
	return &NobleRepo{
		db: db,
	}
}

func (r *NobleRepo) GetByUid(ctx context.Context, uid int64) (*domain.Noble, error) {
	var n domain.Noble
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&n).Error
	if err == nil {
		return &n, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 技术错误 → 业务错误
		return nil, domain.ErrNobleNotFound.WithData("uid", uid)
	}
	return nil, domain.ErrSystemUnavailable.WithData("uid", uid).WithCause(err)
}

// AddGold 调整个人金袋，amount 可为负。
func (r *NobleRepo) AddGold(ctx context.Context, uid int64, amount int64) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Noble{}).
		Where("uid = ?", uid).
		Update("gold", gorm.Expr("gold + ?", amount))
	if res.Error != nil {
		return domain.ErrSystemUnavailable.WithData("uid", uid).WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNobleNotFound.WithData("uid", uid)
	}
	return nil
}
