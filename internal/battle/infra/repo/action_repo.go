package repo

import (
	"context"

	"gorm.io/gorm"

	"KingdomWars/internal/battle/domain"
)

type ActionRepo struct {
	db *gorm.DB
}

func NewActionRepo(db *gorm.DB) *ActionRepo {
	return &ActionRepo{
		db: db,
	}
}

func (r *ActionRepo) Create(ctx context.Context, a *domain.BattleAction) error {
	err := r.db.WithContext(ctx).Create(a).Error
	if err != nil {
		return domain.ErrSystemUnavailable.WithData("battle_id", a.BattleId).WithCause(err)
	}
	return nil
}

func (r *ActionRepo) ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleAction, error) {
	var out []domain.BattleAction
	// id 为 snowflake，按 id 升序即写入顺序
	err := r.db.WithContext(ctx).Where("battle_id = ?", battleID).Order("id").Find(&out).Error
	if err != nil {
		return nil, domain.ErrSystemUnavailable.WithData("battle_id", battleID).WithCause(err)
	}
	return out, nil
}
