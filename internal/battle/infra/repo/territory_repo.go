package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"KingdomWars/internal/battle/domain"
)

type TerritoryRepo struct {
	db *gorm.DB
}

func NewTerritoryRepo(db *gorm.DB) *TerritoryRepo {
	return &TerritoryRepo{
		db: db,
	}
}

func (r *TerritoryRepo) ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleTerritory, error) {
	var out []domain.BattleTerritory
	err := r.db.WithContext(ctx).Where("battle_id = ?", battleID).Order("slot").Find(&out).Error
	if err != nil {
		return nil, domain.ErrSystemUnavailable.WithData("battle_id", battleID).WithCause(err)
	}
	return out, nil
}

func (r *TerritoryRepo) Get(ctx context.Context, id int64) (*domain.BattleTerritory, error) {
	var t domain.BattleTerritory
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err == nil {
		return &t, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 技术错误 → 业务错误
		return nil, domain.ErrBattleNotFound.WithData("territory_id", id)
	}
	return nil, domain.ErrSystemUnavailable.WithData("territory_id", id).WithCause(err)
}

// CompareAndSwap 以 version 做乐观锁：影响行数为 0 即版本落后，由调用方重读重试。
func (r *TerritoryRepo) CompareAndSwap(ctx context.Context, cur domain.BattleTerritory, after int, capturedBy domain.Side, capturedAt *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.BattleTerritory{}).
		Where("id = ? AND version = ?", cur.Id, cur.Version).
		Updates(map[string]any{
			"control":     after,
			"captured_by": capturedBy,
			"captured_at": capturedAt,
			"version":     cur.Version + 1,
		})
	if res.Error != nil {
		return false, domain.ErrSystemUnavailable.WithData("territory_id", cur.Id).WithCause(res.Error)
	}
	return res.RowsAffected > 0, nil
}
