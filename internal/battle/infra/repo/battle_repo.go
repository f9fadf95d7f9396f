package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"KingdomWars/internal/battle/domain"
)

type BattleRepo struct {
	db *gorm.DB
}

func NewBattleRepo(db *gorm.DB) *BattleRepo {
	return &BattleRepo{
		db: db,
	}
}

func (r *BattleRepo) Get(ctx context.Context, id int64) (*domain.Battle, error) {
	var b domain.Battle
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err == nil {
		return &b, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 技术错误 → 业务错误
		return nil, domain.ErrBattleNotFound.WithData("battle_id", id)
	}
	return nil, domain.ErrSystemUnavailable.WithData("battle_id", id).WithCause(err)
}

func (r *BattleRepo) GetUnresolvedByKingdom(ctx context.Context, kingdomID int64) (*domain.Battle, error) {
	var b domain.Battle
	err := r.db.WithContext(ctx).
		Where("kingdom_id = ? AND resolved_at IS NULL", kingdomID).
		First(&b).Error
	if err == nil {
		return &b, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBattleNotFound.WithData("kingdom_id", kingdomID)
	}
	return nil, domain.ErrSystemUnavailable.WithData("kingdom_id", kingdomID).WithCause(err)
}

// Create 在同一事务内落库战斗与其领地，任何一步失败整体回滚。
func (r *BattleRepo) Create(ctx context.Context, b *domain.Battle, territories []domain.BattleTerritory) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 守卫行先行：kingdom_id 主键冲突即说明已有未结算战斗
		lock := domain.BattleActiveLock{KingdomId: b.KingdomId, BattleId: b.Id}
		if err := tx.Create(&lock).Error; err != nil {
			return err
		}
		if err := tx.Create(b).Error; err != nil {
			return err
		}
		for i := range territories {
			if err := tx.Create(&territories[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发开战撞唯一索引：交给上层按冲突处理
			return domain.ErrConflict.WithData("kingdom_id", b.KingdomId)
		}
		return domain.ErrSystemUnavailable.WithData("battle_id", b.Id).WithCause(err)
	}
	return nil
}
