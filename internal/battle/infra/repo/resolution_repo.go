package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"KingdomWars/internal/battle/app"
	"KingdomWars/internal/battle/domain"
	kingdomdomain "KingdomWars/internal/kingdom/domain"
)

// ResolutionRepo 在单个事务内完成战斗终局的全部持久化：
// 结算字段写入、守卫行释放、王国统治变更、历史追加。
type ResolutionRepo struct {
	db *gorm.DB
}

func NewResolutionRepo(db *gorm.DB) *ResolutionRepo {
	return &ResolutionRepo{
		db: db,
	}
}

func (r *ResolutionRepo) Commit(ctx context.Context, c app.ResolutionCommit) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// resolved_at IS NULL 守卫：并发结算只有一个事务能走到这之后
		res := tx.Model(&domain.Battle{}).
			Where("id = ? AND resolved_at IS NULL", c.BattleId).
			Updates(map[string]any{
				"resolved_at":       c.ResolvedAt,
				"winner_side":       c.WinnerSide,
				"attacker_strength": c.AttackerStrength,
				"defender_strength": c.DefenderStrength,
				"wall_bonus":        c.WallBonus,
				"gold_per_winner":   c.GoldPerWinner,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrAlreadyResolved.WithData("battle_id", c.BattleId)
		}

		// 释放“每王国一场”守卫行，下一场战斗才能开
		if err := tx.Where("kingdom_id = ? AND battle_id = ?", c.KingdomId, c.BattleId).
			Delete(&domain.BattleActiveLock{}).Error; err != nil {
			return err
		}

		if !c.Mutate {
			return nil
		}
		if err := tx.Model(&kingdomdomain.Kingdom{}).
			Where("id = ?", c.KingdomId).
			Updates(map[string]any{
				"ruler_id":  c.History.NewRulerId,
				"empire_id": c.History.NewEmpireId,
			}).Error; err != nil {
			return err
		}
		h := c.History
		return tx.Create(&h).Error
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrAlreadyResolved) {
		return err
	}
	return domain.ErrSystemUnavailable.WithData("battle_id", c.BattleId).WithCause(err)
}
