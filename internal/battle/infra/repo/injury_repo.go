package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"KingdomWars/internal/battle/domain"
)

type InjuryRepo struct {
	db *gorm.DB
}

func NewInjuryRepo(db *gorm.DB) *InjuryRepo {
	return &InjuryRepo{
		db: db,
	}
}

func (r *InjuryRepo) GetUncleared(ctx context.Context, battleID, victimID int64) (*domain.BattleInjury, error) {
	var i domain.BattleInjury
	err := r.db.WithContext(ctx).
		Where("battle_id = ? AND victim_id = ? AND cleared_at IS NULL", battleID, victimID).
		First(&i).Error
	if err == nil {
		return &i, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 无未清除记录是正常情况，不是错误
		return nil, nil
	}
	return nil, domain.ErrSystemUnavailable.WithData("victim_id", victimID).WithCause(err)
}

func (r *InjuryRepo) Create(ctx context.Context, i *domain.BattleInjury) error {
	err := r.db.WithContext(ctx).Create(i).Error
	if err != nil {
		return domain.ErrSystemUnavailable.WithData("victim_id", i.VictimId).WithCause(err)
	}
	return nil
}

func (r *InjuryRepo) Refresh(ctx context.Context, i *domain.BattleInjury) error {
	err := r.db.WithContext(ctx).
		Model(&domain.BattleInjury{}).
		Where("id = ?", i.Id).
		Updates(map[string]any{
			"injurer_id": i.InjurerId,
			"action_id":  i.ActionId,
			"expire_at":  i.ExpireAt,
		}).Error
	if err != nil {
		return domain.ErrSystemUnavailable.WithData("injury_id", i.Id).WithCause(err)
	}
	return nil
}

func (r *InjuryRepo) Clear(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&domain.BattleInjury{}).
		Where("id = ? AND cleared_at IS NULL", id).
		Update("cleared_at", at).Error
	if err != nil {
		return domain.ErrSystemUnavailable.WithData("injury_id", id).WithCause(err)
	}
	return nil
}
