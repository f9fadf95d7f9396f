package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"KingdomWars/internal/battle/domain"
)

type ParticipantRepo struct {
	db *gorm.DB
}

func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{
		db: db,
	}
}

func (r *ParticipantRepo) Get(ctx context.Context, battleID, uid int64) (*domain.BattleParticipant, error) {
	var p domain.BattleParticipant
	err := r.db.WithContext(ctx).Where("battle_id = ? AND uid = ?", battleID, uid).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 技术错误 → 业务错误
		return nil, domain.ErrNotParticipant.WithData("uid", uid)
	}
	return nil, domain.ErrSystemUnavailable.WithData("uid", uid).WithCause(err)
}

func (r *ParticipantRepo) ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleParticipant, error) {
	var out []domain.BattleParticipant
	err := r.db.WithContext(ctx).Where("battle_id = ?", battleID).Order("id").Find(&out).Error
	if err != nil {
		return nil, domain.ErrSystemUnavailable.WithData("battle_id", battleID).WithCause(err)
	}
	return out, nil
}

func (r *ParticipantRepo) Create(ctx context.Context, p *domain.BattleParticipant) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发重复报名撞 uk_battle_user
			return domain.ErrDuplicatePledge.WithData("uid", p.UId)
		}
		return domain.ErrSystemUnavailable.WithData("uid", p.UId).WithCause(err)
	}
	return nil
}
