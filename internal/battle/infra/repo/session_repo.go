package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"KingdomWars/internal/battle/domain"
)

type SessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{
		db: db,
	}
}

func (r *SessionRepo) Get(ctx context.Context, battleID, uid int64) (*domain.FightSession, error) {
	var s domain.FightSession
	err := r.db.WithContext(ctx).Where("battle_id = ? AND uid = ?", battleID, uid).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 技术错误 → 业务错误
		return nil, domain.ErrSessionNotFound.WithData("uid", uid)
	}
	return nil, domain.ErrSystemUnavailable.WithData("uid", uid).WithCause(err)
}

func (r *SessionRepo) ListOpenByTerritory(ctx context.Context, territoryID int64) ([]domain.FightSession, error) {
	var out []domain.FightSession
	err := r.db.WithContext(ctx).
		Where("territory_id = ?", territoryID).
		Order("ctime DESC").
		Find(&out).Error
	if err != nil {
		return nil, domain.ErrSystemUnavailable.WithData("territory_id", territoryID).WithCause(err)
	}
	return out, nil
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.FightSession) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发开场撞 uk_session_battle_user
			return domain.ErrSessionExists.WithData("uid", s.UId)
		}
		return domain.ErrSystemUnavailable.WithData("uid", s.UId).WithCause(err)
	}
	return nil
}

func (r *SessionRepo) Update(ctx context.Context, s *domain.FightSession) error {
	err := r.db.WithContext(ctx).Save(s).Error
	if err != nil {
		return domain.ErrSystemUnavailable.WithData("session_id", s.Id).WithCause(err)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Delete(&domain.FightSession{}, id).Error
	if err != nil {
		return domain.ErrSystemUnavailable.WithData("session_id", id).WithCause(err)
	}
	return nil
}
