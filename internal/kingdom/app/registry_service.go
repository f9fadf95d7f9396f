package app

import (
	"context"

	"KingdomWars/internal/kingdom/infra/repo"
)

// RegistryService 暴露王国注册表的读能力；写入只发生在战斗结算事务里。
type RegistryService struct {
	kingdoms *repo.KingdomRepo
}

func NewRegistryService(kingdoms *repo.KingdomRepo) *RegistryService {
	return &RegistryService{
		kingdoms: kingdoms,
	}
}

func (s *RegistryService) Ruler(ctx context.Context, kingdomID int64) (int64, error) {
	k, err := s.kingdoms.Get(ctx, kingdomID)
	if err != nil {
		return 0, err
	}
	return k.RulerId, nil
}

func (s *RegistryService) Empire(ctx context.Context, kingdomID int64) (int64, error) {
	k, err := s.kingdoms.Get(ctx, kingdomID)
	if err != nil {
		return 0, err
	}
	return k.EmpireId, nil
}

func (s *RegistryService) WallBonus(ctx context.Context, kingdomID int64) (int64, error) {
	k, err := s.kingdoms.Get(ctx, kingdomID)
	if err != nil {
		return 0, err
	}
	return k.WallBonus, nil
}
